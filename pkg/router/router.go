// Package router compiles path templates with named parameters into
// regular expressions and matches incoming (method, path) pairs against
// them in registration order.
package router

import (
	"regexp"
	"strings"

	"github.com/yourusername/xkoj/pkg/middleware"
	"github.com/yourusername/xkoj/pkg/wire"
)

// Handler processes a matched request.
type Handler func(req *wire.Request, resp *wire.Response) error

// Route is a compiled registration, per spec.md §3: "{method,
// original_template, compiled_matcher, ordered param names, handler,
// route-scoped middlewares}". Invariant: len(ParamNames) equals the
// number of named captures in Matcher.
type Route struct {
	Method           wire.Method
	Template         string
	Matcher          *regexp.Regexp
	ParamNames       []string
	Handler          Handler
	ScopedMiddleware []middleware.Func
}

// Middleware is an alias of middleware.Func so route-scoped middleware can
// be referred to without importing pkg/middleware directly at call sites.
type Middleware = middleware.Func

var paramPattern = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// compileTemplate turns a path template into an anchored regular
// expression plus the ordered list of named parameters, per spec.md §4.2:
// ":identifier" becomes a named capture matching any run of non-"/"
// characters, literal "." is escaped, literal "*" becomes ".*", and the
// whole pattern is anchored at both ends.
func compileTemplate(template string) (*regexp.Regexp, []string) {
	var names []string
	escaped := strings.ReplaceAll(template, ".", `\.`)
	escaped = strings.ReplaceAll(escaped, "*", ".*")

	pattern := paramPattern.ReplaceAllStringFunc(escaped, func(m string) string {
		name := paramPattern.FindStringSubmatch(m)[1]
		names = append(names, name)
		return "(?P<" + name + ">[^/]+)"
	})

	return regexp.MustCompile("^" + pattern + "$"), names
}

// Table is the ordered set of registered routes (C2).
type Table struct {
	routes []*Route
}

// NewTable returns an empty route table.
func NewTable() *Table {
	return &Table{}
}

// Add compiles template and registers a route for method, in registration
// order (spec.md §4.2 "Tie-breaks": "first-registered match wins").
func (t *Table) Add(method wire.Method, template string, handler Handler, scoped ...middleware.Func) *Route {
	matcher, names := compileTemplate(template)
	route := &Route{
		Method:           method,
		Template:         template,
		Matcher:          matcher,
		ParamNames:       names,
		Handler:          handler,
		ScopedMiddleware: scoped,
	}
	t.routes = append(t.routes, route)
	return route
}

// Match finds the first-registered route whose method and compiled
// pattern match, and binds named captures into params in declaration
// order (spec.md §4.2 "Matching", §8 invariant 4).
func (t *Table) Match(method wire.Method, path string) (*Route, map[string]string, bool) {
	for _, route := range t.routes {
		if route.Method != method {
			continue
		}
		captures := route.Matcher.FindStringSubmatch(path)
		if captures == nil {
			continue
		}
		params := make(map[string]string, len(route.ParamNames))
		for i, name := range route.ParamNames {
			params[name] = captures[i+1]
		}
		return route, params, true
	}
	return nil, nil, false
}

// Routes returns the routes in registration order (read-only use, e.g.
// for a docs endpoint or method-not-allowed detection).
func (t *Table) Routes() []*Route {
	return t.routes
}
