package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/xkoj/pkg/wire"
)

func noopHandler(req *wire.Request, resp *wire.Response) error { return nil }

func TestCompileTemplateNamedParams(t *testing.T) {
	matcher, names := compileTemplate("/api/users/:id")
	assert.Equal(t, []string{"id"}, names)
	assert.True(t, matcher.MatchString("/api/users/123"))
	assert.False(t, matcher.MatchString("/api/users/123/extra"))
}

func TestCompileTemplateMultipleParams(t *testing.T) {
	_, names := compileTemplate("/api/:resource/:id")
	assert.Equal(t, []string{"resource", "id"}, names)
}

func TestCompileTemplateEscapesDot(t *testing.T) {
	matcher, _ := compileTemplate("/files/report.pdf")
	assert.True(t, matcher.MatchString("/files/report.pdf"))
	assert.False(t, matcher.MatchString("/files/reportXpdf"))
}

func TestCompileTemplateGlob(t *testing.T) {
	matcher, _ := compileTemplate("/static/*")
	assert.True(t, matcher.MatchString("/static/js/app.js"))
}

// Invariant 4: template matching binds params in declaration order.
func TestTableMatchBindsParamsInOrder(t *testing.T) {
	table := NewTable()
	table.Add(wire.MethodGET, "/api/users/:id", noopHandler)

	route, params, ok := table.Match(wire.MethodGET, "/api/users/123")
	require.True(t, ok)
	assert.Equal(t, "123", params["id"])
	assert.Equal(t, []string{"id"}, route.ParamNames)
}

func TestTableMatchRejectsWrongMethod(t *testing.T) {
	table := NewTable()
	table.Add(wire.MethodGET, "/x", noopHandler)

	_, _, ok := table.Match(wire.MethodPOST, "/x")
	assert.False(t, ok)
}

// First-registered match wins: no specificity ranking.
func TestTableFirstRegisteredWins(t *testing.T) {
	table := NewTable()
	table.Add(wire.MethodGET, "/api/:thing", noopHandler)
	table.Add(wire.MethodGET, "/api/special", noopHandler)

	route, _, ok := table.Match(wire.MethodGET, "/api/special")
	require.True(t, ok)
	assert.Equal(t, "/api/:thing", route.Template)
}
