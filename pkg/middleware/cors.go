// Package middleware implements the chain (C3) middlewares spec.md §4.3
// names: CORS, Auth, Logging, Rate limit. Each middleware is a function
// over (Request, Response) returning a bool: true continues the chain,
// false short-circuits it.
//
// Grounded on MiraiMindz-watt/bolt/middleware, adapted from bolt's
// next-handler-wrapping shape to the spec's direct (Request, Response)
// signature — this repository's Server facade (pkg/core) runs the chain
// itself rather than each middleware wrapping the next handler.
package middleware

import (
	"strconv"
	"strings"

	"github.com/yourusername/xkoj/pkg/wire"
)

// Func is the middleware signature spec.md §4.3 defines.
type Func func(req *wire.Request, resp *wire.Response) bool

// CORSConfig mirrors original_source/include/core/middleware.h's
// CorsConfig field set.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig matches the original's documented defaults.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
		AllowHeaders: []string{"*"},
		MaxAge:       3600,
	}
}

// CORS returns a middleware with the default configuration.
func CORS() Func {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig returns a CORS middleware (spec.md §4.3): it writes
// Access-Control-Allow-Origin/-Methods/-Headers/-Expose-Headers/-Credentials,
// and for OPTIONS short-circuits with 204 plus Access-Control-Max-Age.
func CORSWithConfig(config CORSConfig) Func {
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"*"}
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = []string{"*"}
	}
	if config.MaxAge == 0 {
		config.MaxAge = 3600
	}

	allowMethods := strings.Join(config.AllowMethods, ", ")
	allowHeaders := strings.Join(config.AllowHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	allowAllOrigins := false
	originSet := make(map[string]bool, len(config.AllowOrigins))
	for _, origin := range config.AllowOrigins {
		if origin == "*" {
			allowAllOrigins = true
			break
		}
		originSet[origin] = true
	}

	return func(req *wire.Request, resp *wire.Response) bool {
		origin := req.Header.Get("Origin")

		var allowOrigin string
		switch {
		case allowAllOrigins:
			allowOrigin = "*"
		case origin != "" && originSet[origin]:
			allowOrigin = origin
		}

		if allowOrigin != "" {
			resp.Header.Set("Access-Control-Allow-Origin", allowOrigin)
			if config.AllowCredentials {
				resp.Header.Set("Access-Control-Allow-Credentials", "true")
			}
			if len(config.ExposeHeaders) > 0 {
				resp.Header.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
		}

		if req.Method == wire.MethodOPTIONS {
			if allowOrigin != "" {
				resp.Header.Set("Access-Control-Allow-Methods", allowMethods)
				resp.Header.Set("Access-Control-Allow-Headers", allowHeaders)
				resp.Header.Set("Access-Control-Max-Age", maxAge)
			}
			resp.Status(204)
			return false
		}

		return true
	}
}
