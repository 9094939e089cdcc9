package middleware

import "github.com/yourusername/xkoj/pkg/wire"

// Validator checks a bearer token's validity. Injected by the caller so
// the core never depends on a specific auth scheme (spec.md §1: "non-goal...
// authentication token verification beyond extracting the bearer
// credential").
type Validator func(token string) bool

// Auth returns the Auth middleware (spec.md §4.3): extracts the bearer
// credential, delegates validity to validate, and on failure writes 401
// with body {"error":"..."} and short-circuits.
func Auth(validate Validator) Func {
	return func(req *wire.Request, resp *wire.Response) bool {
		token, ok := req.BearerToken()
		if !ok || !validate(token) {
			resp.Status(401)
			_ = resp.JSON(map[string]string{"error": "unauthorized"})
			return false
		}
		return true
	}
}
