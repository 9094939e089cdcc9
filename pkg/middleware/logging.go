package middleware

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/xkoj/pkg/wire"
)

// Logging returns the Logging middleware (spec.md §4.3): records client
// IP, method, path, query, version, and user-agent for every request.
// sink is the leveled logger built by internal/logger; accepting a
// *zap.SugaredLogger here keeps the middleware package decoupled from
// internal/logger's construction/config concerns while still using the
// domain-stack logging library directly (SPEC_FULL.md §1.1).
//
// Each request is stamped with a request ID (generated via
// github.com/google/uuid) that is both logged and echoed back as
// X-Request-Id, so a client-reported error can be correlated to a log
// line.
func Logging(sink *zap.SugaredLogger) Func {
	return func(req *wire.Request, resp *wire.Response) bool {
		requestID := uuid.NewString()
		resp.Header.Set("X-Request-Id", requestID)

		start := time.Now()
		sink.Infow("request",
			"request_id", requestID,
			"client_ip", req.ClientIP,
			"method", string(req.Method),
			"path", req.Path,
			"query", req.RawQuery,
			"proto", req.Proto,
			"user_agent", req.Header.Get("User-Agent"),
			"at", start.Format(time.RFC3339),
		)
		return true
	}
}
