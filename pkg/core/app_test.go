package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/xkoj/pkg/middleware"
	"github.com/yourusername/xkoj/pkg/wire"
)

func newTestApp() *App {
	return New(DefaultConfig(), nil)
}

func TestDispatchMatchesRegisteredRoute(t *testing.T) {
	app := newTestApp()
	app.Get("/hello/:name", func(req *wire.Request, resp *wire.Response) error {
		resp.Text("hi " + req.PathParams["name"])
		return nil
	})

	req := wire.AcquireRequest()
	req.Method = wire.MethodGET
	req.Path = "/hello/world"
	resp := wire.AcquireResponse()

	app.dispatch(req, resp)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "hi world", string(resp.Body))
}

func TestDispatchFallsThroughToNotFound(t *testing.T) {
	app := newTestApp()

	req := wire.AcquireRequest()
	req.Method = wire.MethodGET
	req.Path = "/nowhere"
	resp := wire.AcquireResponse()

	app.dispatch(req, resp)

	assert.Equal(t, 404, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "404")
}

func TestRegisterErrorHandlerOverridesStatus(t *testing.T) {
	app := newTestApp()
	app.RegisterErrorHandler(404, func(req *wire.Request, resp *wire.Response, status int, err error) {
		resp.Status(status)
		resp.JSON(map[string]string{"error": "not found"})
	})

	req := wire.AcquireRequest()
	req.Method = wire.MethodGET
	req.Path = "/nowhere"
	resp := wire.AcquireResponse()

	app.dispatch(req, resp)

	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
}

func TestDispatchGlobalMiddlewareShortCircuits(t *testing.T) {
	app := newTestApp()
	app.Use(func(req *wire.Request, resp *wire.Response) bool {
		resp.Status(401).Text("nope")
		return false
	})
	app.Get("/secret", func(req *wire.Request, resp *wire.Response) error {
		resp.Text("should not run")
		return nil
	})

	req := wire.AcquireRequest()
	req.Method = wire.MethodGET
	req.Path = "/secret"
	resp := wire.AcquireResponse()

	app.dispatch(req, resp)

	assert.Equal(t, 401, resp.StatusCode)
	assert.Equal(t, "nope", string(resp.Body))
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	app := newTestApp()
	app.Get("/boom", func(req *wire.Request, resp *wire.Response) error {
		panic("kaboom")
	})

	req := wire.AcquireRequest()
	req.Method = wire.MethodGET
	req.Path = "/boom"
	resp := wire.AcquireResponse()

	require.NotPanics(t, func() { app.dispatch(req, resp) })
	assert.Equal(t, 500, resp.StatusCode)
}

func TestRouteScopedMiddlewareRuns(t *testing.T) {
	app := newTestApp()
	var ran bool
	scoped := middleware.Func(func(req *wire.Request, resp *wire.Response) bool {
		ran = true
		return true
	})
	app.Get("/scoped", func(req *wire.Request, resp *wire.Response) error {
		resp.Text("ok")
		return nil
	}, scoped)

	req := wire.AcquireRequest()
	req.Method = wire.MethodGET
	req.Path = "/scoped"
	resp := wire.AcquireResponse()

	app.dispatch(req, resp)

	assert.True(t, ran)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestAppStartStopLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	app := New(cfg, nil)

	require.NoError(t, app.Start())
	assert.Equal(t, int64(0), app.Stats().ActiveConnections.Load())
	require.NoError(t, app.Stop())
}

func TestAppStartTwiceFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	app := New(cfg, nil)

	require.NoError(t, app.Start())
	defer app.Stop()

	assert.Error(t, app.Start())
}

var _ = ErrorHandler(DefaultErrorHandler("xkoj"))
