// Package core assembles the wire codec, router, middleware chain, worker
// pool, reactor, and static responder into the single embeddable server
// facade (C6), spec.md §3-4.6.
//
// Grounded on bolt/core/app.go's registration API
// (Get/Post/Put/Delete/Patch/Head/Options/Use/Listen/Run/Shutdown) and its
// signal-driven graceful shutdown in Run, reworked around a handler
// signature of (*wire.Request, *wire.Response) error instead of bolt's
// pooled *Context, and around pkg/reactor instead of shockwave.Server.
package core

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/yourusername/xkoj/internal/logger"
	"github.com/yourusername/xkoj/pkg/middleware"
	"github.com/yourusername/xkoj/pkg/reactor"
	"github.com/yourusername/xkoj/pkg/router"
	"github.com/yourusername/xkoj/pkg/static"
	"github.com/yourusername/xkoj/pkg/wire"
	"github.com/yourusername/xkoj/pkg/workerpool"
)

// ErrorHandler renders status (panic recovery, an explicit handler error,
// or a routing/static miss) into resp. Registered per status code via
// RegisterErrorHandler, plus one default for any status without its own
// entry (spec.md §4.6 "error-handler registration per status code plus a
// default"), mirroring original_source/src/core/http_server.cpp's
// error_handlers_ map and default_error_handler_.
type ErrorHandler func(req *wire.Request, resp *wire.Response, status int, err error)

// DefaultErrorHandler builds the status-page handler spec.md §7 names for
// any status without a RegisterErrorHandler entry: an HTML page carrying
// the status number, reason phrase, and server name, grounded on
// http_server.cpp's default_error_handler_/send_error_response.
func DefaultErrorHandler(serverName string) ErrorHandler {
	return func(req *wire.Request, resp *wire.Response, status int, err error) {
		reason := wire.ReasonPhrase(status)
		resp.Status(status)
		resp.HTML(fmt.Sprintf(
			"<!DOCTYPE html><html><head><title>Error %d</title></head><body>"+
				"<h1>Error %d</h1><p>%s</p><hr><p>%s</p></body></html>",
			status, status, reason, serverName,
		))
	}
}

// Config bounds the facade's behavior; it is the runtime counterpart of
// internal/config.ServerConfig (kept separate so pkg/core has no
// dependency on file formats).
type Config struct {
	Host           string
	Port           int
	MaxConnections int
	WorkerPoolSize int
	IdleTimeout    time.Duration
	Limits         wire.Limits

	// ServerName is stamped onto every response's Server header and the
	// default error page (spec.md §6's server_name).
	ServerName string
	// EnableKeepAlive gates whether a connection is offered for reuse at
	// all; when false every response carries Connection: close
	// regardless of what the client sent (spec.md §4.5, §6
	// enable_keep_alive).
	EnableKeepAlive bool
	// KeepAliveTimeout is advertised in the Keep-Alive response header
	// when a connection is kept open (spec.md §6 keep_alive_timeout).
	KeepAliveTimeout time.Duration
	// EnableLogging gates whether cmd/xkoj wires up request logging
	// (spec.md §6 enable_logging); pkg/core itself does not consult it
	// directly since logging is a middleware concern.
	EnableLogging bool
}

// DefaultConfig mirrors internal/config.DefaultServerConfig's values.
func DefaultConfig() Config {
	return Config{
		Host:             "0.0.0.0",
		Port:             8080,
		MaxConnections:   1024,
		WorkerPoolSize:   0,
		IdleTimeout:      60 * time.Second,
		Limits:           wire.DefaultLimits(),
		ServerName:       "xkoj",
		EnableKeepAlive:  true,
		KeepAliveTimeout: 60 * time.Second,
		EnableLogging:    true,
	}
}

// App is the embeddable HTTP server: route table, middleware chain,
// static responder, and the reactor/worker-pool pair that drives them,
// wired together the way bolt/core.App wires router+contextPool+shockwave.
type App struct {
	cfg           Config
	serverName    string
	routes        *router.Table
	global        []middleware.Func
	static        *static.Responder
	errorHandlers map[int]ErrorHandler
	defaultError  ErrorHandler
	log           *logger.Logger

	reactor *reactor.Reactor
	pool    *workerpool.Pool
	stats   *reactor.Stats

	mu      sync.Mutex
	running bool
}

// New creates an App ready for route registration.
func New(cfg Config, log *logger.Logger) *App {
	serverName := cfg.ServerName
	if serverName == "" {
		serverName = "xkoj"
	}
	return &App{
		cfg:           cfg,
		serverName:    serverName,
		routes:        router.NewTable(),
		static:        static.New(64 << 20),
		errorHandlers: make(map[int]ErrorHandler),
		defaultError:  DefaultErrorHandler(serverName),
		log:           log,
		stats:         &reactor.Stats{},
	}
}

// Use registers global middleware, run in registration order ahead of any
// route-scoped middleware (spec.md §4.3).
func (a *App) Use(mw ...middleware.Func) {
	a.global = append(a.global, mw...)
}

// Mount registers a static file mount (spec.md §4.7).
func (a *App) Mount(prefix, root string) {
	a.static.Mount(prefix, root)
}

// SetErrorHandler overrides the default handler used for any status code
// without its own RegisterErrorHandler entry.
func (a *App) SetErrorHandler(h ErrorHandler) { a.defaultError = h }

// RegisterErrorHandler installs h for status, overriding the default
// handler for that code only (spec.md §4.6 "error-handler registration
// per status code plus a default"). Handlers are commonly registered for
// 404 and 500, but any status a handler or the static responder can set
// is eligible.
func (a *App) RegisterErrorHandler(status int, h ErrorHandler) {
	a.errorHandlers[status] = h
}

// Get, Post, Put, Delete, Patch, Head, and Options register a route for
// the corresponding method (spec.md §4.2), mirroring bolt/core/app.go's
// per-verb registration methods.
func (a *App) Get(path string, h router.Handler, scoped ...middleware.Func) *router.Route {
	return a.Route(wire.MethodGET, path, h, scoped...)
}
func (a *App) Post(path string, h router.Handler, scoped ...middleware.Func) *router.Route {
	return a.Route(wire.MethodPOST, path, h, scoped...)
}
func (a *App) Put(path string, h router.Handler, scoped ...middleware.Func) *router.Route {
	return a.Route(wire.MethodPUT, path, h, scoped...)
}
func (a *App) Delete(path string, h router.Handler, scoped ...middleware.Func) *router.Route {
	return a.Route(wire.MethodDELETE, path, h, scoped...)
}
func (a *App) Patch(path string, h router.Handler, scoped ...middleware.Func) *router.Route {
	return a.Route(wire.MethodPATCH, path, h, scoped...)
}
func (a *App) Head(path string, h router.Handler, scoped ...middleware.Func) *router.Route {
	return a.Route(wire.MethodHEAD, path, h, scoped...)
}
func (a *App) Options(path string, h router.Handler, scoped ...middleware.Func) *router.Route {
	return a.Route(wire.MethodOPTIONS, path, h, scoped...)
}

// Route registers a handler for an arbitrary method, the generic entry
// point the per-verb helpers above delegate to.
func (a *App) Route(method wire.Method, path string, h router.Handler, scoped ...middleware.Func) *router.Route {
	return a.routes.Add(method, path, h, scoped...)
}

// Start brings the facade up in the order spec.md §3's Lifecycle names:
// worker pool, then reactor (which in turn opens the listening socket and
// readiness notifier before spawning its own goroutines).
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return fmt.Errorf("core: already running")
	}

	a.pool = workerpool.New(a.cfg.WorkerPoolSize)
	a.reactor = reactor.New(reactor.Config{
		Host:           a.cfg.Host,
		Port:           a.cfg.Port,
		MaxConnections: a.cfg.MaxConnections,
		IdleTimeout:    a.cfg.IdleTimeout,
	}, a.pool, a.handleConnection, reactor.Callbacks{
		OnError: func(err error) {
			if a.log != nil {
				a.log.Warnw("reactor error", "error", err)
			}
		},
	}, a.stats)

	if err := a.reactor.Start(); err != nil {
		return fmt.Errorf("core: start reactor: %w", err)
	}
	a.running = true
	if a.log != nil {
		a.log.Infow("server started", "host", a.cfg.Host, "port", a.cfg.Port)
	}
	return nil
}

// Stop tears the facade down: reactor first (closing sockets and tracked
// connections), then the worker pool (draining in-flight tasks).
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	err := a.reactor.Stop()
	a.pool.Shutdown()
	a.running = false
	if a.log != nil {
		a.log.Infow("server stopped")
	}
	return err
}

// Run starts the server and blocks until SIGINT or SIGTERM, then performs
// a graceful Stop — spec.md §9's redesign note asks for this wired through
// an injected shutdown path rather than a global singleton reaching for a
// signal handler directly; App.Run owns that plumbing and Stop itself
// takes no context since the reactor's own shutdown is synchronous.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	<-sigCh
	if a.log != nil {
		a.log.Infow("shutdown signal received")
	}

	done := make(chan error, 1)
	go func() { done <- a.Stop() }()

	select {
	case err := <-done:
		return err
	case <-time.After(30 * time.Second):
		return fmt.Errorf("core: shutdown timed out")
	}
}

// Stats exposes the live connection counters (spec.md §3 ServerStats).
// Valid even before Start(): all fields simply read zero until the
// reactor begins accepting connections.
func (a *App) Stats() *reactor.Stats {
	return a.stats
}

// handleConnection services exactly one request/response exchange on c,
// implementing spec.md §4.5's "Servicing a connection" and §4.6's request
// pipeline (parse, match, middleware, handler, serialize, write). Before
// serialization, the Response is finalized with Server, Date, and
// keep-alive headers, and the exchange's byte/request counters are folded
// into the shared ServerStats (spec.md §3).
func (a *App) handleConnection(c *reactor.Connection) (keepAlive bool) {
	readBefore := c.BytesRead()
	req, err := wire.ParseRequest(c.Reader, a.cfg.Limits)
	a.stats.BytesRead.Add(uint64(c.BytesRead() - readBefore))
	if err != nil {
		a.writeCodecError(c, err)
		return false
	}
	defer wire.ReleaseRequest(req)
	req.ClientIP = c.ClientIP
	a.stats.TotalRequests.Add(1)

	resp := wire.AcquireResponse()
	defer wire.ReleaseResponse(resp)

	a.dispatch(req, resp)

	keepAlive = a.cfg.EnableKeepAlive &&
		req.Header.Get("Connection") != "close" &&
		resp.Header.Get("Connection") != "close"
	resp.FinalizeHeaders(a.serverName, keepAlive, int(a.cfg.KeepAliveTimeout/time.Second))

	buf := resp.Serialize()
	defer bytebufferpool.Put(buf)
	writeBefore := c.BytesWritten()
	if writeErr := reactor.WriteWithRetry(c, buf.B); writeErr != nil {
		a.stats.BytesWritten.Add(uint64(c.BytesWritten() - writeBefore))
		return false
	}
	a.stats.BytesWritten.Add(uint64(c.BytesWritten() - writeBefore))
	a.stats.TotalResponses.Add(1)

	return keepAlive
}

// dispatch runs the full middleware-then-handler-then-fallthrough pipeline
// for one request, resolving Open Question decision #2: the Response is
// reset to a clean state before each static/404 fallthrough attempt so
// that a half-written body from a failed match never leaks into the next.
func (a *App) dispatch(req *wire.Request, resp *wire.Response) {
	defer func() {
		if r := recover(); r != nil {
			a.runError(req, resp, 500, fmt.Errorf("panic: %v", r))
		}
	}()

	for _, mw := range a.global {
		if !mw(req, resp) {
			return
		}
	}

	route, params, ok := a.routes.Match(req.Method, req.Path)
	if ok {
		req.PathParams = params
		for _, mw := range route.ScopedMiddleware {
			if !mw(req, resp) {
				return
			}
		}
		if err := route.Handler(req, resp); err != nil {
			a.runError(req, resp, 500, err)
		}
		return
	}

	resetResponse(resp)
	if a.static.Serve(req, resp) {
		return
	}

	a.runError(req, resp, 404, nil)
}

// runError resets resp to a clean slate and renders status through the
// handler registered for it, falling back to the default handler when
// none was registered (spec.md §4.6).
func (a *App) runError(req *wire.Request, resp *wire.Response, status int, err error) {
	resetResponse(resp)
	h, ok := a.errorHandlers[status]
	if !ok {
		h = a.defaultError
	}
	h(req, resp, status, err)
}

func resetResponse(resp *wire.Response) {
	resp.StatusCode = 200
	resp.Body = resp.Body[:0]
	resp.Header = wire.NewHeader()
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	resp.Cookies = resp.Cookies[:0]
}

func (a *App) writeCodecError(c *reactor.Connection, err error) {
	resp := wire.AcquireResponse()
	defer wire.ReleaseResponse(resp)

	status := 400
	if ce, ok := err.(*wire.CodecError); ok {
		status = ce.Status()
	}
	resp.Status(status)
	resp.Text(err.Error())
	resp.FinalizeHeaders(a.serverName, false, 0)

	buf := resp.Serialize()
	defer bytebufferpool.Put(buf)
	_, _ = c.Write(buf.B)
}
