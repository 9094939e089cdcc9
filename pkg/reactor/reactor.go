// Package reactor implements the connection reactor (C5): a non-blocking
// listening socket multiplexed with a readiness-based I/O notifier,
// handing accepted connections to a bounded worker pool, with a timeout
// sweeper that reaps idle connections (spec.md §4.5).
//
// Grounded on original_source/src/core/http_server.cpp's
// create_socket/bind_socket/listen_socket/setup_epoll/main_loop/
// accept_connection/handle_client_data/close_connection/cleanup_loop,
// translated from the pthread+epoll original into goroutines plus a
// pluggable notifier (epoll on Linux, kqueue on Darwin, poll(2)
// elsewhere).
package reactor

import (
	"errors"
	"net"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/sys/unix"

	"github.com/yourusername/xkoj/pkg/workerpool"
)

// Config bounds the reactor's behavior (spec.md §6).
type Config struct {
	Host           string
	Port           int
	MaxConnections int           // listen backlog and concurrent connection ceiling
	IdleTimeout    time.Duration // timeout_seconds
	SweepInterval  time.Duration // fixed at 30s by spec.md §4.5; overridable for tests
}

// Callbacks are the injected hooks spec.md §9 calls for in place of the
// original's virtual on_connection_accepted/on_connection_closed/on_error
// methods.
type Callbacks struct {
	OnConnectionAccepted func(c *Connection)
	OnConnectionClosed   func(c *Connection)
	OnError              func(err error)
}

// Stats are the reactor-owned counters feeding into the server-wide
// ServerStats (spec.md §3: "total requests, total responses, active
// connections, bytes sent, bytes received"). TotalConnections/
// ActiveConnections are connection-level (tracked here, at accept/close);
// TotalRequests/TotalResponses are request-level and are incremented by
// the server facade once per exchange, since one keep-alive connection
// carries many requests.
type Stats struct {
	ActiveConnections atomic.Int64
	TotalConnections  atomic.Uint64
	TotalRequests     atomic.Uint64
	TotalResponses    atomic.Uint64
	BytesRead         atomic.Uint64
	BytesWritten      atomic.Uint64
}

// Handler services one ready connection: it is expected to read exactly
// one request's worth of bytes, run it through the codec/middleware/
// router pipeline, write the response, and report whether the connection
// should remain open for another exchange.
type Handler func(c *Connection) (keepAlive bool)

// Reactor owns the listening socket, the readiness notifier, the
// connection table, and the sweeper goroutine.
type Reactor struct {
	cfg       Config
	callbacks Callbacks
	handler   Handler
	pool      *workerpool.Pool
	stats     *Stats

	listenFD int
	note     notifier
	table    *table

	stopCh chan struct{}
	doneCh chan struct{}
}

// New wires a Reactor to the given worker pool and request handler. stats
// may be nil, in which case the Reactor allocates its own; passing a
// caller-owned *Stats lets the server facade expose counters before
// Start() has run. Start() performs the actual socket/notifier setup.
func New(cfg Config, pool *workerpool.Pool, handler Handler, callbacks Callbacks, stats *Stats) *Reactor {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Reactor{
		cfg:       cfg,
		callbacks: callbacks,
		handler:   handler,
		pool:      pool,
		stats:     stats,
		table:     newTable(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start opens the listening socket, then the readiness notifier, then
// spawns the reactor and sweeper goroutines. The worker pool passed to New
// already exists by the time Start runs.
func (r *Reactor) Start() error {
	fd, err := createListenSocket(r.cfg.Host, r.cfg.Port, r.cfg.MaxConnections)
	if err != nil {
		return err
	}
	r.listenFD = fd

	note, err := newNotifier()
	if err != nil {
		unix.Close(fd)
		return err
	}
	r.note = note
	if err := r.note.AddRead(fd); err != nil {
		return err
	}

	go r.mainLoop()
	go r.sweepLoop()
	return nil
}

// Stop closes the listening socket and notifier, signals the loops to
// exit, and closes every tracked connection (spec.md §3 Lifecycle).
func (r *Reactor) Stop() error {
	close(r.stopCh)
	<-r.doneCh

	for _, c := range r.table.snapshot() {
		r.closeConnection(c)
	}
	r.note.Close()
	return unix.Close(r.listenFD)
}

// Stats returns the reactor's live counters.
func (r *Reactor) Stats() *Stats { return r.stats }

// ConnectionCount returns the number of tracked connections.
func (r *Reactor) ConnectionCount() int { return r.table.len() }

func (r *Reactor) mainLoop() {
	defer close(r.doneCh)
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		events, err := r.note.Wait(1000)
		if err != nil {
			if r.callbacks.OnError != nil {
				r.callbacks.OnError(err)
			}
			continue
		}

		for _, ev := range events {
			switch {
			case ev.FD == r.listenFD:
				r.acceptLoop()
			case ev.Error:
				if c, ok := r.table.get(ev.FD); ok {
					r.closeConnection(c)
				}
			case ev.Readable:
				if c, ok := r.table.get(ev.FD); ok {
					c.Touch()
					r.dispatch(c)
				}
			}
		}
	}
}

// acceptLoop accepts until EAGAIN/EWOULDBLOCK, matching spec.md §4.5:
// "accept in a loop until it returns EAGAIN/EWOULDBLOCK".
func (r *Reactor) acceptLoop() {
	for {
		nfd, sa, err := unix.Accept(r.listenFD)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			if r.callbacks.OnError != nil {
				r.callbacks.OnError(err)
			}
			return
		}

		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}

		// net.FileConn duplicates the descriptor, so closing file releases
		// nfd; the notifier and table track the duplicate that fc owns.
		file := os.NewFile(uintptr(nfd), "conn")
		fc, err := net.FileConn(file)
		file.Close()
		if err != nil {
			continue
		}
		connFD := -1
		if sc, ok := fc.(syscall.Conn); ok {
			if raw, rerr := sc.SyscallConn(); rerr == nil {
				_ = raw.Control(func(fd uintptr) { connFD = int(fd) })
			}
		}
		if connFD < 0 {
			fc.Close()
			continue
		}

		clientIP := clientIPFromSockaddr(sa)
		c := newConnection(connFD, clientIP, fc)
		c.KeepAlive = true

		if err := r.note.AddRead(connFD); err != nil {
			c.Close()
			continue
		}
		r.table.insert(c)
		r.stats.ActiveConnections.Add(1)
		r.stats.TotalConnections.Add(1)
		if r.callbacks.OnConnectionAccepted != nil {
			r.callbacks.OnConnectionAccepted(c)
		}
	}
}

func clientIPFromSockaddr(sa unix.Sockaddr) string {
	if v4, ok := sa.(*unix.SockaddrInet4); ok {
		ip := v4.Addr
		return itoa(int(ip[0])) + "." + itoa(int(ip[1])) + "." + itoa(int(ip[2])) + "." + itoa(int(ip[3]))
	}
	return ""
}

// dispatch enqueues a worker task that services one request on c,
// matching spec.md §4.5 "Servicing a connection".
func (r *Reactor) dispatch(c *Connection) {
	r.pool.Enqueue(func() {
		keepAlive := r.handler(c)
		if !keepAlive {
			r.closeConnection(c)
		}
	})
}

// WriteWithRetry retries a write that failed with EAGAIN (up to three
// attempts in all); any other error is returned at once, and the server
// facade then closes the connection. Used by the server facade when
// flushing a serialized Response.
func WriteWithRetry(c *Connection, data []byte) error {
	return retry.Do(
		func() error {
			_, err := c.Write(data)
			return err
		},
		retry.Attempts(3),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, unix.EAGAIN) }),
	)
}

func (r *Reactor) closeConnection(c *Connection) {
	r.table.remove(c.FD)
	r.note.Remove(c.FD)
	c.Close()
	r.stats.ActiveConnections.Add(-1)
	if r.callbacks.OnConnectionClosed != nil {
		r.callbacks.OnConnectionClosed(c)
	}
}

// sweepLoop wakes every SweepInterval and closes connections idle longer
// than IdleTimeout (spec.md §4.5 "Sweeper", §8 invariant 7).
func (r *Reactor) sweepLoop() {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			for _, c := range r.table.snapshot() {
				if c.IdleFor() > r.cfg.IdleTimeout {
					r.closeConnection(c)
				}
			}
		}
	}
}
