package reactor

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Connection mirrors spec.md §3's Connection data model:
// "{fd, client_ip, last_activity_timestamp, keep_alive_flag, read_buffer,
// bytes_read_so_far}". Created on accept, mutated only on I/O or
// activity-stamp update, destroyed on close.
type Connection struct {
	FD             int
	ClientIP       string
	lastActivity   atomic.Int64 // unix nanos
	KeepAlive      bool
	BytesReadSoFar atomic.Int64
	bytesWritten   atomic.Int64

	conn   net.Conn
	Reader *bufio.Reader
}

func newConnection(fd int, clientIP string, conn net.Conn) *Connection {
	c := &Connection{
		FD:        fd,
		ClientIP:  clientIP,
		KeepAlive: true,
		conn:      conn,
	}
	c.Reader = bufio.NewReader(readerFunc(c.countedRead))
	c.Touch()
	return c
}

// readerFunc adapts a read closure to io.Reader so Connection itself can
// observe every byte the bufio.Reader pulls off the wire.
type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func (c *Connection) countedRead(p []byte) (int, error) {
	n, err := c.conn.Read(p)
	if n > 0 {
		c.BytesReadSoFar.Add(int64(n))
	}
	return n, err
}

// BytesRead returns the cumulative bytes read off the wire for this
// connection (spec.md §3's "bytes_read_so_far").
func (c *Connection) BytesRead() int64 { return c.BytesReadSoFar.Load() }

// BytesWritten returns the cumulative bytes written to the wire for this
// connection.
func (c *Connection) BytesWritten() int64 { return c.bytesWritten.Load() }

// Touch refreshes the activity timestamp. The reactor calls it when the
// connection is accepted and on each readiness event.
func (c *Connection) Touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// IdleFor returns how long it has been since the last activity stamp.
func (c *Connection) IdleFor() time.Duration {
	return time.Since(time.Unix(0, c.lastActivity.Load()))
}

// Write sends data to the peer in a single write call and counts the
// bytes written. It does not retry; WriteWithRetry in reactor.go wraps it
// with the retry-go policy for EAGAIN.
func (c *Connection) Write(p []byte) (int, error) {
	n, err := c.conn.Write(p)
	if n > 0 {
		c.bytesWritten.Add(int64(n))
	}
	return n, err
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

// table is the mutex-guarded connection set: every insertion, erasure,
// and lookup holds its one mutex. Activity timestamps live on each
// Connection as an atomic value and are updated without this lock.
type table struct {
	mu    sync.Mutex
	conns map[int]*Connection
}

func newTable() *table {
	return &table{conns: make(map[int]*Connection)}
}

func (t *table) insert(c *Connection) {
	t.mu.Lock()
	t.conns[c.FD] = c
	t.mu.Unlock()
}

func (t *table) remove(fd int) {
	t.mu.Lock()
	delete(t.conns, fd)
	t.mu.Unlock()
}

func (t *table) get(fd int) (*Connection, bool) {
	t.mu.Lock()
	c, ok := t.conns[fd]
	t.mu.Unlock()
	return c, ok
}

// snapshot returns every tracked connection under the lock, then releases
// it — the sweeper must not hold the table lock while closing sockets
// (spec.md §4.5 "Sweeper": "snapshots the connection table, and closes
// any connection... ").
func (t *table) snapshot() []*Connection {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Connection, 0, len(t.conns))
	for _, c := range t.conns {
		out = append(out, c)
	}
	return out
}

func (t *table) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}
