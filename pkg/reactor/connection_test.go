package reactor

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loopbackPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	clientCh := make(chan net.Conn, 1)
	go func() {
		c, _ := net.Dial("tcp", ln.Addr().String())
		clientCh <- c
	}()

	server, err := ln.Accept()
	require.NoError(t, err)
	client := <-clientCh
	return server, client
}

func TestConnectionTouchUpdatesIdleFor(t *testing.T) {
	server, client := loopbackPair(t)
	defer client.Close()

	c := newConnection(1, "127.0.0.1", server)
	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, c.IdleFor(), time.Duration(0))

	c.Touch()
	assert.Less(t, c.IdleFor(), 5*time.Millisecond)
}

func TestConnectionTracksBytesReadAndWritten(t *testing.T) {
	server, client := loopbackPair(t)
	defer client.Close()
	defer server.Close()

	c := newConnection(1, "127.0.0.1", server)
	assert.Equal(t, int64(0), c.BytesRead())
	assert.Equal(t, int64(0), c.BytesWritten())

	_, err := client.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	n, err := c.Reader.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(5), c.BytesRead())

	n, err = c.Write([]byte("world!"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, int64(6), c.BytesWritten())
}

func TestTableInsertRemoveSnapshot(t *testing.T) {
	server, client := loopbackPair(t)
	defer client.Close()
	defer server.Close()

	tbl := newTable()
	c := newConnection(42, "10.0.0.1", server)
	tbl.insert(c)

	got, ok := tbl.get(42)
	require.True(t, ok)
	assert.Equal(t, c, got)
	assert.Equal(t, 1, tbl.len())
	assert.Len(t, tbl.snapshot(), 1)

	tbl.remove(42)
	_, ok = tbl.get(42)
	assert.False(t, ok)
}
