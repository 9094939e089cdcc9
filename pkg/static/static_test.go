package static

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/xkoj/pkg/wire"
)

func newStaticReq(method wire.Method, path string) *wire.Request {
	req := wire.AcquireRequest()
	req.Method = method
	req.Path = path
	req.Header = wire.NewHeader()
	return req
}

func TestServeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	r := New(1 << 20)
	r.Mount("/static", dir)

	req := newStaticReq(wire.MethodGET, "/static/a.txt")
	resp := wire.AcquireResponse()

	ok := r.Serve(req, resp)
	require.True(t, ok)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "hello", string(resp.Body))
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
}

func TestServeDirectoryIndexFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644))

	r := New(1 << 20)
	r.Mount("/", dir)

	req := newStaticReq(wire.MethodGET, "/")
	resp := wire.AcquireResponse()

	ok := r.Serve(req, resp)
	require.True(t, ok)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "<h1>hi</h1>")
}

func TestServeMissingFile(t *testing.T) {
	dir := t.TempDir()
	r := New(1 << 20)
	r.Mount("/static", dir)

	req := newStaticReq(wire.MethodGET, "/static/missing.txt")
	resp := wire.AcquireResponse()

	ok := r.Serve(req, resp)
	require.True(t, ok)
	assert.Equal(t, 404, resp.StatusCode)
}

// S5 and invariant 8: traversal is rejected without touching the filesystem.
func TestServeTraversalRejectedS5(t *testing.T) {
	dir := t.TempDir()
	r := New(1 << 20)
	r.Mount("/static", dir)

	req := newStaticReq(wire.MethodGET, "/static/../etc/passwd")
	resp := wire.AcquireResponse()

	ok := r.Serve(req, resp)
	require.True(t, ok)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestServeNoMountMatch(t *testing.T) {
	r := New(1 << 20)
	req := newStaticReq(wire.MethodGET, "/nope")
	resp := wire.AcquireResponse()

	ok := r.Serve(req, resp)
	assert.False(t, ok)
}
