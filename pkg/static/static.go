// Package static implements the static file responder (C7): a
// URL-prefix → filesystem-root mapping with traversal protection,
// directory index fallback, and MIME-type mapping (spec.md §4.7, §6).
//
// Grounded on original_source/src/core/http_server.cpp's
// handle_static_file/is_valid_path/get_mime_type, enriched per
// SPEC_FULL.md §1.2 with an in-memory file cache and a MIME-sniff
// fallback for unmapped extensions (both named dependencies in the
// teacher's sibling example aofei-air's coffer.go/response.go).
package static

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/aofei/mimesniffer"

	"github.com/yourusername/xkoj/pkg/wire"
)

// Mount is one URL-prefix → filesystem-root registration.
type Mount struct {
	Prefix string
	Root   string
}

// Responder holds the ordered mount table and the in-memory file cache.
type Responder struct {
	mounts []Mount
	cache  *fastcache.Cache
}

// New returns a Responder backed by an in-memory cache of maxCacheBytes.
func New(maxCacheBytes int) *Responder {
	return &Responder{cache: fastcache.New(maxCacheBytes)}
}

// Mount registers a URL-prefix → filesystem-root mapping. Registration
// order matters: iteration tries prefixes in the order they were
// registered (spec.md §4.7 "the first prefix that is a prefix of the
// request path selects a mount").
func (r *Responder) Mount(prefix, root string) {
	r.mounts = append(r.mounts, Mount{Prefix: prefix, Root: root})
}

// mimeTypes is the extension → Content-Type table spec.md §6 enumerates.
var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".xml":  "application/xml; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
}

func mimeType(path string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := mimeTypes[ext]; ok {
		return ct
	}
	if sniffed := mimesniffer.Sniff(content); sniffed != "" {
		return sniffed
	}
	return "application/octet-stream"
}

// isTraversal reports whether path, once cleaned, escapes its root —
// spec.md §4.7/§8 invariant 8: reject any path containing ".." without
// touching the filesystem.
func isTraversal(requestTail string) bool {
	cleaned := filepath.Clean("/" + requestTail)
	return strings.Contains(requestTail, "..") || !strings.HasPrefix(cleaned, "/") || strings.Contains(cleaned, "..")
}

// Serve attempts to satisfy req from the mount table. ok is false when no
// mount's prefix matched the request path at all, signalling the caller
// to fall through to a 404 handler (spec.md §4.6).
func (r *Responder) Serve(req *wire.Request, resp *wire.Response) (ok bool) {
	if req.Method != wire.MethodGET && req.Method != wire.MethodHEAD {
		return false
	}

	for _, mount := range r.mounts {
		if !strings.HasPrefix(req.Path, mount.Prefix) {
			continue
		}
		tail := strings.TrimPrefix(req.Path, mount.Prefix)

		if isTraversal(tail) {
			resp.Status(403).Text("Forbidden")
			return true
		}

		candidate := filepath.Join(mount.Root, filepath.Clean("/"+tail))
		r.serveFile(candidate, resp)
		return true
	}
	return false
}

func (r *Responder) serveFile(path string, resp *wire.Response) {
	info, err := os.Stat(path)
	if err != nil {
		resp.Status(404).Text("Not Found")
		return
	}
	if info.IsDir() {
		path = filepath.Join(path, "index.html")
		info, err = os.Stat(path)
		if err != nil {
			resp.Status(404).Text("Not Found")
			return
		}
	}

	content, ok := r.readCached(path)
	if !ok {
		resp.Status(500).Text("Internal Server Error")
		return
	}

	resp.Header.Set("Content-Type", mimeType(path, content))
	resp.SetLastModified(info.ModTime())
	resp.SetBody(content)
	resp.SetETag()
	resp.Status(200)
}

func (r *Responder) readCached(path string) ([]byte, bool) {
	if cached := r.cache.Get(nil, []byte(path)); len(cached) > 0 {
		return cached, true
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	r.cache.Set([]byte(path), content)
	return content, true
}
