package wire

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/valyala/bytebufferpool"
	"github.com/vmihailenco/msgpack/v5"
)

const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

// Response is the mutable builder a handler fills in, per spec.md §3.
type Response struct {
	StatusCode int
	Header     *Header
	Body       []byte
	Cookies    []Cookie
}

var responsePool = sync.Pool{
	New: func() any { return &Response{} },
}

// AcquireResponse returns a pooled Response defaulted per spec.md §3:
// status 200, Content-Type "text/html; charset=utf-8".
func AcquireResponse() *Response {
	resp := responsePool.Get().(*Response)
	resp.StatusCode = 200
	resp.Header = NewHeader()
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	resp.Body = nil
	resp.Cookies = nil
	return resp
}

// ReleaseResponse returns resp to the pool.
func ReleaseResponse(resp *Response) {
	*resp = Response{}
	responsePool.Put(resp)
}

// SetBody replaces the body and re-synchronizes Content-Length, per
// spec.md §4.1 "Content-Length invariant".
func (r *Response) SetBody(body []byte) {
	r.Body = body
	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
}

// AppendBody appends to the body and re-synchronizes Content-Length.
func (r *Response) AppendBody(chunk []byte) {
	r.Body = append(r.Body, chunk...)
	r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
}

// Status sets the status code and returns r for chaining.
func (r *Response) Status(code int) *Response {
	r.StatusCode = code
	return r
}

// Text sets the body as text/plain.
func (r *Response) Text(body string) *Response {
	r.Header.Set("Content-Type", "text/plain; charset=utf-8")
	r.SetBody([]byte(body))
	return r
}

// HTML sets the body as text/html.
func (r *Response) HTML(body string) *Response {
	r.Header.Set("Content-Type", "text/html; charset=utf-8")
	r.SetBody([]byte(body))
	return r
}

// XML sets the body as application/xml.
func (r *Response) XML(body string) *Response {
	r.Header.Set("Content-Type", "application/xml; charset=utf-8")
	r.SetBody([]byte(body))
	return r
}

// CSS sets the body as text/css.
func (r *Response) CSS(body string) *Response {
	r.Header.Set("Content-Type", "text/css; charset=utf-8")
	r.SetBody([]byte(body))
	return r
}

// JavaScript sets the body as application/javascript.
func (r *Response) JavaScript(body string) *Response {
	r.Header.Set("Content-Type", "application/javascript; charset=utf-8")
	r.SetBody([]byte(body))
	return r
}

// JSON marshals v with goccy/go-json and sets Content-Type accordingly.
func (r *Response) JSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.SetBody(data)
	return nil
}

// MsgPack marshals v with vmihailenco/msgpack for clients that negotiated
// a binary encoding (domain-stack addition, SPEC_FULL.md §1.2).
func (r *Response) MsgPack(v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/msgpack")
	r.SetBody(data)
	return nil
}

// Redirect writes a Location header and the given redirect status code.
func (r *Response) Redirect(url string, code int) *Response {
	r.Header.Set("Location", url)
	r.StatusCode = code
	return r
}

// RedirectPermanent is a 301 redirect.
func (r *Response) RedirectPermanent(url string) *Response { return r.Redirect(url, 301) }

// RedirectTemporary is a 302 redirect.
func (r *Response) RedirectTemporary(url string) *Response { return r.Redirect(url, 302) }

// SetCacheControl sets the Cache-Control header verbatim.
func (r *Response) SetCacheControl(directive string) *Response {
	r.Header.Set("Cache-Control", directive)
	return r
}

// SetETag computes a content hash of the current body with xxhash and
// sets it as a weak-free ETag, mirroring http_response.h's set_etag plus
// the static-file-cache grounding named in SPEC_FULL.md §1.2.
func (r *Response) SetETag() *Response {
	sum := xxhash.Sum64(r.Body)
	r.Header.Set("ETag", `"`+strconv.FormatUint(sum, 16)+`"`)
	return r
}

// SetLastModified sets Last-Modified from t.
func (r *Response) SetLastModified(t time.Time) *Response {
	r.Header.Set("Last-Modified", t.UTC().Format(rfc1123GMT))
	return r
}

// NoCache sets headers that disable caching entirely.
func (r *Response) NoCache() *Response {
	r.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	r.Header.Set("Pragma", "no-cache")
	return r
}

// CacheForever sets a one-year max-age, immutable Cache-Control.
func (r *Response) CacheForever() *Response {
	r.Header.Set("Cache-Control", "public, max-age=31536000, immutable")
	return r
}

// SetCookie appends a cookie to the ordered response cookie list
// (spec.md §3: "ordered sequence of cookies").
func (r *Response) SetCookie(c Cookie) *Response {
	r.Cookies = append(r.Cookies, c)
	return r
}

// FinalizeHeaders stamps the default response headers spec.md §4.5
// "Servicing a connection" and §6 name for every response: Server, Date
// (RFC 1123 GMT), and the Connection/Keep-Alive pair. keepAlive is the
// already-resolved decision (server config permits it and the client did
// not send Connection: close); keepAliveTimeoutSeconds is only used when
// keepAlive is true, mirroring http_server.cpp's handle_request:
// set_header("Keep-Alive", "timeout=" + keep_alive_timeout).
func (r *Response) FinalizeHeaders(serverName string, keepAlive bool, keepAliveTimeoutSeconds int) {
	r.Header.Set("Server", serverName)
	r.Header.Set("Date", time.Now().UTC().Format(rfc1123GMT))
	if keepAlive {
		r.Header.Set("Connection", "keep-alive")
		r.Header.Set("Keep-Alive", "timeout="+strconv.Itoa(keepAliveTimeoutSeconds))
	} else {
		r.Header.Set("Connection", "close")
	}
}

// Serialize renders the full status line, headers, Set-Cookie lines, and
// body into a pooled buffer (spec.md §4.1 "Response serialization"). The
// caller must return buf to bytebufferpool via bytebufferpool.Put once the
// bytes have been written to the connection.
func (r *Response) Serialize() *bytebufferpool.ByteBuffer {
	buf := bytebufferpool.Get()

	reason := ReasonPhrase(r.StatusCode)
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(r.StatusCode))
	buf.WriteByte(' ')
	buf.WriteString(reason)
	buf.WriteString("\r\n")

	r.Header.VisitAll(func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	})
	for _, c := range r.Cookies {
		buf.WriteString("Set-Cookie: ")
		buf.WriteString(c.serialize())
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf
}
