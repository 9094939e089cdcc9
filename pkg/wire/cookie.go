package wire

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cookie mirrors original_source/include/core/http_response.h's Cookie
// struct field-for-field (spec.md §3).
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	MaxAge   int // seconds; -1 means "omit the attribute"
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
	SameSite string // "Lax" (default), "Strict", or "None"
}

// NewCookie returns a Cookie with the original's documented defaults:
// Path "/", MaxAge -1 (session cookie), HttpOnly true, SameSite "Lax".
func NewCookie(name, value string) Cookie {
	return Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: "Lax",
	}
}

// parseCookieHeader parses the single Cookie request header: split on ';',
// then each element on the first '=', both sides trimmed, last write wins
// (spec.md §4.1 "Cookie parsing").
func parseCookieHeader(raw string) map[string]string {
	out := make(map[string]string)
	if raw == "" {
		return out
	}
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !ok {
			out[name] = ""
			continue
		}
		out[name] = strings.TrimSpace(value)
	}
	return out
}

// serialize renders c as a single Set-Cookie header value, per spec.md
// §4.1 "Response serialization": name, value, optional Domain, optional
// Path, optional Max-Age, flags Secure/HttpOnly, and SameSite=<value>.
func (c Cookie) serialize() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", c.Name, c.Value)
	if c.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", c.Domain)
	}
	if c.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", c.Path)
	}
	if c.MaxAge >= 0 {
		fmt.Fprintf(&b, "; Max-Age=%s", strconv.Itoa(c.MaxAge))
	}
	if !c.Expires.IsZero() {
		fmt.Fprintf(&b, "; Expires=%s", c.Expires.UTC().Format(rfc1123GMT))
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if c.SameSite != "" {
		fmt.Fprintf(&b, "; SameSite=%s", c.SameSite)
	}
	return b.String()
}
