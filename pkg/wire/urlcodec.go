package wire

import "strings"

// urlDecode hex-decodes percent-triples into single bytes. A malformed
// triple (not followed by two hex digits) passes through verbatim rather
// than failing, matching spec.md §4.1 "URL decoding". When plusAsSpace is
// true, '+' decodes to a literal space — true for query strings and
// urlencoded form bodies, false for the request path (spec.md §4.1).
func urlDecode(s string, plusAsSpace bool) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 2
		case c == '+' && plusAsSpace:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

// parseQueryString parses a raw query string (without the leading '?')
// into a map, last write wins for duplicate keys (spec.md §3).
func parseQueryString(raw string) map[string]string {
	out := make(map[string]string)
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		out[urlDecode(key, true)] = urlDecode(value, true)
	}
	return out
}

// parseURLEncodedForm decodes an application/x-www-form-urlencoded body
// the same way as a query string (spec.md §4.1 "Form decoding").
func parseURLEncodedForm(body string) map[string]string {
	return parseQueryString(body)
}
