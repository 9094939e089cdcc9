package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderCaseInsensitivity(t *testing.T) {
	h := NewHeader()
	h.Add("Content-Type", "application/json")

	assert.Equal(t, "application/json", h.Get("content-type"))
	assert.Equal(t, "application/json", h.Get("CONTENT-TYPE"))
	assert.True(t, h.Has("Content-Type"))
	assert.True(t, h.Has("content-type"))
}

func TestHeaderMultiValueJoin(t *testing.T) {
	h := NewHeader()
	h.Add("X-Tag", "a")
	h.Add("X-Tag", "b")

	assert.Equal(t, "a, b", h.Get("X-Tag"))
	assert.Equal(t, []string{"a", "b"}, h.Values("x-tag"))
}

func TestHeaderSetReplaces(t *testing.T) {
	h := NewHeader()
	h.Add("X-Tag", "a")
	h.Set("X-Tag", "b")

	assert.Equal(t, "b", h.Get("X-Tag"))
}

func TestHeaderDel(t *testing.T) {
	h := NewHeader()
	h.Add("X-Tag", "a")
	h.Del("X-Tag")

	assert.False(t, h.Has("X-Tag"))
}

func TestCanonicalHeaderName(t *testing.T) {
	assert.Equal(t, "Content-Type", canonicalHeaderName("content-type"))
	assert.Equal(t, "X-Request-Id", canonicalHeaderName("x-request-id"))
}
