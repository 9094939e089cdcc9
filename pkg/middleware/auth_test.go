package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/xkoj/pkg/wire"
)

func TestAuthAllowsValidToken(t *testing.T) {
	mw := Auth(func(token string) bool { return token == "good" })
	req := newReq(wire.MethodGET, map[string]string{"Authorization": "Bearer good"})
	resp := wire.AcquireResponse()

	assert.True(t, mw(req, resp))
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	mw := Auth(func(token string) bool { return token == "good" })
	req := newReq(wire.MethodGET, map[string]string{"Authorization": "Bearer bad"})
	resp := wire.AcquireResponse()

	assert.False(t, mw(req, resp))
	assert.Equal(t, 401, resp.StatusCode)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	mw := Auth(func(token string) bool { return true })
	req := newReq(wire.MethodGET, nil)
	resp := wire.AcquireResponse()

	assert.False(t, mw(req, resp))
}
