package judge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/xkoj/pkg/wire"
)

func TestHandleProblemsListsAll(t *testing.T) {
	app := New([]byte("test-secret"))
	req := wire.AcquireRequest()
	resp := wire.AcquireResponse()

	require.NoError(t, app.handleProblems(req, resp))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "Hello World")
}

func TestHandleProblemByID(t *testing.T) {
	app := New([]byte("test-secret"))
	req := wire.AcquireRequest()
	req.PathParams = map[string]string{"id": "2"}
	resp := wire.AcquireResponse()

	require.NoError(t, app.handleProblem(req, resp))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "A+B Problem")
}

func TestHandleProblemMissing(t *testing.T) {
	app := New([]byte("test-secret"))
	req := wire.AcquireRequest()
	req.PathParams = map[string]string{"id": "999"}
	resp := wire.AcquireResponse()

	require.NoError(t, app.handleProblem(req, resp))
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRegisterThenLoginThenValidate(t *testing.T) {
	app := New([]byte("test-secret"))

	body := "username=alice&password=hunter2"
	req := wire.AcquireRequest()
	req.Method = wire.MethodPOST
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Body = []byte(body)
	resp := wire.AcquireResponse()

	require.NoError(t, app.handleRegister(req, resp))
	assert.Equal(t, 200, resp.StatusCode)

	loginReq := wire.AcquireRequest()
	loginReq.Method = wire.MethodPOST
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	loginReq.Body = []byte(body)
	loginResp := wire.AcquireResponse()

	require.NoError(t, app.handleLogin(loginReq, loginResp))
	assert.Equal(t, 200, loginResp.StatusCode)
	assert.Contains(t, string(loginResp.Body), "token")

	var out map[string]string
	require.NoError(t, json.Unmarshal(loginResp.Body, &out))
	assert.True(t, app.ValidateToken(out["token"]))
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	app := New([]byte("test-secret"))

	mkReq := func() *wire.Request {
		req := wire.AcquireRequest()
		req.Method = wire.MethodPOST
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Body = []byte("username=bob&password=secret")
		return req
	}

	require.NoError(t, app.handleRegister(mkReq(), wire.AcquireResponse()))

	resp := wire.AcquireResponse()
	require.NoError(t, app.handleRegister(mkReq(), resp))
	assert.Equal(t, 409, resp.StatusCode)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	app := New([]byte("test-secret"))

	regReq := wire.AcquireRequest()
	regReq.Method = wire.MethodPOST
	regReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	regReq.Body = []byte("username=carol&password=right")
	require.NoError(t, app.handleRegister(regReq, wire.AcquireResponse()))

	loginReq := wire.AcquireRequest()
	loginReq.Method = wire.MethodPOST
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	loginReq.Body = []byte("username=carol&password=wrong")
	loginResp := wire.AcquireResponse()

	require.NoError(t, app.handleLogin(loginReq, loginResp))
	assert.Equal(t, 401, loginResp.StatusCode)
}
