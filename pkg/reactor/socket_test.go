package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPv4(t *testing.T) {
	ip, err := parseIPv4("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{127, 0, 0, 1}, ip)
}

func TestParseIPv4Rejects(t *testing.T) {
	_, err := parseIPv4("not-an-ip")
	assert.Error(t, err)

	_, err = parseIPv4("999.0.0.1")
	assert.Error(t, err)

	_, err = parseIPv4("1.2.3")
	assert.Error(t, err)
}

func TestResolveBindAddrAnyInterface(t *testing.T) {
	for _, host := range []string{"", "0.0.0.0", "*"} {
		_, err := resolveBindAddr(host, 8080)
		assert.NoError(t, err)
	}
}
