package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTCPAddr(t *testing.T) {
	require.True(t, isTCPAddr("127.0.0.1:8080"))
	require.True(t, isTCPAddr("[::]:8080"))
	require.False(t, isTCPAddr("/var/run/aurae/aurae.sock"))
	require.False(t, isTCPAddr(""))
}

func TestSplitHostSocket(t *testing.T) {
	require.True(t, SplitHostSocket(" [::]:8080 "))
	require.False(t, SplitHostSocket("/var/run/aurae/aurae.sock"))
}

func TestBaseURL(t *testing.T) {
	require.Equal(t, "https://127.0.0.1:8080", BaseURL(Config{System: "127.0.0.1:8080"}))
	require.Equal(t, "http://127.0.0.1:8080", BaseURL(Config{System: "127.0.0.1:8080", InsecureNoTLS: true}))
	require.Equal(t, "https://unix.socket", BaseURL(Config{System: "/var/run/aurae/aurae.sock"}))
}

func TestNewClient_InsecureUnix(t *testing.T) {
	c, err := NewClient(Config{System: "/var/run/aurae/aurae.sock", InsecureNoTLS: true})
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestNewClient_TLSMissingMaterial(t *testing.T) {
	_, err := NewClient(Config{
		System:     "/var/run/aurae/aurae.sock",
		ClientCert: "/nonexistent/client.crt",
		ClientKey:  "/nonexistent/client.key",
		CACrt:      "/nonexistent/ca.crt",
	})
	require.Error(t, err)
}
