package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListen_DefaultUnixSocket(t *testing.T) {
	runtimeDir := t.TempDir()

	l, err := Listen(runtimeDir, "")
	require.NoError(t, err)
	defer l.Close()

	info, err := os.Stat(filepath.Join(runtimeDir, "aurae.sock"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultSocketMode), info.Mode().Perm())
}

func TestListen_ExplicitUnixPath(t *testing.T) {
	runtimeDir := t.TempDir()
	path := filepath.Join(runtimeDir, "custom.sock")

	l, err := Listen(runtimeDir, path)
	require.NoError(t, err)
	defer l.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestListen_TCPAddr(t *testing.T) {
	l, err := Listen(t.TempDir(), "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	require.Equal(t, "tcp", l.Addr().Network())
}

func TestListen_RemovesStaleSocket(t *testing.T) {
	runtimeDir := t.TempDir()
	path := filepath.Join(runtimeDir, "aurae.sock")

	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	l, err := Listen(runtimeDir, "")
	require.NoError(t, err)
	defer l.Close()
}
