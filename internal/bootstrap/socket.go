// Package bootstrap implements the socket bootstrap and PID-1 bring-up:
// selecting a Unix or TCP listener for the control API, and, when
// running as PID 1, mounting the initial filesystem layout and
// bringing up loopback networking before anything else can run.
package bootstrap

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/aurae-runtime/auraed/internal/transport"
)

// DefaultSocketMode is the mode the primary Unix socket is created
// with: user rwx, group rw, other rw.
const DefaultSocketMode = 0o766

// DefaultTCPAddr is the PID-1 mode fallback listen address.
const DefaultTCPAddr = "[::]:8080"

// Listen selects a Unix or TCP listener: if socketArg is empty, bind a
// Unix socket at <runtimeDir>/aurae.sock with mode 0o766 and TCP is
// never opened; if socketArg is given, it is parsed as a socket
// address first (TCP) and otherwise treated as a Unix path.
func Listen(runtimeDir, socketArg string) (net.Listener, error) {
	if socketArg == "" {
		return listenUnix(filepath.Join(runtimeDir, "aurae.sock"))
	}

	if transport.SplitHostSocket(socketArg) {
		return net.Listen("tcp", socketArg)
	}

	return listenUnix(socketArg)
}

func listenUnix(path string) (net.Listener, error) {
	_ = os.Remove(path)

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: listen unix %s: %w", path, err)
	}

	if err := os.Chmod(path, DefaultSocketMode); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("bootstrap: chmod %s: %w", path, err)
	}

	return l, nil
}
