// Package transport builds the mTLS-authenticated HTTP client used to
// reach either this daemon's own control socket or a nested daemon's
// socket one hop down a cell path.
//
// Grounded on canonical-lxd/client/util.go's tlsHTTPClient/
// unixHTTPClient pair: a shared *http.Client with DisableKeepAlives
// and a custom DialContext/DialTLSContext, built fresh per connection
// rather than cached. TLS material is opened once per client creation
// and never cached across RPCs.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// ServerSNI is the fixed SNI/CN identity every auraed server certificate
// carries.
const ServerSNI = "server.unsafe.aurae.io"

// ClientSNI is the fixed CN/SAN identity every auraed client certificate
// carries.
const ClientSNI = "client.unsafe.aurae.io"

// Config is the validated connection target and PKI material needed to
// dial either the local daemon's own socket or a child's nested
// socket, mirroring AuraeConfig{auth, system}.
type Config struct {
	// System is either a filesystem path (Unix socket) or a host:port
	// TCP address. Which it is, is detected the same way the socket
	// bootstrap detects a --socket override: try to parse it as a
	// socket address first.
	System string

	ClientCert string
	ClientKey  string
	CACrt      string

	// InsecureNoTLS is only ever set by tests.
	InsecureNoTLS bool
}

// isTCPAddr reports whether system parses as a host:port pair, the
// same disambiguation the socket bootstrap performs for a --socket
// override.
func isTCPAddr(system string) bool {
	_, _, err := net.SplitHostPort(system)
	return err == nil
}

// NewClient builds an *http.Client dialing system directly, without
// any intervening hop. Routing through a chain of nested daemons is
// the caller's responsibility (internal/cellservice does one hop per
// call).
func NewClient(cfg Config) (*http.Client, error) {
	if cfg.InsecureNoTLS {
		return plainClient(cfg.System), nil
	}

	return tlsClient(cfg)
}

func plainClient(system string) *http.Client {
	transport := &http.Transport{
		DisableKeepAlives: true,
	}

	if isTCPAddr(system) {
		return &http.Client{Transport: transport}
	}

	transport.DialContext = unixDialer(system)

	return &http.Client{Transport: transport}
}

func tlsClient(cfg Config) (*http.Client, error) {
	tlsConfig, err := buildTLSConfig(cfg.ClientCert, cfg.ClientKey, cfg.CACrt)
	if err != nil {
		return nil, fmt.Errorf("transport: load TLS material: %w", err)
	}

	transport := &http.Transport{
		DisableKeepAlives:     true,
		ExpectContinueTimeout: 30 * time.Second,
		ResponseHeaderTimeout: 3600 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
	}

	if isTCPAddr(cfg.System) {
		tlsConfig.ServerName = ServerSNI
		transport.TLSClientConfig = tlsConfig

		return &http.Client{Transport: transport}, nil
	}

	unixDial := unixDialer(cfg.System)

	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := unixDial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		cloned := tlsConfig.Clone()
		cloned.ServerName = ServerSNI

		tlsConn := tls.Client(conn, cloned)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}

		return tlsConn, nil
	}

	return &http.Client{Transport: transport}, nil
}

// unixDialer ignores the network/addr the http.Transport passes in and
// always dials the fixed Unix socket path, the same pattern as
// canonical-lxd/client/util.go's unixHTTPClient.
func unixDialer(path string) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, _ string, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}
}

func buildTLSConfig(clientCert, clientKey, caCrt string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(clientCert, clientKey)
	if err != nil {
		return nil, fmt.Errorf("load client cert/key: %w", err)
	}

	caPEM, err := os.ReadFile(caCrt)
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates parsed from %s", caCrt)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// BaseURL returns the URL prefix NewClient's transport expects for
// http.NewRequest calls: a fixed pseudo-host for Unix sockets (the
// DialContext ignores it), or the real TCP address otherwise.
func BaseURL(cfg Config) string {
	scheme := "https"
	if cfg.InsecureNoTLS {
		scheme = "http"
	}

	if isTCPAddr(cfg.System) {
		return fmt.Sprintf("%s://%s", scheme, cfg.System)
	}

	return fmt.Sprintf("%s://unix.socket", scheme)
}

// SplitHostSocket reports whether raw names a TCP host:port versus a
// filesystem path, used by the CLI's --socket flag parsing.
func SplitHostSocket(raw string) (isTCP bool) {
	return isTCPAddr(strings.TrimSpace(raw))
}
