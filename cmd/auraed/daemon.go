package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aurae-runtime/auraed/internal/auraelog"
	"github.com/aurae-runtime/auraed/internal/bootstrap"
	"github.com/aurae-runtime/auraed/internal/cellservice"
	"github.com/aurae-runtime/auraed/internal/isolation"
	"github.com/aurae-runtime/auraed/internal/runtimectx"
	"github.com/aurae-runtime/auraed/internal/signal"
)

const (
	defaultPKIDir      = "/etc/aurae/pki"
	defaultRuntimeDir  = "/var/run/aurae"
	defaultLibraryDir  = "/var/lib/aurae"
	defaultCgroupRoot  = "/sys/fs/cgroup"
	signalObjectSuffix = "signal_generate.bpf.o"
)

// cmdDaemon is the root command: bring up the daemon itself.
type cmdDaemon struct {
	flagServerCrt  string
	flagServerKey  string
	flagCACrt      string
	flagSocket     string
	flagRuntimeDir string
	flagLibraryDir string
	flagVerbose    bool
	flagNested     bool
	flagInsecure   bool

	flagIsolateProcess bool
	flagIsolateNetwork bool
}

func (c *cmdDaemon) command() *cobra.Command {
	cmd := &cobra.Command{
		RunE: c.run,
	}

	cmd.PersistentFlags().StringVar(&c.flagServerCrt, "server-crt", defaultPKIDir+"/server.crt", "TLS server certificate")
	cmd.PersistentFlags().StringVar(&c.flagServerKey, "server-key", defaultPKIDir+"/server.key", "TLS server key")
	cmd.PersistentFlags().StringVar(&c.flagCACrt, "ca-crt", defaultPKIDir+"/ca.crt", "TLS CA certificate")
	cmd.Flags().StringVar(&c.flagSocket, "socket", "", "Listen socket (path or host:port); defaults to <runtime-dir>/aurae.sock; ignored when running as PID 1 without --nested, which listens on [::]:8080")
	cmd.Flags().StringVar(&c.flagRuntimeDir, "runtime-dir", defaultRuntimeDir, "Directory for the control socket and per-cell nested sockets")
	cmd.Flags().StringVar(&c.flagLibraryDir, "library-dir", defaultLibraryDir, "Directory for cached daemon state")
	cmd.Flags().BoolVar(&c.flagVerbose, "verbose", false, "Enable debug logging")
	cmd.Flags().BoolVar(&c.flagNested, "nested", false, "Skip PID-1 bring-up; this process was spawned by a parent auraed")
	cmd.Flags().BoolVar(&c.flagInsecure, "insecure-no-tls", false, "Disable mTLS on the control API (tests only)")
	cmd.Flags().BoolVar(&c.flagIsolateProcess, "isolate-process", false, "(nested only) mount a fresh /proc before serving; set by the parent auraed that spawned this process")
	cmd.Flags().BoolVar(&c.flagIsolateNetwork, "isolate-network", false, "(nested only) this process owns a fresh network namespace; set by the parent auraed that spawned this process")

	return cmd
}

func (c *cmdDaemon) run(cmd *cobra.Command, args []string) error {
	if c.flagNested {
		// Stands in for clone3's pre-exec hook: os/exec has no way to run
		// code between fork and exec, so the nested entrypoint performs
		// its own isolation.IsolateProcess call as the first thing it does.
		iso := isolation.Controls{IsolateProcess: c.flagIsolateProcess, IsolateNetwork: c.flagIsolateNetwork}
		if err := isolation.IsolateProcess(iso); err != nil {
			return fmt.Errorf("nested isolation setup: %w", err)
		}
	}

	auraelog.SetVerbose(c.flagVerbose)
	log := auraelog.AddContext(auraelog.Ctx{"nested": c.flagNested})

	auraedPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve auraed binary path: %w", err)
	}

	rt := runtimectx.Runtime{
		AuraedPath: auraedPath,
		RuntimeDir: c.flagRuntimeDir,
		LibraryDir: c.flagLibraryDir,
		CgroupRoot: defaultCgroupRoot,
		TLS: runtimectx.TLSPaths{
			ServerCrt: c.flagServerCrt,
			ServerKey: c.flagServerKey,
			CACrt:     c.flagCACrt,
		},
		Nested:  c.flagNested,
		Verbose: c.flagVerbose,
	}

	for _, dir := range []string{rt.RuntimeDir, rt.LibraryDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	var listener net.Listener

	if !c.flagNested && os.Getpid() == 1 {
		listener, err = bootstrap.InitPID1(c.flagVerbose)
		if err != nil {
			return err
		}
	} else {
		listener, err = bootstrap.Listen(rt.RuntimeDir, c.flagSocket)
		if err != nil {
			return err
		}
	}

	defer func() { _ = listener.Close() }()

	router := cellservice.NewRouter(rt.CgroupRoot, rt)
	server := cellservice.NewServer(router)

	if !c.flagNested {
		if fanout, err := signal.Load(signalObjectPath(rt.LibraryDir), rt.CgroupRoot); err != nil {
			log.Warn("eBPF signal pipeline unavailable: " + err.Error())
		} else {
			defer fanout.Close()
			router.SetSignalFanout(fanout)
		}
	}

	log.Info("listening on " + listener.Addr().String())

	httpServer := &http.Server{Handler: server}

	serveListener := listener

	if !c.flagInsecure {
		tlsConfig, err := serverTLSConfig(rt.TLS)
		if err != nil {
			return err
		}

		serveListener = tls.NewListener(listener, tlsConfig)
	}

	return serveUntilSignal(httpServer, serveListener, router, log)
}

// serveUntilSignal runs the control API until the process receives
// SIGTERM/SIGINT, then kills every Cell this daemon owns before
// shutting the server down, the Go rendering of the Rust
// implementation's Drop-driven cleanup (canonical-lxd/lxd-agent's
// main_agent.go installs the same SIGTERM handler around its own
// serve loop).
func serveUntilSignal(httpServer *http.Server, listener net.Listener, router *cellservice.Router, log *logrus.Entry) error {
	chSignal := make(chan os.Signal, 1)
	ossignal.Notify(chSignal, syscall.SIGTERM, syscall.SIGINT)
	defer ossignal.Stop(chSignal)

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(listener) }()

	select {
	case err := <-errCh:
		return err
	case sig := <-chSignal:
		log.Info("received " + sig.String() + ", killing owned cells")
		router.Shutdown()

		_ = httpServer.Close()
		<-errCh

		return nil
	}
}

func signalObjectPath(libraryDir string) string {
	return libraryDir + "/" + signalObjectSuffix
}

func serverTLSConfig(paths runtimectx.TLSPaths) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(paths.ServerCrt, paths.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("load server cert/key: %w", err)
	}

	caPEM, err := os.ReadFile(paths.CACrt)
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates parsed from %s", paths.CACrt)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
