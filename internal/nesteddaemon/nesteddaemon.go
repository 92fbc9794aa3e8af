// Package nesteddaemon implements the nested-daemon spawn mechanism: the
// Go rendering of a clone3 invocation that starts a fresh auraed
// listening on its own Unix socket inside a new set of Linux
// namespaces.
//
// Go's os/exec has no direct clone3 binding, so this is built from the
// same pieces other_examples/60d6c7d3_helayoty-cloud-native-in-arabic__containers-docker-like-container.go.go
// uses: exec.Command("/proc/self/exe", ...) with syscall.SysProcAttr's
// Cloneflags/Unshareflags, plus the Go 1.21+ PidFD field to obtain a
// pidfd for the child the way clone3(CLONE_PIDFD) would.
package nesteddaemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/aurae-runtime/auraed/internal/aeerror"
	"github.com/aurae-runtime/auraed/internal/isolation"
	"github.com/aurae-runtime/auraed/internal/runtimectx"
)

// NestedAuraed tracks a spawned child auraed: the process handle
// standing in for the pidfd/procfs handle, its isolation controls, and
// the Unix socket clients should dial to reach it.
type NestedAuraed struct {
	cmd          *exec.Cmd
	pidfd        int
	iso          isolation.Controls
	clientSocket string
}

// ClientSocket returns the Unix socket path the nested daemon is
// listening on.
func (n *NestedAuraed) ClientSocket() string {
	return n.clientSocket
}

// Pid returns the nested daemon's pid as seen from this namespace.
func (n *NestedAuraed) Pid() int {
	return n.cmd.Process.Pid
}

// Spawn derives a fresh socket path, builds the re-exec command, and
// clones it into the namespaces selected by iso. The child performs
// its own isolation.IsolateProcess call immediately on startup (when
// run with --nested), standing in for a true clone3 pre-exec hook
// which os/exec has no way to install between fork and exec.
func Spawn(leaf string, iso isolation.Controls, rt runtimectx.Runtime) (*NestedAuraed, error) {
	if err := isolation.Setup(iso); err != nil {
		return nil, fmt.Errorf("isolation setup for cell %q: %w", leaf, err)
	}

	socketPath := filepath.Join(rt.RuntimeDir, fmt.Sprintf("aurae-%s.sock", uuid.NewString()))

	args := []string{
		"--socket", socketPath,
		"--nested",
		"--server-crt", rt.TLS.ServerCrt,
		"--server-key", rt.TLS.ServerKey,
		"--ca-crt", rt.TLS.CACrt,
		"--runtime-dir", rt.RuntimeDir,
		"--library-dir", rt.LibraryDir,
	}

	// The child carries its own IsolationControls on the command line
	// because os/exec has no pre-exec hook to run isolation.IsolateProcess
	// between fork and exec; the --nested entrypoint calls it itself as
	// the very first thing it does, standing in for that hook.
	if iso.IsolateProcess {
		args = append(args, "--isolate-process")
	}

	if iso.IsolateNetwork {
		args = append(args, "--isolate-network")
	}

	cmd := exec.Command(rt.AuraedPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	var cloneflags, unshareflags uintptr

	cloneflags |= syscall.CLONE_NEWCGROUP

	if iso.IsolateNetwork {
		cloneflags |= syscall.CLONE_NEWNET
	}

	if iso.IsolateProcess {
		cloneflags |= syscall.CLONE_NEWPID | syscall.CLONE_NEWNS | syscall.CLONE_NEWIPC | syscall.CLONE_NEWUTS
		unshareflags |= syscall.CLONE_NEWNS
	}

	var pidfd int

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags:   cloneflags,
		Unshareflags: unshareflags,
		Pdeathsig:    syscall.SIGKILL,
		PidFD:        &pidfd,
	}

	if err := cmd.Start(); err != nil {
		return nil, aeerror.FailedToAllocateCell(leaf, fmt.Errorf("spawn nested auraed: %w", err))
	}

	return &NestedAuraed{
		cmd:          cmd,
		pidfd:        pidfd,
		iso:          iso,
		clientSocket: socketPath,
	}, nil
}

// Shutdown sends SIGTERM and waits. SIGTERM is unreliable when the child
// runs under full namespace isolation, so if the child has not exited
// within 5 seconds, Shutdown falls back to Kill itself.
func (n *NestedAuraed) Shutdown() error {
	return n.signalAndWait(syscall.SIGTERM)
}

// Kill sends SIGKILL and waits; the reliable teardown path.
func (n *NestedAuraed) Kill() error {
	return n.signalAndWait(syscall.SIGKILL)
}

func (n *NestedAuraed) signalAndWait(sig syscall.Signal) error {
	for {
		err := n.cmd.Process.Signal(sig)
		if err == nil || err == os.ErrProcessDone {
			break
		}

		if err == syscall.EINTR {
			continue
		}

		return err
	}

	done := make(chan error, 1)

	go func() { done <- n.cmd.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}

		if _, ok := err.(*exec.ExitError); ok {
			return nil
		}

		return err
	case <-time.After(5 * time.Second):
		if sig == syscall.SIGTERM {
			return n.Kill()
		}

		return fmt.Errorf("nested auraed pid %d did not exit after SIGKILL", n.Pid())
	}
}
