// Package executable implements the subprocess manager for commands
// launched inside a Cell: spawn via sh -c, fan out stdout/stderr lines
// to LogChannel subscribers, and track exit status. Grounded on
// canonical-lxd/shared/subprocess's Process type (build-don't-spawn
// constructor, separate Start/Stop, piped stdio) adapted to a
// log-fan-out rather than a PID-file-backed supervisor.
package executable

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/aurae-runtime/auraed/internal/auraelog"
	"github.com/aurae-runtime/auraed/internal/logstream"
)

// State is the Executable's lifecycle stage.
type State int

const (
	Init State = iota
	Started
	Stopped
)

// Spec describes what to run.
type Spec struct {
	Name        string
	Description string
	Command     string
}

// Executable is a managed `sh -c <command>` subprocess with
// live-tailable stdout/stderr.
type Executable struct {
	spec Spec

	Stdout *logstream.LogChannel
	Stderr *logstream.LogChannel

	mu      sync.Mutex
	state   State
	cmd     *exec.Cmd
	exitErr error
	wg      sync.WaitGroup
}

// New builds an Executable from spec but does not spawn it.
func New(spec Spec) *Executable {
	return &Executable{
		spec:   spec,
		Stdout: logstream.New(spec.Name + ":stdout"),
		Stderr: logstream.New(spec.Name + ":stderr"),
		state:  Init,
	}
}

// Pid returns the child's pid while Started, or 0 otherwise.
func (e *Executable) Pid() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Started || e.cmd == nil || e.cmd.Process == nil {
		return 0
	}

	return e.cmd.Process.Pid
}

// State reports the Executable's current lifecycle stage.
func (e *Executable) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Start spawns the command, working directory "/", with piped
// stdout/stderr fanned out to the Executable's LogChannels. Idempotent
// after first success: a second call while Started is a no-op.
func (e *Executable) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Started {
		return nil
	}

	if e.state == Stopped {
		return e.exitErr
	}

	cmd := exec.Command("sh", "-c", e.spec.Command)
	cmd.Dir = "/"

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("executable %q: stdout pipe: %w", e.spec.Name, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("executable %q: stderr pipe: %w", e.spec.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	e.cmd = cmd
	e.state = Started

	e.wg.Add(2)
	go e.pump(stdout, e.Stdout)
	go e.pump(stderr, e.Stderr)

	return nil
}

// pump reads r line by line, logging each line under a span named for
// this executable, and publishes it to ch.
func (e *Executable) pump(r io.Reader, ch *logstream.LogChannel) {
	defer e.wg.Done()

	log := auraelog.AddContext(auraelog.Ctx{"executable": e.spec.Name})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		log.WithFields(logrus.Fields{"stream": ch.Name()}).Debug(line)
		ch.Publish(line)
	}
}

// Kill sends the OS-level kill signal, awaits exit, joins the stdio
// pumps, and records the exit status. Transitions Started->Stopped.
// A non-zero or signal exit is kept in the command's ProcessState and is
// not returned as an error; only a failure to kill or reap the child is.
func (e *Executable) Kill() error {
	e.mu.Lock()

	if e.state != Started {
		err := e.exitErr
		e.mu.Unlock()

		return err
	}

	cmd := e.cmd
	e.mu.Unlock()

	killErr := cmd.Process.Kill()

	// The stdio pumps must finish draining before Wait is called: Wait
	// closes the underlying pipes once it reaps the child, and reading
	// from an already-closed pipe would drop whatever was still
	// buffered. The pumps reach EOF on their own once the kernel tears
	// down the child's fds, independent of Wait.
	e.wg.Wait()

	waitErr := cmd.Wait()
	if _, ok := waitErr.(*exec.ExitError); ok {
		waitErr = nil
	}

	e.Stdout.Close()
	e.Stderr.Close()

	e.mu.Lock()
	e.state = Stopped

	if killErr != nil {
		e.exitErr = killErr
	} else {
		e.exitErr = waitErr
	}

	recorded := e.exitErr
	e.mu.Unlock()

	return recorded
}
