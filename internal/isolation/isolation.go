// Package isolation implements the preparatory and per-namespace mount
// work around a nested daemon spawn: a parent-side step before the
// clone, and a child-side step that the nested daemon runs on itself,
// inside its new namespaces, as the first action of its --nested
// entrypoint.
package isolation

import "golang.org/x/sys/unix"

// Controls mirrors CellSpec's IsolationControls.
type Controls struct {
	IsolateProcess bool
	IsolateNetwork bool
}

// Setup runs in the parent before spawning the nested daemon. If
// IsolateProcess is set, it makes the whole mount tree private and
// recursive so that per-cell mount changes performed later by the
// child (or by this process) do not propagate to the host.
func Setup(ctl Controls) error {
	if !ctl.IsolateProcess {
		return nil
	}

	return unix.Mount("/", "/", "", unix.MS_PRIVATE|unix.MS_REC, "")
}

// IsolateProcess runs in the nested daemon after exec, as the first
// step of cmd/auraed's --nested entrypoint (os/exec cannot run code
// between fork and exec, so there is no pre-exec hook). If IsolateProcess is set, it
// mounts a fresh procfs at /proc so the new PID namespace sees only
// its own processes. IsolateNetwork is a placeholder for future
// network-namespace setup.
func IsolateProcess(ctl Controls) error {
	if ctl.IsolateProcess {
		if err := unix.Mount("proc", "/proc", "proc", 0, ""); err != nil {
			return err
		}
	}

	if ctl.IsolateNetwork {
		isolateNetwork()
	}

	return nil
}

// isolateNetwork is a no-op placeholder: CLONE_NEWNET gives the child
// its own empty network stack, and no further per-namespace setup
// (veth, routes) is implemented yet.
func isolateNetwork() {}
