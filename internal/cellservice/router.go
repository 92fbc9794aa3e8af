// Package cellservice implements the RPC routing core: allocate/free
// operate on the local, recursively-nested Cells cache directly (no
// RPC hop, since the whole cell tree's metadata lives in the daemon
// that received the top-level Allocate); start/stop walk one label at
// a time and, once the remaining path is non-empty, open an
// authenticated client to that label's nested daemon and forward the
// request with the remaining path, repeating per hop.
package cellservice

import (
	"fmt"
	"path/filepath"

	"github.com/aurae-runtime/auraed/internal/aeerror"
	"github.com/aurae-runtime/auraed/internal/cells"
	"github.com/aurae-runtime/auraed/internal/cgroup"
	"github.com/aurae-runtime/auraed/internal/executable"
	"github.com/aurae-runtime/auraed/internal/runtimectx"
	"github.com/aurae-runtime/auraed/internal/signal"
	"github.com/aurae-runtime/auraed/internal/transport"
	"github.com/aurae-runtime/auraed/internal/validation"
)

// Router holds the pieces a daemon instance needs to serve the four
// CellService RPCs and the two Observe streams: this daemon's own
// top-level Cells cache, its own Executables registry (reachable when
// a request's cell path is empty), the cgroup root, and the runtime
// context used both to spawn further nested daemons and to build
// client transports into already-spawned ones.
type Router struct {
	cells  *cells.Cells
	execs  *executable.Executables
	root   string
	rt     runtimectx.Runtime
	signal *signal.Fanout
}

// NewRouter builds a Router for one daemon instance.
func NewRouter(root string, rt runtimectx.Runtime) *Router {
	return &Router{
		cells: cells.New(),
		execs: executable.NewRegistry(),
		root:  root,
		rt:    rt,
	}
}

// Executables exposes this daemon's own registry, for the log/signal
// streaming endpoints which are always served locally: the eBPF
// pipeline runs per-daemon, not recursively.
func (r *Router) Executables() *executable.Executables {
	return r.execs
}

// Shutdown forcefully kills every top-level Cell this daemon owns
// (which recurses depth-first into their own nested Cells caches),
// tearing down their nested daemons and cgroups. Called on process
// shutdown to give the Rust implementation's Drop-driven cleanup a
// real equivalent, since Go has no destructors to fall back on.
func (r *Router) Shutdown() {
	r.cells.BroadcastKill()
}

// SetSignalFanout attaches the eBPF signal pipeline loaded at startup.
// A nested daemon, or one whose Load failed, never calls this, leaving
// Signals to report the pipeline as unavailable rather than silently
// serving nothing.
func (r *Router) SetSignalFanout(f *signal.Fanout) {
	r.signal = f
}

// Signals subscribes to POSIX signal events, optionally scoped to one
// cell's cgroup (GetPosixSignalsStream's filtering rule). Returns an
// aeerror-wrapped ErrUnavailable if this daemon never loaded the
// pipeline, rather than silently serving nothing.
func (r *Router) Signals(cellPath string) (<-chan signal.Event, func(), error) {
	if r.signal == nil {
		return nil, nil, signal.Unimplemented()
	}

	ch, cancel := r.signal.Subscribe(cellPath)

	return ch, cancel, nil
}

// Allocate resolves the cell path's parent cache by walking every
// label but the last through the existing tree, then allocates the
// full name as a child of that cache.
func (r *Router) Allocate(name validation.CellName, spec cells.Spec) error {
	cache, err := resolveParentCache(r.cells, name)
	if err != nil {
		return err
	}

	return cache.Allocate(name, spec, r.root, r.rt)
}

// Free resolves the cell path's parent cache the same way Allocate
// does, then frees and evicts the leaf.
func (r *Router) Free(name validation.CellName) error {
	cache, err := resolveParentCache(r.cells, name)
	if err != nil {
		return err
	}

	return cache.Free(name.Leaf())
}

// resolveParentCache walks every label of name but the last through
// nested Cells caches (top -> cell("a").Children() -> cell("a/b")
// .Children() -> ...), returning the cache that should own name as a
// direct child. A single-label name resolves to top immediately.
func resolveParentCache(top *cells.Cells, name validation.CellName) (*cells.Cells, error) {
	labels := name.Labels()
	cache := top

	for i := 0; i < len(labels)-1; i++ {
		var next *cells.Cells

		err := cache.Get(labels[i], func(c *cells.Cell) error {
			next = c.Children()
			return nil
		})
		if err != nil {
			return nil, err
		}

		cache = next
	}

	return cache, nil
}

// Start routes an executable start either to this daemon's own
// Executables registry (empty path) or, after popping the first
// label, forwards it one hop into that label's nested daemon over an
// authenticated client.
func (r *Router) Start(path validation.CellName, spec executable.Spec) (int, error) {
	if path.Empty() {
		exe, err := r.execs.Start(spec)
		if err != nil {
			return 0, err
		}

		return exe.Pid(), nil
	}

	first, rest, _ := path.PopFirst()

	var pid int

	err := r.cells.Get(first, func(c *cells.Cell) error {
		client, cerr := r.childClient(c)
		if cerr != nil {
			return cerr
		}

		resp, cerr := client.Start(StartRequest{
			CellName:          rest.String(),
			ExecutableName:    spec.Name,
			ExecutableDesc:    spec.Description,
			ExecutableCommand: spec.Command,
		})
		if cerr != nil {
			return cerr
		}

		pid = resp.Pid

		return nil
	})

	return pid, err
}

// Stop mirrors Start's routing rule for the symmetrical RPC.
func (r *Router) Stop(path validation.CellName, executableName string) error {
	if path.Empty() {
		return r.execs.Stop(executableName)
	}

	first, rest, _ := path.PopFirst()

	return r.cells.Get(first, func(c *cells.Cell) error {
		client, err := r.childClient(c)
		if err != nil {
			return err
		}

		return client.Stop(StopRequest{
			CellName:       rest.String(),
			ExecutableName: executableName,
		})
	})
}

// childClient opens an authenticated client to the nested daemon
// owning cell c, guaranteed present because c must be Allocated for
// its ClientSocket to be populated.
func (r *Router) childClient(c *cells.Cell) (*Client, error) {
	socket := c.ClientSocket()
	if socket == "" {
		return nil, aeerror.CellNotAllocated("")
	}

	return NewClient(transport.Config{
		System:     socket,
		ClientCert: r.rt.TLS.ServerCrt,
		ClientKey:  r.rt.TLS.ServerKey,
		CACrt:      r.rt.TLS.CACrt,
	})
}

// CgroupSpecFrom converts the wire CgroupSpec into the validated
// internal cgroup.Spec, translating CPU weight/max and the memory
// fields into the controller's optional-set form.
func CgroupSpecFrom(w CgroupSpec) cgroup.Spec {
	var out cgroup.Spec

	if w.CPU != nil {
		cpu := &cgroup.CPUSpec{}

		if w.CPU.Weight != nil {
			cpu.WeightSet = true
			cpu.Weight = *w.CPU.Weight
		}

		if w.CPU.MaxMicros != nil {
			cpu.MaxMicrosSet = true
			cpu.MaxMicros = *w.CPU.MaxMicros
		}

		out.CPU = cpu
	}

	if w.Cpuset != nil {
		cs := &cgroup.CpusetSpec{}

		if w.Cpuset.Cpus != nil {
			cs.CpusSet = true
			cs.Cpus = *w.Cpuset.Cpus
		}

		if w.Cpuset.Mems != nil {
			cs.MemsSet = true
			cs.Mems = *w.Cpuset.Mems
		}

		out.Cpuset = cs
	}

	if w.Memory != nil {
		mem := &cgroup.MemorySpec{}

		if w.Memory.Min != nil {
			mem.MinSet = true
			mem.Min = *w.Memory.Min
		}

		if w.Memory.Low != nil {
			mem.LowSet = true
			mem.Low = *w.Memory.Low
		}

		if w.Memory.High != nil {
			mem.HighSet = true
			mem.High = *w.Memory.High
		}

		if w.Memory.Max != nil {
			mem.MaxSet = true
			mem.Max = *w.Memory.Max
		}

		out.Memory = mem
	}

	return out
}

// socketPathFor is a small helper kept for symmetry with the nested
// daemon's own socket naming; used by tests that need to predict a
// runtime-dir-relative path without spawning anything.
func socketPathFor(runtimeDir, name string) string {
	return filepath.Join(runtimeDir, fmt.Sprintf("aurae-%s.sock", name))
}
