// Package cells implements the Cell state machine and the Cells cache
// that owns every allocated Cell in this daemon, grounded on
// canonical-lxd's instance state transitions (lxd/instance/instance_*.go
// keep a similar guarded create/start/stop/delete shape) and adapted
// to the nested-daemon-plus-cgroup pairing this runtime allocates.
package cells

import (
	"sync"

	"github.com/aurae-runtime/auraed/internal/aeerror"
	"github.com/aurae-runtime/auraed/internal/cgroup"
	"github.com/aurae-runtime/auraed/internal/isolation"
	"github.com/aurae-runtime/auraed/internal/nesteddaemon"
	"github.com/aurae-runtime/auraed/internal/runtimectx"
	"github.com/aurae-runtime/auraed/internal/validation"
)

// State is the Cell's lifecycle stage.
type State int

const (
	Unallocated State = iota
	Allocated
	Freed
)

// Spec is the validated allocation request for a Cell.
type Spec struct {
	Cgroup cgroup.Spec
	Iso    isolation.Controls
}

// Cell is one isolation domain: a cgroup-v2 pair plus a nested daemon
// running inside the chosen set of namespaces, plus the children cells
// it has itself allocated (a cell tree, not just a cell).
type Cell struct {
	mu    sync.Mutex
	name  validation.CellName
	spec  Spec
	state State

	nested   *nesteddaemon.NestedAuraed
	cgroup   *cgroup.Controller
	children *Cells
}

func newCell(name validation.CellName, spec Spec) *Cell {
	return &Cell{
		name:     name,
		spec:     spec,
		state:    Unallocated,
		children: New(),
	}
}

// ClientSocket returns the nested daemon's Unix socket, valid only
// while the Cell is Allocated.
func (c *Cell) ClientSocket() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nested == nil {
		return ""
	}

	return c.nested.ClientSocket()
}

// Children exposes the nested Cells cache so the RPC router can
// forward allocate/free/start/stop into it.
func (c *Cell) Children() *Cells {
	return c.children
}

// Allocate transitions Unallocated->Allocated: spawn the nested
// daemon, create its cgroup, attach its pid to the leaf. Already
// Allocated or Freed is a no-op success.
func (c *Cell) Allocate(root string, rt runtimectx.Runtime) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Unallocated {
		return nil
	}

	nested, err := nesteddaemon.Spawn(c.name.Leaf(), c.spec.Iso, rt)
	if err != nil {
		return aeerror.FailedToAllocateCell(c.name.String(), err)
	}

	ctl, err := cgroup.New(root, c.name, c.spec.Cgroup, nested.Pid())
	if err != nil {
		_ = nested.Kill()
		return aeerror.AbortedAllocateCell(c.name.String(), err)
	}

	c.nested = nested
	c.cgroup = ctl
	c.state = Allocated

	return nil
}

// Free transitions Allocated->Freed: broadcasts a graceful shutdown
// into children first, then shuts down this cell's own nested daemon,
// then deletes its cgroup. State becomes Freed regardless of errors
// along the way.
func (c *Cell) Free() error {
	return c.teardown(func(n *nesteddaemon.NestedAuraed) error { return n.Shutdown() })
}

// Kill is Free's SIGKILL counterpart, used to guarantee cleanup.
func (c *Cell) Kill() error {
	return c.teardown(func(n *nesteddaemon.NestedAuraed) error { return n.Kill() })
}

func (c *Cell) teardown(stop func(*nesteddaemon.NestedAuraed) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Allocated {
		return nil
	}

	c.children.broadcast(stop)

	var firstErr error

	if c.nested != nil {
		if err := stop(c.nested); err != nil && firstErr == nil {
			firstErr = aeerror.FailedToFreeCell(c.name.String(), err)
		}
	}

	if c.cgroup != nil {
		if err := c.cgroup.Delete(); err != nil && firstErr == nil {
			firstErr = aeerror.FailedToFreeCell(c.name.String(), err)
		}
	}

	c.state = Freed

	return firstErr
}

// State reports the Cell's current lifecycle stage.
func (c *Cell) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}
