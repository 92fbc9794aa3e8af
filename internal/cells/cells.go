package cells

import (
	"sync"

	"github.com/aurae-runtime/auraed/internal/aeerror"
	"github.com/aurae-runtime/auraed/internal/nesteddaemon"
	"github.com/aurae-runtime/auraed/internal/runtimectx"
	"github.com/aurae-runtime/auraed/internal/validation"
)

// Cells is a cache of directly-owned child Cells, keyed by the child's
// own (single-label) name. A Cell is exclusively owned by exactly one
// cache node: Cells is never cloned or shared across nodes.
type Cells struct {
	mu    sync.Mutex
	items map[string]*Cell
}

// New returns an empty Cells cache.
func New() *Cells {
	return &Cells{items: map[string]*Cell{}}
}

// Allocate inserts a new child Cell keyed by name's leaf label and
// allocates it. A duplicate name is a CellExists error and leaves the
// cache untouched.
func (cs *Cells) Allocate(name validation.CellName, spec Spec, root string, rt runtimectx.Runtime) error {
	cs.mu.Lock()

	key := name.Leaf()
	if _, exists := cs.items[key]; exists {
		cs.mu.Unlock()
		return aeerror.CellExists(name.String())
	}

	cell := newCell(name, spec)
	cs.items[key] = cell

	cs.mu.Unlock()

	return cell.Allocate(root, rt)
}

// Free runs the named Cell's Free and removes it from the cache. An
// absent name is a CellNotFound error.
func (cs *Cells) Free(leaf string) error {
	cs.mu.Lock()
	cell, ok := cs.items[leaf]
	if ok {
		delete(cs.items, leaf)
	}
	cs.mu.Unlock()

	if !ok {
		return aeerror.CellNotFound(leaf)
	}

	return cell.Free()
}

// Get runs fn against the cached Cell keyed by leaf. If the Cell is
// Unallocated, it is evicted from the cache first (self-healing) and
// CellNotFound is returned instead of invoking fn.
func (cs *Cells) Get(leaf string, fn func(*Cell) error) error {
	cs.mu.Lock()
	cell, ok := cs.items[leaf]
	if ok && cell.State() == Unallocated {
		delete(cs.items, leaf)
		ok = false
	}
	cs.mu.Unlock()

	if !ok {
		return aeerror.CellNotFound(leaf)
	}

	return fn(cell)
}

// BroadcastFree recurses depth-first through every cached Cell,
// gracefully shutting each one down.
func (cs *Cells) BroadcastFree() {
	cs.broadcast(func(n *nesteddaemon.NestedAuraed) error { return n.Shutdown() })
}

// BroadcastKill recurses depth-first through every cached Cell,
// forcefully killing each one down. Used by the RPC router's Shutdown
// on daemon exit to guarantee cleanup.
func (cs *Cells) BroadcastKill() {
	cs.broadcast(func(n *nesteddaemon.NestedAuraed) error { return n.Kill() })
}

func (cs *Cells) broadcast(stop func(*nesteddaemon.NestedAuraed) error) {
	cs.mu.Lock()
	targets := make([]*Cell, 0, len(cs.items))
	for _, c := range cs.items {
		targets = append(targets, c)
	}
	cs.mu.Unlock()

	for _, c := range targets {
		_ = c.teardown(stop)
	}
}
