package executable

import (
	"sync"

	"github.com/aurae-runtime/auraed/internal/aeerror"
)

// Executables is the registry of managed subprocesses for one daemon,
// keyed by executable name.
type Executables struct {
	mu    sync.Mutex
	items map[string]*Executable
}

// NewRegistry returns an empty Executables registry.
func NewRegistry() *Executables {
	return &Executables{items: map[string]*Executable{}}
}

// Start builds and starts a new Executable for spec. A duplicate name
// is a CellExists-shaped error since the name space is shared with the
// registry's keys.
func (r *Executables) Start(spec Spec) (*Executable, error) {
	r.mu.Lock()

	if _, exists := r.items[spec.Name]; exists {
		r.mu.Unlock()
		return nil, aeerror.CellExists(spec.Name)
	}

	exe := New(spec)
	r.items[spec.Name] = exe

	r.mu.Unlock()

	if err := exe.Start(); err != nil {
		r.mu.Lock()
		delete(r.items, spec.Name)
		r.mu.Unlock()

		return nil, err
	}

	return exe, nil
}

// Stop kills the named Executable. Missing name is CellNotFound.
func (r *Executables) Stop(name string) error {
	r.mu.Lock()
	exe, ok := r.items[name]
	r.mu.Unlock()

	if !ok {
		return aeerror.CellNotFound(name)
	}

	return exe.Kill()
}

// Get returns the named Executable, if any.
func (r *Executables) Get(name string) (*Executable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exe, ok := r.items[name]

	return exe, ok
}
