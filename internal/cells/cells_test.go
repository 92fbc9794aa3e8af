package cells

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurae-runtime/auraed/internal/validation"
)

func TestGet_EvictsUnallocated(t *testing.T) {
	cs := New()

	name, err := validation.Parse("a")
	require.NoError(t, err)

	cs.items["a"] = newCell(name, Spec{})

	err = cs.Get("a", func(*Cell) error { return nil })
	require.Error(t, err)

	err = cs.Get("a", func(*Cell) error { return nil })
	require.Error(t, err, "expected eviction to stick")
}

func TestFree_AbsentIsCellNotFound(t *testing.T) {
	cs := New()
	require.Error(t, cs.Free("missing"))
}

func TestCellTeardown_NoopWhenNotAllocated(t *testing.T) {
	name, err := validation.Parse("a")
	require.NoError(t, err)

	c := newCell(name, Spec{})
	require.NoError(t, c.Free())
	require.NoError(t, c.Kill())
	require.Equal(t, Unallocated, c.State())
}
