package cellservice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurae-runtime/auraed/internal/cells"
	"github.com/aurae-runtime/auraed/internal/executable"
	"github.com/aurae-runtime/auraed/internal/runtimectx"
	"github.com/aurae-runtime/auraed/internal/validation"
)

func TestRouter_StartStop_LocalExecutable(t *testing.T) {
	r := NewRouter(t.TempDir(), runtimectx.Runtime{})

	pid, err := r.Start(validation.CellName{}, executable.Spec{Name: "local-sleep", Command: "sleep 5"})
	require.NoError(t, err)
	require.Greater(t, pid, 0)

	require.NoError(t, r.Stop(validation.CellName{}, "local-sleep"))
}

func TestRouter_Stop_UnknownExecutable(t *testing.T) {
	r := NewRouter(t.TempDir(), runtimectx.Runtime{})
	require.Error(t, r.Stop(validation.CellName{}, "missing"))
}

func TestResolveParentCache_SingleLabel(t *testing.T) {
	top := cells.New()

	name, err := validation.Parse("a")
	require.NoError(t, err)

	cache, err := resolveParentCache(top, name)
	require.NoError(t, err)
	require.Same(t, top, cache)
}

func TestResolveParentCache_MissingParent(t *testing.T) {
	top := cells.New()

	name, err := validation.Parse("a/b")
	require.NoError(t, err)

	_, err = resolveParentCache(top, name)
	require.Error(t, err, "parent cell 'a' was never allocated")
}

func TestCgroupSpecFrom_PointersCarryOptionalSetFlags(t *testing.T) {
	weight := uint64(200)
	maxMicros := int64(-1)

	spec := CgroupSpecFrom(CgroupSpec{
		CPU: &CPUSpec{Weight: &weight, MaxMicros: &maxMicros},
	})

	require.NotNil(t, spec.CPU)
	require.True(t, spec.CPU.WeightSet)
	require.Equal(t, uint64(200), spec.CPU.Weight)
	require.True(t, spec.CPU.MaxMicrosSet)
	require.Equal(t, int64(-1), spec.CPU.MaxMicros)
	require.Nil(t, spec.Cpuset)
	require.Nil(t, spec.Memory)
}

func TestCgroupSpecFrom_Empty(t *testing.T) {
	spec := CgroupSpecFrom(CgroupSpec{})
	require.Nil(t, spec.CPU)
	require.Nil(t, spec.Cpuset)
	require.Nil(t, spec.Memory)
}

func TestSocketPathFor(t *testing.T) {
	require.Equal(t, "/var/run/aurae/aurae-mycell.sock", socketPathFor("/var/run/aurae", "mycell"))
}

func TestRouter_Signals_UnavailableWithoutFanout(t *testing.T) {
	r := NewRouter(t.TempDir(), runtimectx.Runtime{})

	_, _, err := r.Signals("")
	require.Error(t, err)
}
