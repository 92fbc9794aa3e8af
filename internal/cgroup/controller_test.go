package cgroup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurae-runtime/auraed/internal/validation"
)

func TestNew_CreatesNonLeafAndLeaf(t *testing.T) {
	root := t.TempDir()

	name, err := validation.Parse("ava")
	require.NoError(t, err)

	spec := Spec{CPU: &CPUSpec{WeightSet: true, Weight: 500}}

	c, err := New(root, name, spec, os.Getpid())
	require.NoError(t, err)

	require.DirExists(t, filepath.Join(root, "ava"))
	require.DirExists(t, filepath.Join(root, "ava", leafName))

	weight, err := os.ReadFile(filepath.Join(root, "ava", "cpu.weight"))
	require.NoError(t, err)
	require.Equal(t, "500", string(weight))

	procs, err := os.ReadFile(filepath.Join(root, "ava", leafName, "cgroup.procs"))
	require.NoError(t, err)
	require.Contains(t, string(procs), "")

	// On cgroupfs the interface files vanish with their directory; in a
	// temp directory they are regular files that would block rmdir.
	require.NoError(t, os.Remove(filepath.Join(root, "ava", "cpu.weight")))
	require.NoError(t, os.Remove(filepath.Join(root, "ava", leafName, "cgroup.procs")))

	require.NoError(t, c.Delete())
	require.NoDirExists(t, filepath.Join(root, "ava", leafName))
}

func TestNew_NestedEnablesAncestorSubtreeControl(t *testing.T) {
	root := t.TempDir()

	name, err := validation.Parse("parent/child")
	require.NoError(t, err)

	_, err = New(root, name, Spec{Memory: &MemorySpec{MaxSet: true, Max: 1024}}, os.Getpid())
	require.NoError(t, err)

	stc, err := os.ReadFile(filepath.Join(root, "parent", "cgroup.subtree_control"))
	require.NoError(t, err)
	require.Contains(t, string(stc), "+memory")
}

func TestExists(t *testing.T) {
	root := t.TempDir()

	name, err := validation.Parse("a")
	require.NoError(t, err)

	require.False(t, Exists(root, name))

	_, err = New(root, name, Spec{}, os.Getpid())
	require.NoError(t, err)

	require.True(t, Exists(root, name))
}

func TestStats(t *testing.T) {
	root := t.TempDir()

	name, err := validation.Parse("a")
	require.NoError(t, err)

	c, err := New(root, name, Spec{}, os.Getpid())
	require.NoError(t, err)

	require.NoError(t, writeFile(filepath.Join(root, "a", leafName, "pids.current"), "3"))
	require.NoError(t, writeFile(filepath.Join(root, "a", leafName, "memory.current"), "4096"))

	stats, err := c.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.PidsCurrent)
	require.Equal(t, int64(4096), stats.MemoryCurrent)
}

func TestToControllerFiles_CPUMaxUnconstrained(t *testing.T) {
	files := toControllerFiles(Spec{CPU: &CPUSpec{MaxMicrosSet: true, MaxMicros: -1}})
	require.Len(t, files, 1)
	require.Equal(t, "cpu.max", files[0].file)
	require.Equal(t, "max 1000000", files[0].value)
}
