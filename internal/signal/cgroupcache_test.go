package signal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func inodeOf(t *testing.T, info os.FileInfo) uint64 {
	t.Helper()

	stat, ok := info.Sys().(*unix.Stat_t)
	require.True(t, ok, "expected *unix.Stat_t on this platform")

	return stat.Ino
}

func TestSplitLines(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, splitLines([]byte("a\nb\nc\n")))
	require.Equal(t, []string{"a", "b"}, splitLines([]byte("a\nb")))
	require.Empty(t, splitLines(nil))
}

func TestIsDescendant(t *testing.T) {
	require.True(t, isDescendant("/sys/fs/cgroup/a", "/sys/fs/cgroup/a/b"))
	require.True(t, isDescendant("/sys/fs/cgroup/a", "/sys/fs/cgroup/a"))
	require.False(t, isDescendant("/sys/fs/cgroup/a", "/sys/fs/cgroup/b"))
	require.False(t, isDescendant("/sys/fs/cgroup/a/b", "/sys/fs/cgroup/a"))
}

func TestCgroupPathOf(t *testing.T) {
	pid := os.Getpid()

	path, err := cgroupPathOf(uint32(pid))
	if err != nil {
		t.Skipf("no /proc/%d/cgroup available in this environment: %v", pid, err)
	}

	require.NotEmpty(t, path)
}

func TestResolver_WalkAndLookupAgreeOnAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	cellDir := filepath.Join(root, "mycell")
	require.NoError(t, os.MkdirAll(cellDir, 0o755))

	r := newCgroupResolver(root)
	r.walk()

	info, err := os.Stat(cellDir)
	require.NoError(t, err)

	inode := inodeOf(t, info)

	path, ok := r.lookup(inode)
	require.True(t, ok)
	require.Equal(t, cellDir, path, "cached path must be absolute to compare against pidInCell's target")
}
