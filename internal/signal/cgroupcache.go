package signal

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// cgroupResolver maps a cgroup directory's inode to its path, populated
// lazily on a directory walk when a pid's cgroup membership needs to be
// checked against a subscriber's requested cell. The cache never
// invalidates; it should eventually be bounded with an LRU or TTL.
type cgroupResolver struct {
	root string

	mu        sync.Mutex
	inodeToPath map[uint64]string
}

func newCgroupResolver(root string) *cgroupResolver {
	return &cgroupResolver{root: root, inodeToPath: map[uint64]string{}}
}

// pidInCell reports whether pid's cgroup is cellPath or a descendant
// of it. A miss triggers a walk of the cgroup tree to (re)populate the
// inode cache, then a second lookup.
func (r *cgroupResolver) pidInCell(pid uint32, cellPath string) bool {
	inode, err := r.cgroupInodeOf(pid)
	if err != nil {
		return false
	}

	path, ok := r.lookup(inode)
	if !ok {
		r.walk()

		path, ok = r.lookup(inode)
		if !ok {
			return false
		}
	}

	target := filepath.Join(r.root, cellPath)

	return path == target || isDescendant(target, path)
}

func (r *cgroupResolver) lookup(inode uint64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, ok := r.inodeToPath[inode]

	return path, ok
}

// cgroupInodeOf reads /proc/<pid>/cgroup to find the unified (v2)
// cgroup path, then stats that directory for its inode.
func (r *cgroupResolver) cgroupInodeOf(pid uint32) (uint64, error) {
	path, err := cgroupPathOf(pid)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(filepath.Join(r.root, path))
	if err != nil {
		return 0, err
	}

	stat, ok := info.Sys().(*unix.Stat_t)
	if !ok {
		return 0, os.ErrInvalid
	}

	return stat.Ino, nil
}

// walk rebuilds the inode cache by descending the cgroup-v2 hierarchy
// under root.
func (r *cgroupResolver) walk() {
	fresh := map[uint64]string{}

	_ = filepath.WalkDir(r.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}

		stat, ok := info.Sys().(*unix.Stat_t)
		if !ok {
			return nil
		}

		fresh[stat.Ino] = path

		return nil
	})

	r.mu.Lock()
	for ino, path := range fresh {
		r.inodeToPath[ino] = path
	}
	r.mu.Unlock()
}

func isDescendant(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}

	return rel != ".." && !filepathHasDotDotPrefix(rel)
}

func filepathHasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}

// cgroupPathOf parses /proc/<pid>/cgroup for the unified hierarchy
// entry ("0::/path"); this daemon assumes cgroup-v2 only.
func cgroupPathOf(pid uint32) (string, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.FormatUint(uint64(pid), 10), "cgroup"))
	if err != nil {
		return "", err
	}

	const prefix = "0::"

	for _, line := range splitLines(data) {
		if len(line) > len(prefix) && line[:len(prefix)] == prefix {
			return line[len(prefix):], nil
		}
	}

	return "", os.ErrNotExist
}

func splitLines(data []byte) []string {
	var lines []string

	start := 0

	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}

	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}

	return lines
}
