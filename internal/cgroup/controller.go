package cgroup

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aurae-runtime/auraed/internal/aeerror"
	"github.com/aurae-runtime/auraed/internal/validation"
)

const dirMode = 0o755

// Controller owns the two cgroup-v2 directories backing one Cell: a
// non-leaf directory carrying the resource controllers, and a leaf "_"
// directory holding the tasks.
type Controller struct {
	nonLeaf string
	leaf    string
}

// New creates the non-leaf/leaf pair under root for cellName, applies
// spec to the non-leaf directory, enables the touched controllers on
// every ancestor's cgroup.subtree_control, and attaches pid to the
// leaf. Any failure unwinds what was already created.
func New(root string, cellName validation.CellName, spec Spec, pid int) (*Controller, error) {
	nonLeaf := filepath.Join(root, filepath.Join(cellName.Labels()...))
	leaf := filepath.Join(nonLeaf, leafName)

	c := &Controller{nonLeaf: nonLeaf, leaf: leaf}

	files := toControllerFiles(spec)
	controllers := controllersOf(files)

	if err := enableAncestorControllers(root, cellName, controllers); err != nil {
		return nil, aeerror.CreateCgroup(cellName.String(), err)
	}

	if err := os.MkdirAll(nonLeaf, dirMode); err != nil {
		return nil, aeerror.CreateCgroup(cellName.String(), err)
	}

	for _, f := range files {
		if err := writeFile(filepath.Join(nonLeaf, f.file), f.value); err != nil {
			_ = c.Delete()
			return nil, aeerror.CreateCgroup(cellName.String(), err)
		}
	}

	if err := os.MkdirAll(leaf, dirMode); err != nil {
		_ = c.Delete()
		return nil, aeerror.CreateCgroup(cellName.String(), err)
	}

	if err := c.AddTask(pid); err != nil {
		_ = c.Delete()
		return nil, aeerror.AddTaskToCgroup(cellName.String(), pid, err)
	}

	return c, nil
}

// Load reattaches to a cgroup pair that was already created by New in
// a previous process, without touching cgroupfs. Used when the Cell
// tracking that created it is not the one issuing AddTask/Delete (for
// instance after a daemon restart scanning existing cgroups).
func Load(root string, cellName validation.CellName) *Controller {
	nonLeaf := filepath.Join(root, filepath.Join(cellName.Labels()...))

	return &Controller{nonLeaf: nonLeaf, leaf: filepath.Join(nonLeaf, leafName)}
}

// Exists reports whether the non-leaf cgroup directory is present.
func Exists(root string, cellName validation.CellName) bool {
	nonLeaf := filepath.Join(root, filepath.Join(cellName.Labels()...))

	info, err := os.Stat(nonLeaf)

	return err == nil && info.IsDir()
}

// AddTask moves pid into the leaf cgroup by writing cgroup.procs.
func (c *Controller) AddTask(pid int) error {
	return writeFile(filepath.Join(c.leaf, "cgroup.procs"), strconv.Itoa(pid))
}

// Delete removes the leaf directory then the non-leaf directory.
// Removal order matters: cgroupfs refuses to rmdir a non-empty
// hierarchy. Best-effort: the leaf removal failing does not stop the
// attempt on the non-leaf.
func (c *Controller) Delete() error {
	errLeaf := os.Remove(c.leaf)

	errNonLeaf := os.Remove(c.nonLeaf)
	if errNonLeaf != nil {
		return errNonLeaf
	}

	return errLeaf
}

// Stats reads point-in-time usage from the leaf cgroup. Kept for
// future RPC exposure; not currently reachable from any CellService
// operation.
func (c *Controller) Stats() (Stats, error) {
	pids, err := readInt(filepath.Join(c.leaf, "pids.current"))
	if err != nil {
		return Stats{}, err
	}

	mem, err := readInt(filepath.Join(c.leaf, "memory.current"))
	if err != nil {
		return Stats{}, err
	}

	return Stats{PidsCurrent: pids, MemoryCurrent: mem}, nil
}

// enableAncestorControllers walks every ancestor directory of
// cellName, from root down to its parent, and idempotently appends the
// required controllers to each cgroup.subtree_control. A controller
// only takes effect on children once a parent enables it, per the
// cgroup-v2 delegation model.
func enableAncestorControllers(root string, cellName validation.CellName, controllers []string) error {
	if len(controllers) == 0 {
		return nil
	}

	if err := enableSubtreeControl(root, controllers); err != nil {
		return err
	}

	labels := cellName.Labels()
	dir := root

	for i := 0; i < len(labels)-1; i++ {
		dir = filepath.Join(dir, labels[i])

		if err := os.MkdirAll(dir, dirMode); err != nil {
			return err
		}

		if err := enableSubtreeControl(dir, controllers); err != nil {
			return err
		}
	}

	return nil
}

func enableSubtreeControl(dir string, controllers []string) error {
	var b strings.Builder

	for _, ctl := range controllers {
		b.WriteString("+")
		b.WriteString(ctl)
		b.WriteString(" ")
	}

	return writeFile(filepath.Join(dir, "cgroup.subtree_control"), strings.TrimSpace(b.String()))
}
