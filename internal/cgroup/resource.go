package cgroup

import (
	"fmt"
	"strconv"
)

// controllerFile pairs a cgroup-v2 interface file with the controller
// name that must be enabled in the parent's cgroup.subtree_control for
// it to take effect.
type controllerFile struct {
	controller string
	file       string
	value      string
}

// toControllerFiles translates a validated Spec into the set of
// cgroupfs interface files to write on the non-leaf cgroup, and the
// controllers that must be enabled on every ancestor, matching
// canonical-lxd/lxd/cgroup/abstraction.go's per-controller key names.
func toControllerFiles(spec Spec) []controllerFile {
	var out []controllerFile

	if spec.CPU != nil {
		if spec.CPU.WeightSet {
			out = append(out, controllerFile{"cpu", "cpu.weight", strconv.FormatUint(spec.CPU.Weight, 10)})
		}

		if spec.CPU.MaxMicrosSet {
			quota := "max"
			if spec.CPU.MaxMicros >= 0 {
				quota = strconv.FormatInt(spec.CPU.MaxMicros, 10)
			}

			out = append(out, controllerFile{"cpu", "cpu.max", fmt.Sprintf("%s %d", quota, cpuPeriodMicros)})
		}
	}

	if spec.Cpuset != nil {
		if spec.Cpuset.CpusSet {
			out = append(out, controllerFile{"cpuset", "cpuset.cpus", spec.Cpuset.Cpus})
		}

		if spec.Cpuset.MemsSet {
			out = append(out, controllerFile{"cpuset", "cpuset.mems", spec.Cpuset.Mems})
		}
	}

	if spec.Memory != nil {
		out = append(out, memoryControllerFiles(spec.Memory)...)
	}

	return out
}

func memoryControllerFiles(m *MemorySpec) []controllerFile {
	var out []controllerFile

	add := func(set bool, file string, value int64) {
		if !set {
			return
		}

		rendered := "max"
		if value >= 0 {
			rendered = strconv.FormatInt(value, 10)
		}

		out = append(out, controllerFile{"memory", file, rendered})
	}

	add(m.MinSet, "memory.min", m.Min)
	add(m.LowSet, "memory.low", m.Low)
	add(m.HighSet, "memory.high", m.High)
	add(m.MaxSet, "memory.max", m.Max)

	return out
}

// controllersOf returns the distinct controller names a Spec touches,
// used to populate cgroup.subtree_control on ancestor directories.
func controllersOf(files []controllerFile) []string {
	seen := map[string]bool{}

	var out []string

	for _, f := range files {
		if seen[f.controller] {
			continue
		}

		seen[f.controller] = true

		out = append(out, f.controller)
	}

	return out
}
