// Package cgroup implements the two-level cgroup-v2 controller used
// to scope every Cell: a non-leaf cgroup carrying the resource
// controllers, and a leaf `_` cgroup holding the tasks, so the
// cgroup-v2 "no internal processes" rule is satisfied.
//
// Grounded on canonical-lxd/lxd/cgroup/abstraction.go (controller key
// names: cpu.weight, cpu.max, memory.min/low/high/max, cpuset.cpus,
// cpuset.mems, pids.max) and lxd/cgroup/file.go (direct cgroupfs I/O).
package cgroup

// leafName is the reserved suffix used for the leaf cgroup. It is safe
// because the CellName grammar forbids underscores.
const leafName = "_"

// cpuPeriodMicros is the hard-coded cpu.max period.
const cpuPeriodMicros = 1_000_000

// CPUSpec carries the validated CPU controller knobs.
type CPUSpec struct {
	// WeightSet/Weight map to cpu.weight (1-10000, default 100).
	WeightSet bool
	Weight    uint64

	// MaxMicrosSet/MaxMicros map to the quota half of cpu.max; -1
	// (MaxMicrosSet true, MaxMicros < 0) means unconstrained ("max").
	MaxMicrosSet bool
	MaxMicros    int64
}

// CpusetSpec carries the validated cpuset controller knobs.
type CpusetSpec struct {
	CpusSet bool
	Cpus    string

	MemsSet bool
	Mems    string
}

// MemorySpec carries the validated memory controller knobs.
type MemorySpec struct {
	MinSet  bool
	Min     int64
	LowSet  bool
	Low     int64
	HighSet bool
	High    int64
	MaxSet  bool
	Max     int64
}

// Spec is the validated cgroup configuration for a Cell.
type Spec struct {
	CPU    *CPUSpec
	Cpuset *CpusetSpec
	Memory *MemorySpec
}

// Stats reports point-in-time cgroup usage. Defined but not yet wired
// to any RPC.
type Stats struct {
	PidsCurrent   int64
	MemoryCurrent int64
}
