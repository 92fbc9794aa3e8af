package cellservice

// AllocateRequest is the wire shape of CellService.Allocate.
type AllocateRequest struct {
	CellName string        `json:"cell_name"`
	Cgroup   CgroupSpec    `json:"cgroup_spec"`
	Iso      IsolationSpec `json:"isolation_controls"`
}

// CgroupSpec is the wire shape of CellSpec's CgroupSpec. Pointers
// distinguish "not set" from the controller's zero value.
type CgroupSpec struct {
	CPU    *CPUSpec    `json:"cpu,omitempty"`
	Cpuset *CpusetSpec `json:"cpuset,omitempty"`
	Memory *MemorySpec `json:"memory,omitempty"`
}

// CPUSpec is the wire shape of the CPU controller knobs.
type CPUSpec struct {
	Weight    *uint64 `json:"weight,omitempty"`
	MaxMicros *int64  `json:"max_micros,omitempty"`
}

// CpusetSpec is the wire shape of the cpuset controller knobs.
type CpusetSpec struct {
	Cpus *string `json:"cpus,omitempty"`
	Mems *string `json:"mems,omitempty"`
}

// MemorySpec is the wire shape of the memory controller knobs.
type MemorySpec struct {
	Min *int64 `json:"min,omitempty"`
	Low *int64 `json:"low,omitempty"`
	Max *int64 `json:"max,omitempty"`
	// High is split from Max because cgroup-v2 treats memory.high as a
	// soft throttle point distinct from the hard memory.max ceiling.
	High *int64 `json:"high,omitempty"`
}

// IsolationSpec is the wire shape of IsolationControls.
type IsolationSpec struct {
	IsolateProcess bool `json:"isolate_process"`
	IsolateNetwork bool `json:"isolate_network"`
}

// AllocateResponse reports the canonical cell name and that this
// daemon only ever runs cgroup-v2.
type AllocateResponse struct {
	CellName string `json:"cell_name"`
	CgroupV2 bool   `json:"cgroup_v2"`
}

// FreeRequest is the wire shape of CellService.Free.
type FreeRequest struct {
	CellName string `json:"cell_name"`
}

// StartRequest is the wire shape of CellService.Start.
type StartRequest struct {
	CellName          string `json:"cell_name"`
	ExecutableName    string `json:"executable_name"`
	ExecutableDesc    string `json:"executable_description"`
	ExecutableCommand string `json:"executable_command"`
}

// StartResponse reports the spawned executable's host pid.
type StartResponse struct {
	Pid int `json:"pid"`
}

// StopRequest is the wire shape of CellService.Stop.
type StopRequest struct {
	CellName       string `json:"cell_name"`
	ExecutableName string `json:"executable_name"`
}

// DiscoverResponse is the health/version endpoint, rendered after
// LXD's /1.0 root endpoint.
type DiscoverResponse struct {
	Healthy    bool   `json:"healthy"`
	APIVersion string `json:"api_version"`
}

// APIVersion is the CellService/ObserveService API version this build
// implements.
const APIVersion = "0.1.0"

// signalEvent is the wire shape of one GetPosixSignalsStream record.
type signalEvent struct {
	Pid   uint32 `json:"pid"`
	Signr uint32 `json:"signr"`
}

// apiError is the stable error-code envelope every handler returns on
// failure: a typed status with a stable error code and a
// human-readable message.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
