// Package aeerror defines the typed error taxonomy returned by the
// Cell/Executable core, so every RPC can surface a stable error code
// alongside a human-readable message.
package aeerror

import "fmt"

// Code identifies a class of failure from the Cell/Executable core.
type Code string

// Error codes returned across the RPC surface.
const (
	CodeValidation               Code = "validation"
	CodeCellExists               Code = "cell_exists"
	CodeCellNotFound             Code = "cell_not_found"
	CodeCellNotAllocated         Code = "cell_not_allocated"
	CodeFailedToAllocateCell     Code = "failed_to_allocate_cell"
	CodeAbortedAllocateCell      Code = "aborted_allocate_cell"
	CodeFailedToFreeCell         Code = "failed_to_free_cell"
	CodeFailedToKillCellChildren Code = "failed_to_kill_cell_children"
	CodeCreateCgroup             Code = "create_cgroup"
	CodeAddTaskToCgroup          Code = "add_task_to_cgroup"
	CodeDeleteCgroup             Code = "delete_cgroup"
	CodeReadStats                Code = "read_stats"
)

// Error is a typed, wrapped error carrying the code an RPC caller needs
// plus the underlying cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newErr(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Validation reports an invalid input field.
func Validation(field string, cause error) *Error {
	return newErr(CodeValidation, fmt.Sprintf("invalid field %q", field), cause)
}

// CellExists reports a duplicate allocate.
func CellExists(cellName string) *Error {
	return newErr(CodeCellExists, fmt.Sprintf("cell %q already exists", cellName), nil)
}

// CellNotFound reports a missing cell in the cache.
func CellNotFound(cellName string) *Error {
	return newErr(CodeCellNotFound, fmt.Sprintf("cell %q not found", cellName), nil)
}

// CellNotAllocated reports an operation against an Unallocated/Freed cell.
func CellNotAllocated(cellName string) *Error {
	return newErr(CodeCellNotAllocated, fmt.Sprintf("cell %q is not allocated", cellName), nil)
}

// FailedToAllocateCell wraps a failure during allocate with no partial
// side effects to roll back.
func FailedToAllocateCell(cellName string, cause error) *Error {
	return newErr(CodeFailedToAllocateCell, fmt.Sprintf("failed to allocate cell %q", cellName), cause)
}

// AbortedAllocateCell wraps a failure during allocate whose partial side
// effects were best-effort rolled back.
func AbortedAllocateCell(cellName string, cause error) *Error {
	return newErr(CodeAbortedAllocateCell, fmt.Sprintf("aborted allocate of cell %q", cellName), cause)
}

// FailedToFreeCell wraps a best-effort failure during free.
func FailedToFreeCell(cellName string, cause error) *Error {
	return newErr(CodeFailedToFreeCell, fmt.Sprintf("failed to cleanly free cell %q", cellName), cause)
}

// FailedToKillCellChildren wraps a best-effort failure broadcasting a
// kill into child cells.
func FailedToKillCellChildren(cellName string, cause error) *Error {
	return newErr(CodeFailedToKillCellChildren, fmt.Sprintf("failed to kill children of cell %q", cellName), cause)
}

// CreateCgroup wraps a cgroup creation failure.
func CreateCgroup(cellName string, cause error) *Error {
	return newErr(CodeCreateCgroup, fmt.Sprintf("failed to create cgroup for %q", cellName), cause)
}

// AddTaskToCgroup wraps a task-attach failure.
func AddTaskToCgroup(cellName string, pid int, cause error) *Error {
	return newErr(CodeAddTaskToCgroup, fmt.Sprintf("failed to add pid %d to cgroup for %q", pid, cellName), cause)
}

// DeleteCgroup wraps a cgroup deletion failure.
func DeleteCgroup(cellName string, cause error) *Error {
	return newErr(CodeDeleteCgroup, fmt.Sprintf("failed to delete cgroup for %q", cellName), cause)
}

// ReadStats wraps a cgroup stats read failure.
func ReadStats(cellName string, cause error) *Error {
	return newErr(CodeReadStats, fmt.Sprintf("failed to read cgroup stats for %q", cellName), cause)
}
