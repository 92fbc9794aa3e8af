// Package validation implements the Cell path grammar: a
// slash-delimited sequence of DNS-label components, none of which may
// contain an underscore (reserved for the leaf cgroup suffix).
package validation

import (
	"regexp"
	"strings"

	"github.com/aurae-runtime/auraed/internal/aeerror"
)

// maxCellNameLength bounds the full path, matching the standard
// DNS-name length convention (each label is separately capped at 63).
const maxCellNameLength = 253

var labelRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// CellName is a validated, ordered sequence of path labels.
type CellName struct {
	labels []string
}

// Parse trims bounding separators, splits on "/", and validates each
// component. Empty input is rejected.
func Parse(raw string) (CellName, error) {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return CellName{}, aeerror.Validation("cell_name", errEmpty)
	}

	if len(trimmed) > maxCellNameLength {
		return CellName{}, aeerror.Validation("cell_name", errTooLong)
	}

	labels := strings.Split(trimmed, "/")
	for _, label := range labels {
		if strings.Contains(label, "_") {
			return CellName{}, aeerror.Validation("cell_name", errUnderscore)
		}

		if !labelRE.MatchString(label) {
			return CellName{}, aeerror.Validation("cell_name", errBadLabel)
		}
	}

	return CellName{labels: labels}, nil
}

// String renders the canonical slash-joined path.
func (c CellName) String() string {
	return strings.Join(c.labels, "/")
}

// Labels returns the ordered path components.
func (c CellName) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)

	return out
}

// Leaf returns the last path component.
func (c CellName) Leaf() string {
	if len(c.labels) == 0 {
		return ""
	}

	return c.labels[len(c.labels)-1]
}

// ToRoot returns the top-level ancestor of this cell name.
func (c CellName) ToRoot() CellName {
	if len(c.labels) == 0 {
		return c
	}

	return CellName{labels: c.labels[:1]}
}

// IsChildOf reports whether c is an immediate child of parent. A nil
// parent asks whether c is itself a root (single-label) cell name.
func (c CellName) IsChildOf(parent *CellName) bool {
	if parent == nil {
		return len(c.labels) == 1
	}

	if len(c.labels) != len(parent.labels)+1 {
		return false
	}

	for i, label := range parent.labels {
		if c.labels[i] != label {
			return false
		}
	}

	return true
}

// ToChild returns the immediate descendant of c along the path to
// descendant, or false if descendant is not a strict descendant of c.
func (c CellName) ToChild(descendant CellName) (CellName, bool) {
	if len(descendant.labels) <= len(c.labels) {
		return CellName{}, false
	}

	for i, label := range c.labels {
		if descendant.labels[i] != label {
			return CellName{}, false
		}
	}

	return CellName{labels: descendant.labels[:len(c.labels)+1]}, true
}

// Empty reports whether the cell name has no remaining path segments;
// used by the RPC router to detect the local-daemon target.
func (c CellName) Empty() bool {
	return len(c.labels) == 0
}

// PopFirst splits c into its first label and the remainder path,
// consumed by the RPC router when forwarding to a child daemon.
func (c CellName) PopFirst() (first string, rest CellName, ok bool) {
	if len(c.labels) == 0 {
		return "", CellName{}, false
	}

	return c.labels[0], CellName{labels: c.labels[1:]}, true
}
