package validation

import "strings"

// ParsePathCell parses a possibly-empty cell path from a wire request
// field. An empty string targets the local daemon. Unlike Parse, this
// does not require the result to be non-empty; a non-empty path has
// every label validated by Parse. Each hop re-validates because the
// child receives a plain request.
func ParsePathCell(raw string) (CellName, error) {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return CellName{}, nil
	}

	return Parse(trimmed)
}
