package validation

import "errors"

var (
	errEmpty      = errors.New("cell name must not be empty")
	errTooLong    = errors.New("cell name exceeds maximum length")
	errUnderscore = errors.New("cell name components must not contain '_'")
	errBadLabel   = errors.New("cell name component is not a valid DNS label")
)
