package local

import "errors"

var (
	// ErrNotFound is returned when no value is stored under a key
	ErrNotFound = errors.New("not found")

	// ErrDecode is returned when a stored value is not valid JSON for the target
	ErrDecode = errors.New("decode json")

	// ErrInvalidKey is returned for keys that would escape the base directory
	ErrInvalidKey = errors.New("invalid key")
)
