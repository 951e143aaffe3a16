package dao

import "errors"

// Shared persistence errors. Sentinel variables let callers detect the
// condition via errors.Is instead of brittle string comparisons.

var (
	// ErrNotFound is returned when the requested record does not exist in the
	// underlying storage.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates that the supplied id is empty or otherwise
	// unusable as a key.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist a nil
	// pointer.
	ErrNilEntity = errors.New("dao: nil entity")
)
