package domain

import "errors"

var (
	// ErrValidation marks caller mistakes that are rejected before any persistence.
	ErrValidation = errors.New("validation error")
	// ErrNotFound covers missing records and ownership mismatches alike, so a
	// cross-user lookup is indistinguishable from a record that never existed.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state transitions rejected by the store.
	ErrConflict = errors.New("conflict")
)
