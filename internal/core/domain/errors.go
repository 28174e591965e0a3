package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Document and patch errors.

	// ErrInvalidDocument indicates a document is missing its path or has a
	// version that is not a non-negative integer.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidPatch indicates a patch is missing a required field, carries an
	// unknown op, or cannot be applied to its base document.
	ErrInvalidPatch = errors.New("invalid patch")

	// ErrObjectNotFound indicates a non-new patch or a resolve targeted a path
	// with no stored version.
	ErrObjectNotFound = errors.New("object not found")

	// ErrDecode indicates payload bytes could not be parsed into a patch.
	ErrDecode = errors.New("decode failure")

	// ErrConflict indicates a patch's prev did not match the latest version.
	// Only raised when prev checking is enabled.
	ErrConflict = errors.New("version conflict")

	// ErrCycle indicates a document references itself through its children.
	ErrCycle = errors.New("children cycle")

	// Sync errors.

	// ErrStopped indicates the reconciler has been shut down.
	ErrStopped = errors.New("reconciler stopped")
)
