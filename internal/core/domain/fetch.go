package domain

import (
	"errors"
	"fmt"
)

// FetchFailure classifies why an entry could not be fetched.
type FetchFailure int

// Fetch failure kinds.
const (
	FetchRejected FetchFailure = iota + 1
	FetchTimeout
	FetchCancelled
	FetchAuthenticityFailed
)

// String returns the failure name.
func (f FetchFailure) String() string {
	switch f {
	case FetchRejected:
		return "rejected"
	case FetchTimeout:
		return "timeout"
	case FetchCancelled:
		return "cancelled"
	case FetchAuthenticityFailed:
		return "authenticity failed"
	default:
		return "unknown"
	}
}

// FetchError reports a failed fetch of one entry.
type FetchError struct {
	Kind   FetchFailure
	Writer WriterID
	Seq    uint64
	Err    error
}

// NewFetchError creates a FetchError.
func NewFetchError(kind FetchFailure, w WriterID, seq uint64, err error) *FetchError {
	return &FetchError{Kind: kind, Writer: w, Seq: seq, Err: err}
}

// Error implements error.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetching %s: %s", EntryName(e.Writer, e.Seq), e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchFailureOf extracts the failure kind from err, if it carries one.
func FetchFailureOf(err error) (FetchFailure, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
