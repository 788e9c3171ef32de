package model

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a category or template id that does not exist.
// Deletes treat it as a silent no-op and reads as a nil result, so it never
// crosses the UI boundary.
var ErrNotFound = errors.New("not found")

// StorageError wraps a failure of the underlying persistence layer. It is the
// only error class a mutator propagates: a failed local write genuinely failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SyncError wraps an auth, network or remote failure. It is always caught at
// the sync coordinator boundary and only ever logged.
type SyncError struct {
	Op         string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync: %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// IsStorage reports whether err is (or wraps) a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
