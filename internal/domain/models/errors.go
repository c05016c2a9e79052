package models

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited marks a sample dropped because it arrived too soon after the last admitted one.
	ErrRateLimited = errors.New("sample rate exceeded")
	// ErrNotAcquiring marks an admitted, valid sample discarded because acquisition is stopped.
	ErrNotAcquiring = errors.New("acquisition not started")
	// ErrVideoNotFound marks a lookup for a video that was never stored.
	ErrVideoNotFound = errors.New("video not found")
	// ErrInvalidName marks a client-supplied file name that could escape its directory.
	ErrInvalidName = errors.New("invalid file name")
)

// ValidationError reports a malformed inbound sample.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validate sample: field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("validate sample: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StorageError reports a failed flush write. The buffer is left intact.
type StorageError struct {
	Name string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Name, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
