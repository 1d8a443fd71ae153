package checkin

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage wraps any persistence failure during lookup or mutation.
	ErrStorage = errors.New("check-in storage failure")
	// ErrRecordNotFound is returned by a Ledger when the referenced record does not exist.
	ErrRecordNotFound = errors.New("check-in record not found")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StageError records which pipeline stage a storage failure happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}
