package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrRunInProgress = errors.New("update run already in progress")
)

// FetchError is a network or decoding failure reported by one source adapter.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Source, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// OrganizeError is a store failure during one of the merge stages.
type OrganizeError struct {
	Stage string
	Err   error
}

func (e *OrganizeError) Error() string { return fmt.Sprintf("organize %s: %v", e.Stage, e.Err) }
func (e *OrganizeError) Unwrap() error { return e.Err }

// ValidationStoreError is a store failure while validating or reporting.
type ValidationStoreError struct {
	Op  string
	Err error
}

func (e *ValidationStoreError) Error() string { return fmt.Sprintf("validate %s: %v", e.Op, e.Err) }
func (e *ValidationStoreError) Unwrap() error { return e.Err }
