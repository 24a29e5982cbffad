package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("not found")

// ValidationError reports a violated precondition on input or state. Field
// names the form field the UI should flag; it may be empty.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError reports that the assumed prior state of a record did not
// hold at mutation time. Callers re-fetch and retry the whole operation.
type ConflictError struct {
	Reason string
}

func NewConflictError(reason string) *ConflictError {
	return &ConflictError{Reason: reason}
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// PartialFailureError reports a multi-item operation that succeeded for some
// items and failed for others. Failed holds the ids worth retrying.
type PartialFailureError struct {
	Operation string
	Succeeded []string
	Failed    []string
	Causes    map[string]error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed [%s]",
		e.Operation, len(e.Succeeded), len(e.Failed), strings.Join(e.Failed, ", "))
}

// Add records the outcome for a single item.
func (e *PartialFailureError) Add(id string, err error) {
	if err == nil {
		e.Succeeded = append(e.Succeeded, id)
		return
	}
	e.Failed = append(e.Failed, id)
	if e.Causes == nil {
		e.Causes = make(map[string]error)
	}
	e.Causes[id] = err
}

// OrNil returns e only when at least one item failed.
func (e *PartialFailureError) OrNil() error {
	if e == nil || len(e.Failed) == 0 {
		return nil
	}
	return e
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsPartialFailure(err error) bool {
	var p *PartialFailureError
	return errors.As(err, &p)
}
