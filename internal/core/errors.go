package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPath = errors.New("invalid document path")
	ErrEmptyReport = errors.New("report has no rows")
	ErrYearClosed  = errors.New("fiscal year already closed")
)

// ValidationError collects every rejected field of an input, keyed by field
// path, so callers can present all problems at once.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an error for a single field.
func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add records a message for field. The first message for a field wins.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, exists := v.Fields[field]; !exists {
		v.Fields[field] = msg
	}
}

// Merge copies the fields of another validation error into v.
func (v *ValidationError) Merge(err error) {
	var other *ValidationError
	if errors.As(err, &other) {
		for f, m := range other.Fields {
			v.Add(f, m)
		}
	}
}

// Err returns v when it holds at least one field, nil otherwise.
func (v *ValidationError) Err() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// InsufficientBalanceError reports a funding allocation that would overdraw
// a credit.
type InsufficientBalanceError struct {
	CreditID  string
	Available Money
	Requested Money
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on credit %s: available %s, requested %s",
		e.CreditID, e.Available, e.Requested)
}

// ReferentialIntegrityError blocks the removal of an entity still referenced
// by others.
type ReferentialIntegrityError struct {
	Entity       string
	ID           string
	ReferencedBy []string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %s is referenced by %d record(s): %s",
		e.Entity, e.ID, len(e.ReferencedBy), strings.Join(e.ReferencedBy, ", "))
}

// StoreError wraps a document store failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore attaches op to err unless err is nil or already a StoreError.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
