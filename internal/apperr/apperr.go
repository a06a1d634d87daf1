// Package apperr defines the error types returned by the inventory core.
// Callers match them with errors.As; the API layer maps each type to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Violation is a single field-level validation problem.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// ValidationError carries every violation found, not only the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validation returns a *ValidationError for vs, or nil when vs is empty.
func Validation(vs []Violation) error {
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

// Invalid is shorthand for a single-violation ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Violations: []Violation{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

// NotFoundError reports a missing item, location or category.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// NotFound returns a *NotFoundError.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// DuplicateError reports a uniqueness violation.
type DuplicateError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// CycleError is returned when a reparent would make a location its own ancestor.
type CycleError struct {
	LocationID int64
	ParentID   int64
}

func (e *CycleError) Error() string {
	if e.LocationID == e.ParentID {
		return fmt.Sprintf("location %d cannot be its own parent", e.LocationID)
	}
	return fmt.Sprintf("location %d cannot move under its descendant %d", e.LocationID, e.ParentID)
}

// InsufficientQuantityError is returned when a move or adjustment would drive
// an inventory entry negative.
type InsufficientQuantityError struct {
	ItemID     int64
	LocationID int64
	Available  int
	Requested  int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity of item %d at location %d: have %d, need %d",
		e.ItemID, e.LocationID, e.Available, e.Requested)
}

// ConflictError reports an optimistic version mismatch.
type ConflictError struct {
	Entity   string
	ID       int64
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently: expected version %d, found %d",
		e.Entity, e.ID, e.Expected, e.Actual)
}

// ConfigurationError reports a misconfigured optional collaborator.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s misconfigured: %s", e.Component, e.Reason)
}

// InfrastructureError wraps persistence and transport failures so they stay
// distinct from business-rule errors.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// Infra wraps err as an *InfrastructureError unless it already is one of the
// typed errors in this package, in which case it is returned unchanged.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	var ie *InfrastructureError
	if errors.As(err, &ie) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

// IsDomain reports whether err is a business-rule error rather than an
// infrastructure failure.
func IsDomain(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		de *DuplicateError
		ce *CycleError
		iq *InsufficientQuantityError
		cf *ConflictError
		cg *ConfigurationError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &de) ||
		errors.As(err, &ce) || errors.As(err, &iq) || errors.As(err, &cf) || errors.As(err, &cg)
}
