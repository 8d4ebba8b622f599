// Package linkage holds the error taxonomy shared by the link synchronization
// engine, its stores and its SQL dialect layer.
//
// Errors fall in four families:
//
//   - ConfigError: invalid association configuration, raised at configuration time.
//   - PreconditionError: a record is not persisted or lacks its primary key.
//   - ShapeError: an association property holds a value that cannot be traversed.
//   - PersistenceError: an underlying find/save/delete failed.
//
// Use errors.Is with the sentinels, or the IsXxx helpers, to classify them.
package linkage

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("linkage: record not found")

	// ErrInvalidConfig is matched by every ConfigError.
	ErrInvalidConfig = errors.New("linkage: invalid configuration")

	// ErrPrecondition is matched by every PreconditionError.
	ErrPrecondition = errors.New("linkage: precondition failed")

	// ErrShape is matched by every ShapeError.
	ErrShape = errors.New("linkage: malformed association value")

	// ErrPersistence is matched by every PersistenceError.
	ErrPersistence = errors.New("linkage: persistence failed")
)

// NotFoundError represents an error when a record is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("linkage: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("linkage: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the collection label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the key that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given collection and key.
func NewNotFoundError(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConfigError reports an invalid association option. It is raised while
// configuring and is never retried.
type ConfigError struct {
	Option  string // Option name, e.g. "save strategy"
	Value   any    // Offending value, if any
	Message string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("linkage: invalid %s %q was provided: %s", e.Option, fmt.Sprint(e.Value), e.Message)
	}
	return fmt.Sprintf("linkage: %s: %s", e.Option, e.Message)
}

// Is reports whether the target matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError returns a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// PreconditionError reports a call made with records in the wrong state.
// The caller must fix the records (usually persist them) before retrying.
type PreconditionError struct {
	Op      string // Operation, e.g. "link"
	Message string
}

// Error returns the error string.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("linkage: %s: %s", e.Op, e.Message)
}

// Is reports whether the target matches ErrPrecondition.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// NewPreconditionError returns a new PreconditionError.
func NewPreconditionError(op, message string) *PreconditionError {
	return &PreconditionError{Op: op, Message: message}
}

// IsPreconditionError returns true if the error is a PreconditionError.
func IsPreconditionError(err error) bool {
	if err == nil {
		return false
	}
	var e *PreconditionError
	return errors.As(err, &e)
}

// ShapeError reports an association value that is neither empty nor a
// sequence, or a sequence holding an entry that cannot be saved.
type ShapeError struct {
	Property string
	Value    any
	Reason   string // empty for a value that is not a sequence
}

// Error returns the error string.
func (e *ShapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("linkage: cannot save association value %q: %s", e.Property, e.Reason)
	}
	return fmt.Sprintf("linkage: cannot save association value %q: not traversable (got %T)", e.Property, e.Value)
}

// Is reports whether the target matches ErrShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// NewShapeError returns a new ShapeError.
func NewShapeError(property string, value any) *ShapeError {
	return &ShapeError{Property: property, Value: value}
}

// NewNilEntryError returns a ShapeError for a nil entry at index i.
func NewNilEntryError(property string, i int) *ShapeError {
	return &ShapeError{Property: property, Reason: fmt.Sprintf("nil entry at index %d", i)}
}

// IsShapeError returns true if the error is a ShapeError.
func IsShapeError(err error) bool {
	if err == nil {
		return false
	}
	var e *ShapeError
	return errors.As(err, &e)
}

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Entity string // Collection alias
	Op     string // Operation, e.g. "find", "save", "delete"
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("linkage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError returns a new PersistenceError.
func NewPersistenceError(entity, op string, err error) *PersistenceError {
	return &PersistenceError{Entity: entity, Op: op, Err: err}
}

// IsPersistenceError returns true if the error is a PersistenceError.
func IsPersistenceError(err error) bool {
	if err == nil {
		return false
	}
	var e *PersistenceError
	return errors.As(err, &e)
}

// ConstraintError represents a database constraint violation error,
// e.g. a duplicate (foreignKey, targetForeignKey) pair in a junction.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("linkage: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("linkage: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "linkage: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("linkage: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
