package cassava

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("cassava: entity not found")

	// ErrIncorrectResultSize is returned when a query that expects at most one
	// result returns more.
	ErrIncorrectResultSize = errors.New("cassava: incorrect result size")

	// ErrInvalidIdentifier is returned for names that cannot form a CQL identifier.
	ErrInvalidIdentifier = errors.New("cassava: invalid identifier")

	// ErrInvalidMapping is returned for entity declarations that cannot be
	// mapped, and for values that cannot be converted.
	ErrInvalidMapping = errors.New("cassava: invalid mapping")

	// ErrQueryCreation is returned when a repository method cannot be turned
	// into a statement.
	ErrQueryCreation = errors.New("cassava: query creation failed")

	// ErrOptimisticLocking is returned when a versioned write was not applied.
	ErrOptimisticLocking = errors.New("cassava: optimistic locking failure")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("cassava: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("cassava: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
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

// IncorrectResultSizeError is returned by single-result executions that
// received more rows than expected.
type IncorrectResultSizeError struct {
	Expected int
	Actual   int
}

// Error returns the error string.
func (e *IncorrectResultSizeError) Error() string {
	return fmt.Sprintf("cassava: incorrect result size: expected %d, actual %d", e.Expected, e.Actual)
}

// Is reports whether the target error matches ErrIncorrectResultSize.
func (e *IncorrectResultSizeError) Is(err error) bool {
	return err == ErrIncorrectResultSize
}

// NewIncorrectResultSizeError returns a new IncorrectResultSizeError.
func NewIncorrectResultSizeError(expected, actual int) *IncorrectResultSizeError {
	return &IncorrectResultSizeError{Expected: expected, Actual: actual}
}

// IsIncorrectResultSize returns true if the error is an IncorrectResultSizeError.
func IsIncorrectResultSize(err error) bool {
	if err == nil {
		return false
	}
	var e *IncorrectResultSizeError
	return errors.As(err, &e)
}

// InvalidIdentifierError reports a name that cannot be used as a CQL identifier.
type InvalidIdentifierError struct {
	Name   string
	Reason string
}

// Error returns the error string.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("cassava: invalid identifier %q: %s", e.Name, e.Reason)
}

// Is reports whether the target error matches ErrInvalidIdentifier.
func (e *InvalidIdentifierError) Is(err error) bool {
	return err == ErrInvalidIdentifier
}

// NewInvalidIdentifierError returns a new InvalidIdentifierError.
func NewInvalidIdentifierError(name, reason string) *InvalidIdentifierError {
	return &InvalidIdentifierError{Name: name, Reason: reason}
}

// MappingError describes an entity declaration that cannot be mapped or a
// value that cannot be converted while reading or writing an entity.
type MappingError struct {
	Entity   string // Entity name
	Property string // Optional: property name
	Message  string
	Cause    error
}

// Error returns the error string.
func (e *MappingError) Error() string {
	var sb strings.Builder
	sb.WriteString("cassava: mapping ")
	sb.WriteString(e.Entity)
	if e.Property != "" {
		sb.WriteString(".")
		sb.WriteString(e.Property)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches ErrInvalidMapping.
func (e *MappingError) Is(err error) bool {
	return err == ErrInvalidMapping
}

// NewMappingError returns a new MappingError.
func NewMappingError(entity, property, msg string, cause error) *MappingError {
	return &MappingError{Entity: entity, Property: property, Message: msg, Cause: cause}
}

// IsMappingError returns true if the error is a MappingError.
func IsMappingError(err error) bool {
	if err == nil {
		return false
	}
	var e *MappingError
	return errors.As(err, &e)
}

// AmbiguousOrdinalError is returned when two key columns or tuple elements of
// an entity declare the same ordinal.
type AmbiguousOrdinalError struct {
	Entity     string
	Ordinal    int
	Properties []string
}

// Error returns the error string.
func (e *AmbiguousOrdinalError) Error() string {
	return fmt.Sprintf("cassava: mapping %s: ordinal %d declared by %s",
		e.Entity, e.Ordinal, strings.Join(e.Properties, ", "))
}

// Is reports whether the target error matches ErrInvalidMapping.
func (e *AmbiguousOrdinalError) Is(err error) bool {
	return err == ErrInvalidMapping
}

// NewAmbiguousOrdinalError returns a new AmbiguousOrdinalError.
func NewAmbiguousOrdinalError(entity string, ordinal int, props ...string) *AmbiguousOrdinalError {
	return &AmbiguousOrdinalError{Entity: entity, Ordinal: ordinal, Properties: props}
}

// PropertyReferenceError is returned when a property path does not resolve
// against an entity.
type PropertyReferenceError struct {
	Entity string
	Path   string
}

// Error returns the error string.
func (e *PropertyReferenceError) Error() string {
	return fmt.Sprintf("cassava: no property %q found for entity %s", e.Path, e.Entity)
}

// Is reports whether the target error matches ErrQueryCreation.
func (e *PropertyReferenceError) Is(err error) bool {
	return err == ErrQueryCreation
}

// NewPropertyReferenceError returns a new PropertyReferenceError.
func NewPropertyReferenceError(entity, path string) *PropertyReferenceError {
	return &PropertyReferenceError{Entity: entity, Path: path}
}

// IsPropertyReferenceError returns true if the error is a PropertyReferenceError.
func IsPropertyReferenceError(err error) bool {
	if err == nil {
		return false
	}
	var e *PropertyReferenceError
	return errors.As(err, &e)
}

// QueryCreationError is returned when a repository method cannot be turned
// into a statement.
type QueryCreationError struct {
	Method  string
	Message string
	Cause   error
}

// Error returns the error string.
func (e *QueryCreationError) Error() string {
	msg := fmt.Sprintf("cassava: cannot create query for method %s: %s", e.Method, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *QueryCreationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches ErrQueryCreation.
func (e *QueryCreationError) Is(err error) bool {
	return err == ErrQueryCreation
}

// NewQueryCreationError returns a new QueryCreationError.
func NewQueryCreationError(method, msg string, cause error) *QueryCreationError {
	return &QueryCreationError{Method: method, Message: msg, Cause: cause}
}

// IsQueryCreationError returns true if the error is a QueryCreationError.
func IsQueryCreationError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryCreationError
	return errors.As(err, &e)
}

// OptimisticLockingError is returned when a write guarded by the entity
// version was not applied.
type OptimisticLockingError struct {
	Entity  string
	Op      string
	Version int64
}

// Error returns the error string.
func (e *OptimisticLockingError) Error() string {
	return fmt.Sprintf("cassava: %s %s: version %d does not match", e.Op, e.Entity, e.Version)
}

// Is reports whether the target error matches ErrOptimisticLocking.
func (e *OptimisticLockingError) Is(err error) bool {
	return err == ErrOptimisticLocking
}

// NewOptimisticLockingError returns a new OptimisticLockingError.
func NewOptimisticLockingError(entity, op string, version int64) *OptimisticLockingError {
	return &OptimisticLockingError{Entity: entity, Op: op, Version: version}
}

// IsOptimisticLocking returns true if the error is an OptimisticLockingError.
func IsOptimisticLocking(err error) bool {
	if err == nil {
		return false
	}
	var e *OptimisticLockingError
	return errors.As(err, &e) || errors.Is(err, ErrOptimisticLocking)
}

// ValidationError represents an invalid option or argument value.
type ValidationError struct {
	Name string // Option or argument name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("cassava: invalid value for %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given name.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "cassava: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("cassava: multiple errors:")
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

// QueryError wraps a driver failure of a read with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "select", "count", "exists")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("cassava: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("cassava: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a driver failure of a write with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "insert", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("cassava: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
