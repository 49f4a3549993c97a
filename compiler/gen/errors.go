package gen

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSchema is matched by every SchemaError.
	ErrInvalidSchema = errors.New("cassava: invalid schema")
	// ErrInvalidConfig is matched by every ConfigError.
	ErrInvalidConfig = errors.New("cassava: invalid generator config")
	// ErrGenerationFailed is matched by every GenerationError.
	ErrGenerationFailed = errors.New("cassava: code generation failed")
)

// SchemaError reports an entity or property of the loaded schema that
// cannot be turned into Go code.
type SchemaError struct {
	Entity   string
	Property string
	Message  string
	Cause    error
}

func (e *SchemaError) Error() string {
	msg := "cassava: schema"
	switch {
	case e.Entity != "" && e.Property != "":
		msg += " " + e.Entity + "." + e.Property
	case e.Entity != "":
		msg += " " + e.Entity
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Cause }

func (e *SchemaError) Is(target error) bool { return target == ErrInvalidSchema }

// NewSchemaError returns a SchemaError. entity and property may be empty.
func NewSchemaError(entity, property, message string, cause error) *SchemaError {
	return &SchemaError{Entity: entity, Property: property, Message: message, Cause: cause}
}

// ConfigError reports an invalid generator option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("cassava: option %s: %s", e.Option, e.Message)
	}
	return fmt.Sprintf("cassava: option %s=%v: %s", e.Option, e.Value, e.Message)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// NewConfigError returns a ConfigError for the named option.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// Generation stages reported by GenerationError.
const (
	StageRender = "render"
	StageFormat = "format"
	StageWrite  = "write"
)

// GenerationError reports a file of the output tree that could not be
// produced. DebugFile is set when the unformatted source was kept.
type GenerationError struct {
	File      string
	Stage     string
	DebugFile string
	Cause     error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("cassava: %s %s", e.Stage, e.File)
	if e.DebugFile != "" {
		msg += " (unformatted source in " + e.DebugFile + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

// NewGenerationError returns a GenerationError for file at the given stage.
func NewGenerationError(file, stage string, cause error) *GenerationError {
	return &GenerationError{File: file, Stage: stage, Cause: cause}
}

// IsSchemaError reports whether err wraps a SchemaError.
func IsSchemaError(err error) bool { return isA[*SchemaError](err) }

// IsConfigError reports whether err wraps a ConfigError.
func IsConfigError(err error) bool { return isA[*ConfigError](err) }

// IsGenerationError reports whether err wraps a GenerationError.
func IsGenerationError(err error) bool { return isA[*GenerationError](err) }

func isA[E error](err error) bool {
	var target E
	return errors.As(err, &target)
}
