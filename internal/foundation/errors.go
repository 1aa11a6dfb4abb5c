package foundation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a typed error classification.
type ErrorCode string

const (
	ErrorCodeValidation         ErrorCode = "validation"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeCorruptState       ErrorCode = "corrupt_state"
	ErrorCodeUnsupportedVersion ErrorCode = "unsupported_version"
	ErrorCodePersistence        ErrorCode = "persistence"
	ErrorCodeExternal           ErrorCode = "external"
	ErrorCodeTimeout            ErrorCode = "timeout"
	ErrorCodeInternal           ErrorCode = "internal"
	ErrorCodeConfiguration      ErrorCode = "configuration"
)

// Severity indicates the importance/impact of an error.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Fields represents structured context data.
type Fields map[string]any

// ClassifiedError provides structured error information with context.
// No error carrying this type is fatal to the process: callers degrade
// (empty state, stale schedule) and log instead of crashing.
type ClassifiedError struct {
	Code      ErrorCode `json:"code"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Context   Fields    `json:"context,omitempty"`
	Cause     error     `json:"cause,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Component string    `json:"component,omitempty"`
	Retryable bool      `json:"retryable"`
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	var parts []string

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}
	parts = append(parts, fmt.Sprintf("code=%s", e.Code), e.Message)
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the operation may be retried.
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// HasCode reports whether err (or anything it wraps) is a ClassifiedError
// with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// ErrorBuilder provides a fluent interface for creating classified errors.
type ErrorBuilder struct {
	err *ClassifiedError
}

// NewError creates a new error builder.
func NewError(code ErrorCode, message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: &ClassifiedError{
			Code:     code,
			Severity: SeverityError,
			Message:  message,
			Context:  make(Fields),
		},
	}
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity Severity) *ErrorBuilder {
	b.err.Severity = severity
	return b
}

// WithCause sets the underlying cause.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.err.Cause = cause
	return b
}

// WithContext adds context fields.
func (b *ErrorBuilder) WithContext(fields Fields) *ErrorBuilder {
	for k, v := range fields {
		b.err.Context[k] = v
	}
	return b
}

// WithOperation sets the operation context.
func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.err.Operation = operation
	return b
}

// WithComponent sets the component context.
func (b *ErrorBuilder) WithComponent(component string) *ErrorBuilder {
	b.err.Component = component
	return b
}

// Retryable marks the error as retryable.
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	b.err.Retryable = true
	return b
}

// Build returns the constructed error.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return b.err
}

// InvalidEntryError reports a malformed candidate entry. Local validation
// failure, returned to the submitting caller.
func InvalidEntryError(message string) *ErrorBuilder {
	return NewError(ErrorCodeValidation, message).WithSeverity(SeverityWarning)
}

// CorruptStateError reports an unparsable persisted snapshot. The caller
// recovers with an empty state.
func CorruptStateError(message string) *ErrorBuilder {
	return NewError(ErrorCodeCorruptState, message).WithSeverity(SeverityWarning)
}

// UnsupportedVersionError reports a snapshot written by a newer format
// version. The caller recovers with an empty state instead of guessing.
func UnsupportedVersionError(message string) *ErrorBuilder {
	return NewError(ErrorCodeUnsupportedVersion, message).WithSeverity(SeverityWarning)
}

// PersistenceError reports a failed snapshot write. In-memory state stays
// authoritative; the write is retried on the next mutation.
func PersistenceError(message string) *ErrorBuilder {
	return NewError(ErrorCodePersistence, message).Retryable()
}

// GenerationError reports that external schedule generation returned no
// usable data. The previous schedule is kept and generation retried.
func GenerationError(message string) *ErrorBuilder {
	return NewError(ErrorCodeExternal, message).Retryable()
}

// NotFoundError reports a missing resource.
func NotFoundError(resource string) *ErrorBuilder {
	return NewError(ErrorCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext(Fields{"resource": resource})
}

// ConfigurationError reports invalid configuration.
func ConfigurationError(message string) *ErrorBuilder {
	return NewError(ErrorCodeConfiguration, message)
}

// InternalError reports an unexpected internal failure.
func InternalError(message string) *ErrorBuilder {
	return NewError(ErrorCodeInternal, message).WithSeverity(SeverityCritical)
}
