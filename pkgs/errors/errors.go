package errors

import (
	stderrors "errors"
	"fmt"
)

// Error types for the failure categories of a normalization pass
const (
	// Input errors
	ErrParseFailure = "PARSE_FAILURE"
	ErrInputRead    = "INPUT_READ_ERROR"

	// Construct errors
	ErrUnsupportedConstruct    = "UNSUPPORTED_CONSTRUCT"
	ErrStructuralInconsistency = "STRUCTURAL_INCONSISTENCY"
	ErrGrammarViolation        = "GRAMMAR_VIOLATION"
	ErrDanglingUnaryOperator   = "DANGLING_UNARY_OPERATOR"

	// Serializer errors
	ErrMalformedSequence = "MALFORMED_SEQUENCE"
	ErrRender            = "RENDER_ERROR"

	// Setup errors
	ErrCatalogue = "CATALOGUE_ERROR"
	ErrConfig    = "CONFIG_ERROR"
)

// Context keys shared by the constructors below
const (
	CtxConstruct  = "construct"
	CtxToken      = "token"
	CtxCommand    = "command"
	CtxSuggestion = "suggestion"
	CtxPosition   = "position"
)

// NormalizeError is a structured error with a type tag and context
type NormalizeError struct {
	Type    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *NormalizeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows error unwrapping
func (e *NormalizeError) Unwrap() error {
	return e.Cause
}

// New creates a new NormalizeError
func New(errorType, message string) *NormalizeError {
	return &NormalizeError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Newf creates a new NormalizeError with a formatted message
func Newf(errorType, format string, args ...interface{}) *NormalizeError {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap creates a new NormalizeError wrapping an existing error
func Wrap(errorType, message string, cause error) *NormalizeError {
	return &NormalizeError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *NormalizeError) WithContext(key string, value interface{}) *NormalizeError {
	e.Context[key] = value
	return e
}

// GetType returns the error type
func (e *NormalizeError) GetType() string {
	return e.Type
}

// GetContext returns context value by key
func (e *NormalizeError) GetContext(key string) (interface{}, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// Helper functions for common failure scenarios

// NewParseFailure reports that the shell parser rejected the command text
func NewParseFailure(message string, cause error) *NormalizeError {
	return Wrap(ErrParseFailure, message, cause)
}

// NewUnsupported reports a shell construct outside the command grammar
func NewUnsupported(construct string) *NormalizeError {
	return New(ErrUnsupportedConstruct, fmt.Sprintf("unsupported: %s", construct)).
		WithContext(CtxConstruct, construct)
}

// NewStructural reports an inconsistency in the shape of a command
func NewStructural(format string, args ...interface{}) *NormalizeError {
	return Newf(ErrStructuralInconsistency, format, args...)
}

// NewDanglingUnary reports a unary logic operator with nothing to its right
func NewDanglingUnary(operator string) *NormalizeError {
	return New(ErrDanglingUnaryOperator, fmt.Sprintf("unary logic operator %q without a right sibling", operator)).
		WithContext(CtxToken, operator)
}

// NewMalformedSequence reports a linear symbol sequence that does not describe a tree
func NewMalformedSequence(index int, format string, args ...interface{}) *NormalizeError {
	return Newf(ErrMalformedSequence, format, args...).WithContext(CtxPosition, index)
}

// TypeOf returns the type tag of the first NormalizeError in err's chain,
// or the empty string
func TypeOf(err error) string {
	var ne *NormalizeError
	if stderrors.As(err, &ne) {
		return ne.Type
	}
	return ""
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsStructural reports whether err discards the command because of its
// shape. Grammar violations are structural.
func IsStructural(err error) bool {
	switch TypeOf(err) {
	case ErrStructuralInconsistency, ErrGrammarViolation:
		return true
	}
	return false
}

// IsRecoverable reports whether err still leaves a usable tree
func IsRecoverable(err error) bool {
	return IsErrorType(err, ErrDanglingUnaryOperator)
}
