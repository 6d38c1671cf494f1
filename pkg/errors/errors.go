// Package errors defines the typed error taxonomy for the reconciliation
// service.
//
// Every failure surfaced to a caller is a ReconcilerError carrying a
// category, a stable code, optional context values and an actionable
// suggestion. Normalization failures additionally carry the diagnostic
// payload (column detections, row errors) needed for the caller to retry
// with column hints.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryInput          ErrorCategory = "input"
	CategoryNormalization  ErrorCategory = "normalization"
	CategoryLedger         ErrorCategory = "ledger"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Input errors
	CodeInvalidInput    ErrorCode = "invalid_input"
	CodeAccountNotFound ErrorCode = "account_not_found"

	// Normalization errors
	CodeMalformedInput   ErrorCode = "malformed_input"
	CodeColumnResolution ErrorCode = "column_resolution"
	CodeLowParseYield    ErrorCode = "low_parse_yield"

	// Ledger errors
	CodeUpstreamUnavailable ErrorCode = "upstream_unavailable"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// Context provides additional information about the error
type Context map[string]interface{}

// Well-known context keys consumed by the reporter when rendering
// normalization failure diagnostics.
const (
	ContextColumnDetections = "column_detections"
	ContextRowErrors        = "row_errors"
	ContextSuccessRate      = "success_rate"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryInput:
		return 2
	case CategoryNormalization:
		return 3
	case CategoryReconciliation, CategoryInternal:
		return 5
	case CategoryLedger:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// Specific error constructors

// InvalidInput creates an error for a missing or malformed request field.
func InvalidInput(field, reason string) *ReconcilerError {
	return New(CategoryInput, CodeInvalidInput,
		fmt.Sprintf("invalid input in field '%s': %s", field, reason)).
		WithSuggestion("provide a value for this required field").
		WithContext("field", field)
}

// AccountNotFound creates an error for an unresolvable account query.
func AccountNotFound(query string) *ReconcilerError {
	return New(CategoryInput, CodeAccountNotFound,
		fmt.Sprintf("no account matches '%s'", query)).
		WithSuggestion("run the accounts command to list available account names and ids").
		WithContext("query", query)
}

// MalformedInput creates an error for statement text that cannot be treated
// as a delimited export at all.
func MalformedInput(reason string) *ReconcilerError {
	return New(CategoryNormalization, CodeMalformedInput,
		fmt.Sprintf("statement text is not a parseable delimited export: %s", reason)).
		WithSuggestion("export the statement as CSV with a header row and at least date, description and amount columns")
}

// ColumnResolution creates an error for a statement whose date, description
// or amount columns could not be identified. detections carries the full
// per-column diagnostic list for the caller.
func ColumnResolution(missing []string, detections interface{}) *ReconcilerError {
	return New(CategoryNormalization, CodeColumnResolution,
		fmt.Sprintf("could not identify statement columns: %v", missing)).
		WithSuggestion("supply column hints naming the date, description and amount columns").
		WithContext("missing_roles", missing).
		WithContext(ContextColumnDetections, detections)
}

// LowParseYield creates an error for a statement where too many data rows
// failed to parse. rowErrors carries the accumulated per-row failures.
func LowParseYield(successRate float64, rowErrors interface{}) *ReconcilerError {
	return New(CategoryNormalization, CodeLowParseYield,
		fmt.Sprintf("only %.0f%% of statement rows parsed (minimum is 80%%)", successRate*100)).
		WithSuggestion("check the row errors for the failing format, or supply column hints").
		WithContext(ContextSuccessRate, successRate).
		WithContext(ContextRowErrors, rowErrors)
}

// UpstreamUnavailable creates an error for a ledger fetch that failed after
// the retry budget was exhausted.
func UpstreamUnavailable(endpoint string, err error) *ReconcilerError {
	return Wrap(err, CategoryLedger, CodeUpstreamUnavailable,
		fmt.Sprintf("ledger request to %s failed after retries", endpoint)).
		WithSuggestion("check connectivity and the ledger service status, then try again").
		WithContext("endpoint", endpoint)
}

// Internal creates an error for an unexpected failure.
func Internal(operation string, err error) *ReconcilerError {
	return Wrap(err, CategoryInternal, CodeUnexpectedError,
		fmt.Sprintf("unexpected error during %s", operation)).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// Utility functions

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}

// HasCode reports whether err is a ReconcilerError with the given code.
func HasCode(err error, code ErrorCode) bool {
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.Code == code
	}
	return false
}
