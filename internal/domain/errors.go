package domain

import "errors"

// ErrorKind classifies failures that use the error channel. Findings are
// never errors.
type ErrorKind string

const (
	KindInput   ErrorKind = "input_error"
	KindChecker ErrorKind = "checker_failure"
	KindSystem  ErrorKind = "system_error"
)

const (
	CodeScriptTooLarge  = "script_too_large"
	CodeInvalidField    = "invalid_field"
	CodeMissingAudience = "missing_audience"
	CodeSchema          = "schema_violation"
	CodeMalformed       = "malformed_request"
	CodeCheckerPanic    = "checker_panic"
	CodeCheckerTimeout  = "checker_timeout"
	CodeUnparseable     = "unparseable_source"
	CodeEnginePanic     = "engine_panic"
	CodeCancelled       = "cancelled"
)

var (
	// ErrUnparseable is returned by checkers that need a parsed script.
	ErrUnparseable = NewCheckerError(CodeUnparseable, "source could not be parsed", nil)
	// ErrCheckerTimeout marks a checker that did not finish in time.
	ErrCheckerTimeout = NewCheckerError(CodeCheckerTimeout, "checker timed out", nil)
)

// ValidationError carries a kind and a machine-readable code.
type ValidationError struct {
	Kind    ErrorKind
	Code    string
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.cause }

// Is matches another ValidationError with the same kind and code.
func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func NewInputError(code, message string) error {
	return &ValidationError{Kind: KindInput, Code: code, Message: message}
}

func NewCheckerError(code, message string, cause error) error {
	return &ValidationError{Kind: KindChecker, Code: code, Message: message, cause: cause}
}

func NewSystemError(code, message string, cause error) error {
	return &ValidationError{Kind: KindSystem, Code: code, Message: message, cause: cause}
}

// KindOf returns the error kind, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Kind
	}
	return ""
}

// CodeOf returns the error code, or "" for unclassified errors.
func CodeOf(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Code
	}
	return ""
}

// IsInputError reports whether err should be surfaced as a client error.
func IsInputError(err error) bool { return KindOf(err) == KindInput }
