package app

import "fmt"

type ErrorKind string

const (
	// ErrValidation marks malformed or structurally-invalid input. Never
	// retried automatically.
	ErrValidation ErrorKind = "validation"
	// ErrProvider marks a transient generative-model failure whose local
	// retries are already exhausted.
	ErrProvider ErrorKind = "provider"
	// ErrExecution marks a per-case agent-interaction failure.
	ErrExecution ErrorKind = "execution"
	// ErrFatal marks anything escaping the orchestrator loop unexpectedly.
	ErrFatal ErrorKind = "fatal"
)

// AppError carries the error taxonomy surfaced to callers. Retryable is
// advertised so UI and automation layers can decide whether to re-attempt.
type AppError struct {
	Kind      ErrorKind
	Retryable bool
	Err       error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Err.Error())
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrValidation, Retryable: false, Err: fmt.Errorf(format, args...)}
}

func providerError(err error) *AppError {
	return &AppError{Kind: ErrProvider, Retryable: true, Err: err}
}

func fatalError(err error) *AppError {
	return &AppError{Kind: ErrFatal, Retryable: false, Err: err}
}
