package errors

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryInvalidInput         Category = "invalid_input"
	CategoryConfiguration        Category = "configuration"
	CategoryUnsupportedAlgorithm Category = "unsupported_algorithm"
	CategoryVerification         Category = "verification_failed"
	CategoryDependencyMissing    Category = "dependency_missing"
	CategoryNetworkTransient     Category = "network_transient"
	CategoryInternalFailure      Category = "internal_failure"
)

type classifiedError struct {
	category  Category
	code      string
	hint      string
	retryable bool
	cause     error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func (e *classifiedError) Category() Category {
	return e.category
}

func (e *classifiedError) Code() string {
	return e.code
}

func (e *classifiedError) Hint() string {
	return e.hint
}

func (e *classifiedError) Retryable() bool {
	return e.retryable
}

func Wrap(cause error, category Category, code, hint string, retryable bool) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category:  category,
		code:      code,
		hint:      hint,
		retryable: retryable,
		cause:     cause,
	}
}

// Validation reports malformed caller input. The sentinel is kept in the chain
// so callers can match it with errors.Is.
func Validation(sentinel error, code, format string, args ...any) error {
	return Wrap(withSentinel(sentinel, format, args...), CategoryInvalidInput, code, "fix the option value and retry", false)
}

// Configuration reports a missing or unusable configuration value.
func Configuration(sentinel error, code, format string, args ...any) error {
	return Wrap(withSentinel(sentinel, format, args...), CategoryConfiguration, code, "set the value in mediaurl.yaml or MEDIAURL_URL", false)
}

// UnsupportedAlgorithm reports a digest algorithm name outside the supported set.
func UnsupportedAlgorithm(sentinel error, name string) error {
	return Wrap(withSentinel(sentinel, "unsupported signature algorithm: %q", name), CategoryUnsupportedAlgorithm, "unsupported_algorithm", "use sha1 or sha256", false)
}

func withSentinel(sentinel error, format string, args ...any) error {
	message := fmt.Sprintf(format, args...)
	if sentinel == nil {
		return errors.New(message)
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.hint
	}
	return ""
}

func RetryableOf(err error) bool {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.retryable
	}
	return false
}
