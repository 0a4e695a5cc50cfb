package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrSafety        = errors.New("safety rejection")
	ErrExecution     = errors.New("execution error")
	ErrCapacity      = errors.New("capacity exceeded")
	ErrContract      = errors.New("contract violation")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExecution
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Hint returns a short operator-facing hint for the error's classification.
// Loggers attach it under the error_hint field so log readers can tell a bad
// suggestion from a failed filesystem call without parsing the message.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSafety):
		return "suggestion matched a protected path pattern"
	case errors.Is(err, ErrValidation):
		return "suggestion or operation failed validation"
	case errors.Is(err, ErrCapacity):
		return "queue at capacity; retry after the next batch drains"
	case errors.Is(err, ErrContract):
		return "caller passed malformed input"
	case errors.Is(err, ErrConfiguration):
		return "check the curator config file"
	case errors.Is(err, ErrNotFound):
		return "referenced record does not exist"
	case errors.Is(err, ErrExecution):
		return "filesystem operation failed; applied operations were rolled back"
	default:
		return ""
	}
}

// Recoverable reports whether retrying the same call later could succeed
// without operator intervention. Capacity pressure drains on its own; the
// remaining classes need a changed input, config, or filesystem state first.
func Recoverable(err error) bool {
	return errors.Is(err, ErrCapacity)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
