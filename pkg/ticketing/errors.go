package ticketing

import "fmt"

// ConfigurationError means the static panel configuration no longer covers
// what a stored ticket or button references. The message tells the operator
// to re-deploy.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

func newConfigErr(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// StateError means the operation is invalid for the ticket's current state.
// No mutation has occurred.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return e.Reason
}

func newStateErr(format string, args ...any) *StateError {
	return &StateError{Reason: fmt.Sprintf(format, args...)}
}

// PermissionError means the actor is not allowed to perform the operation.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Reason
}

func newPermissionErr(format string, args ...any) *PermissionError {
	return &PermissionError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError means the ticket or channel is no longer resolvable.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return e.Reason
}

func newNotFoundErr(format string, args ...any) *NotFoundError {
	return &NotFoundError{Reason: fmt.Sprintf(format, args...)}
}

// ExternalError wraps a platform failure. Partial state may remain; the
// message carries the underlying cause so the actor sees it.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

func newExternalErr(op string, err error) *ExternalError {
	return &ExternalError{Op: op, Err: err}
}
