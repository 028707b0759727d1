package errors

import (
	"errors"
	"fmt"
)

// ParseError represents a YAML plan parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures plan validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NotFoundError reports that a managed resource does not exist on the remote
// host. Absent-type reconciliations treat it as a no-op rather than a failure.
type NotFoundError struct {
	Kind string
	Name string
}

// NewNotFoundError constructs a NotFoundError for the given resource.
func NewNotFoundError(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
}

// AsNotFound reports whether err is, or wraps, a NotFoundError.
func AsNotFound(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

// InvalidArgumentError reports a desired-state parameter the remote endpoint
// can never satisfy (empty name, malformed address, unknown option key).
type InvalidArgumentError struct {
	Argument string
	Message  string
}

// NewInvalidArgumentError constructs an InvalidArgumentError.
func NewInvalidArgumentError(argument, message string) error {
	return &InvalidArgumentError{Argument: argument, Message: message}
}

func (e *InvalidArgumentError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Message)
}

// AsInvalidArgument reports whether err is, or wraps, an
// InvalidArgumentError.
func AsInvalidArgument(err error) (*InvalidArgumentError, bool) {
	var ia *InvalidArgumentError
	if errors.As(err, &ia) {
		return ia, true
	}
	return nil, false
}

// RemoteOperationError wraps a failure raised by the vSphere endpoint during
// a read or mutation. Message carries the server's fault text verbatim so
// reconcilers can surface it unchanged in their result comment.
type RemoteOperationError struct {
	Op      string
	Host    string
	Message string
	Err     error
}

// NewRemoteOperationError constructs a RemoteOperationError.
func NewRemoteOperationError(op, host string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &RemoteOperationError{Op: op, Host: host, Message: message, Err: err}
}

func (e *RemoteOperationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Host != "" {
		return fmt.Sprintf("%s failed on %s: %s", e.Op, e.Host, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// Unwrap exposes the root fault.
func (e *RemoteOperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
