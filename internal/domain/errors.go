package domain

import "fmt"

// Error types for consistent error handling across the control plane.

// ErrMalformedRequest indicates the inbound buffer did not carry a method and a path.
type ErrMalformedRequest struct {
	Tokens int
}

func (e *ErrMalformedRequest) Error() string {
	return fmt.Sprintf("malformed request: expected method and path, got %d token(s)", e.Tokens)
}

// ErrMethodNotAllowed indicates the method has no routes at all.
type ErrMethodNotAllowed struct {
	Method string
}

func (e *ErrMethodNotAllowed) Error() string {
	return fmt.Sprintf("method not allowed: %s", e.Method)
}

// ErrRouteNotFound indicates the method is known but the path is not registered for it.
type ErrRouteNotFound struct {
	Method string
	Path   string
}

func (e *ErrRouteNotFound) Error() string {
	return fmt.Sprintf("route not found: %s %s", e.Method, e.Path)
}

// ErrMissingKey indicates an adaptation body lacks one of the expected keys.
// The message text is part of the wire contract.
type ErrMissingKey struct {
	Key string
}

func (e *ErrMissingKey) Error() string {
	return "Missing key in request: " + e.Key
}

// ErrMalformedBody indicates an adaptation body that is not a JSON object.
type ErrMalformedBody struct {
	Err error
}

func (e *ErrMalformedBody) Error() string {
	return fmt.Sprintf("Malformed request body: %v", e.Err)
}

func (e *ErrMalformedBody) Unwrap() error {
	return e.Err
}

// ErrUnknownDocument indicates a document key with no backing file.
type ErrUnknownDocument struct {
	Key string
}

func (e *ErrUnknownDocument) Error() string {
	return fmt.Sprintf("unknown document: %s", e.Key)
}

// ErrDocument indicates a schema document could not be read or is not valid JSON.
type ErrDocument struct {
	Key string
	Err error
}

func (e *ErrDocument) Error() string {
	return fmt.Sprintf("document %s: %v", e.Key, e.Err)
}

func (e *ErrDocument) Unwrap() error {
	return e.Err
}

// ErrEncoding indicates a result could not be serialized to JSON.
type ErrEncoding struct {
	Field  string
	Reason string
}

func (e *ErrEncoding) Error() string {
	return fmt.Sprintf("encoding error on '%s': %s", e.Field, e.Reason)
}

// ErrExecution indicates the Execution Manager rejected an operation.
type ErrExecution struct {
	Operation string
	Err       error
}

func (e *ErrExecution) Error() string {
	return fmt.Sprintf("execution manager [%s]: %v", e.Operation, e.Err)
}

func (e *ErrExecution) Unwrap() error {
	return e.Err
}
