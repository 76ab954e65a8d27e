// Package mcperr defines the structured error type and response envelope
// shared by every library tool handler.
package mcperr

import "errors"

// Error carries a stable machine-readable code, a human-readable message,
// and operation-specific details.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// New builds an Error. A nil details map becomes an empty one so the
// serialized payload always carries a details object.
func New(code, message string, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}

	return &Error{Code: code, Message: message, Details: details}
}

// Error returns the human-readable message.
func (e *Error) Error() string {
	return e.Message
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}

	return nil, false
}

// Success wraps a payload in the standard response envelope.
func Success(payload map[string]any) map[string]any {
	return map[string]any{"ok": true, "data": payload}
}

// Failure wraps an Error in the standard response envelope.
func Failure(err *Error) map[string]any {
	details := err.Details
	if details == nil {
		details = map[string]any{}
	}

	return map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    err.Code,
			"message": err.Message,
			"details": details,
		},
	}
}
