package services

import "net/http"

// ErrorCode is the closed set of client-facing failure categories. Raw
// store errors never reach a client; they are wrapped as CodeTransient
// with a safe message at this boundary.
type ErrorCode string

const (
	CodeNotFound     ErrorCode = "not_found"
	CodeForbidden    ErrorCode = "forbidden"
	CodeFrozen       ErrorCode = "frozen"
	CodeInvalidState ErrorCode = "invalid_state"
	CodeTransient    ErrorCode = "transient"
)

// Error is a service-level failure with a stable code and a message that
// is safe to relay to clients.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func Frozen(message string) *Error {
	return &Error{Code: CodeFrozen, Message: message}
}

func InvalidState(message string) *Error {
	return &Error{Code: CodeInvalidState, Message: message}
}

func Transient(message string) *Error {
	return &Error{Code: CodeTransient, Message: message}
}

// AsError normalizes any error to a service Error. Unknown errors become
// transient failures with a generic message so internal detail never
// leaks into acknowledgments or HTTP bodies.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if svcErr, ok := err.(*Error); ok {
		return svcErr
	}
	return Transient("A temporary error occurred, please retry")
}

// HTTPStatus maps a service error code to an HTTP status.
func HTTPStatus(err error) int {
	switch AsError(err).Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden, CodeFrozen:
		return http.StatusForbidden
	case CodeInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
