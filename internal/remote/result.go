package remote

import (
	"errors"
	"fmt"
)

// Code classifies a failed remote call.
type Code string

const (
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeConflict     Code = "CONFLICT"
	CodeNetwork      Code = "NETWORK_ERROR"
	CodeDecode       Code = "DECODE_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code carried by err, or CodeInternal when err is not a remote error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return CodeInternal
}

// Result is the envelope every backend response is wrapped in.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitzero"`
	Error   *Error `json:"error,omitempty"`
}

func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func Fail[T any](err *Error) Result[T] {
	return Result[T]{Error: err}
}

// Unwrap converts the envelope into Go's value-and-error form.
func (r Result[T]) Unwrap() (T, error) {
	if !r.Success {
		var zero T

		if r.Error == nil {
			return zero, NewError(CodeInternal, "request failed without an error description")
		}

		return zero, r.Error
	}

	return r.Data, nil
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	HasMore bool `json:"hasMore"`
}
