package httperr

import "errors"

type BadRequestError struct {
	msg string
}

func (e *BadRequestError) Error() string { return e.msg }

func NewBadRequest(msg string) error { return &BadRequestError{msg: msg} }

func IsBadRequest(err error) bool {
	var target *BadRequestError
	ok := errors.As(err, &target)
	return ok
}

type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string { return e.msg }

func NewNotFound(msg string) error { return &NotFoundError{msg: msg} }

func IsNotFound(err error) bool {
	var target *NotFoundError
	ok := errors.As(err, &target)
	return ok
}

// ConflictError signals an etag compare-and-swap miss on a locked mutation.
// Callers may retry with fresh state; the engine never retries internally.
type ConflictError struct {
	msg string
}

func (e *ConflictError) Error() string { return e.msg }

func NewConflict(msg string) error { return &ConflictError{msg: msg} }

func IsConflict(err error) bool {
	var target *ConflictError
	ok := errors.As(err, &target)
	return ok
}

// UnauthorizedError is for mutation paths where a denied precondition has
// to abort the call. Read-side access checks return a decision value
// instead; they never produce this error.
type UnauthorizedError struct {
	msg string
}

func (e *UnauthorizedError) Error() string { return e.msg }

func NewUnauthorized(msg string) error { return &UnauthorizedError{msg: msg} }

func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	ok := errors.As(err, &target)
	return ok
}

type InvalidModelError struct {
	msg string
}

func (e *InvalidModelError) Error() string { return e.msg }

func NewInvalidModel(msg string) error { return &InvalidModelError{msg: msg} }

func IsInvalidModel(err error) bool {
	var target *InvalidModelError
	ok := errors.As(err, &target)
	return ok
}
