// Package apperr provides the coded error type shared by the store, the
// authorizer and the entity managers.
//
// Errors carry a machine-readable Code, a human-readable Msg, the logical
// operation Op where they happened, and an optional wrapped Err. The code of
// the innermost coded error wins, so a store failure wrapped by a manager keeps
// its original kind.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

const (
	EInvalid         = "invalid"
	EUnauthenticated = "unauthenticated"
	EForbidden       = "forbidden"
	ENotFound        = "not found"
	EConflict        = "conflict"
	EAmbiguous       = "ambiguous"
	EInternal        = "internal error"
)

type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		var b strings.Builder
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
		return b.String()
	} else if e.Msg != "" {
		return e.Msg
	} else if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error with the same code, so callers
// can write errors.Is(err, apperr.NotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Op == "" && t.Err == nil && t.Code == ErrorCode(e)
}

// Sentinels for errors.Is comparisons.
var (
	Invalid         = &Error{Code: EInvalid}
	Unauthenticated = &Error{Code: EUnauthenticated}
	Forbidden       = &Error{Code: EForbidden}
	NotFound        = &Error{Code: ENotFound}
	Conflict        = &Error{Code: EConflict}
	Ambiguous       = &Error{Code: EAmbiguous}
	Internal        = &Error{Code: EInternal}
)

func Invalidf(op, format string, args ...any) error {
	return &Error{Code: EInvalid, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Unauthenticatedf(op, format string, args ...any) error {
	return &Error{Code: EUnauthenticated, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Forbiddenf(op, format string, args ...any) error {
	return &Error{Code: EForbidden, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(op, format string, args ...any) error {
	return &Error{Code: ENotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(op, format string, args ...any) error {
	return &Error{Code: EConflict, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches op to err. Coded errors keep their code; anything else is
// treated as an internal failure.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Op: op, Err: err}
	}
	return &Error{Code: EInternal, Op: op, Err: err}
}

// ErrorCode returns the code of the innermost coded error, EInternal for
// uncoded errors, and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return EInternal
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return ErrorCode(e.Err)
	}
	return EInternal
}

// ErrorOp returns the outermost op recorded on err.
func ErrorOp(err error) string {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return ""
	}
	if e.Op != "" {
		return e.Op
	}
	if e.Err != nil {
		return ErrorOp(e.Err)
	}
	return ""
}
