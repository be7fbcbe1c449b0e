// Package errs classifies the failures of a harvest pass so callers can decide
// whether to skip a file, abort the pass or refuse to start at all.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeNetwork is a connection or timeout failure against the remote server
	// or the object store.
	CodeNetwork Code = "NETWORK_ERROR"

	// CodeDatabase is a ledger read or write failure.
	CodeDatabase Code = "DATABASE_ERROR"

	// CodeConflict is an insert for a source path the ledger already holds.
	CodeConflict Code = "CONFLICT"

	// CodeUpload is a failed put to the object store.
	CodeUpload Code = "UPLOAD_ERROR"

	// CodeInvalidConfig is a missing or malformed setting.
	CodeInvalidConfig Code = "INVALID_CONFIGURATION"

	// CodeNotFound is a lookup with no result.
	CodeNotFound Code = "NOT_FOUND"

	CodeUnknown Code = "UNKNOWN"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = &Error{Code: CodeNotFound, Op: "lookup"}

// Error is a classified failure. Op names the operation, Path the remote path
// or key involved, if any.
type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else {
		msg += ": " + string(e.Code)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, ErrNotFound) holds for
// any not-found error regardless of Op and Path.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New wraps err with a code.
func New(code Code, op, path string, err error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// Network wraps a TransientNetworkError.
func Network(op, path string, err error) *Error {
	return New(CodeNetwork, op, path, err)
}

// Database wraps a PersistenceError.
func Database(op, path string, err error) *Error {
	return New(CodeDatabase, op, path, err)
}

// Conflict wraps a ConflictError.
func Conflict(op, path string, err error) *Error {
	return New(CodeConflict, op, path, err)
}

// Upload wraps an UploadError.
func Upload(op, path string, err error) *Error {
	return New(CodeUpload, op, path, err)
}

// Config builds a ConfigurationError.
func Config(format string, args ...any) *Error {
	return New(CodeInvalidConfig, "config", "", fmt.Errorf(format, args...))
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Has reports whether err carries the given code.
func Has(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
