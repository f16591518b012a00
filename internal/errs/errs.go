// Package errs defines the typed error taxonomy used across agentmem.
package errs

import (
	"fmt"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeIngestRejected  Code = "ingest.rejected"
	CodeLockTimeout     Code = "lock.timeout"
	CodeConflict        Code = "version.conflict"
	CodeStoreCorrupt    Code = "store.corrupt"
	CodeMigrationFailed Code = "migration.failed"
	CodeIOFailure       Code = "io.failure"
	CodeNotFound        Code = "not_found"
	CodeInvalidInput    Code = "invalid_input"
)

// New builds a fresh error tagged with code.
func New(code Code, msg string) error {
	return oops.Code(string(code)).New(msg)
}

// Errorf builds a fresh formatted error tagged with code.
func Errorf(code Code, format string, args ...any) error {
	return oops.Code(string(code)).Errorf(format, args...)
}

// Wrap tags an existing error with code, preserving its chain.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return oops.Code(string(code)).Wrapf(err, "%s", msg)
}

// Wrapf tags an existing error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(string(code)).Wrapf(err, format, args...)
}

// CodeOf extracts the Code from an error built by this package, or "" if none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch c := oopsErr.Code().(type) {
	case string:
		return Code(c)
	default:
		return Code(fmt.Sprintf("%v", c))
	}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool     { return Is(err, CodeNotFound) }
func IsConflict(err error) bool     { return Is(err, CodeConflict) }
func IsLockTimeout(err error) bool  { return Is(err, CodeLockTimeout) }
func IsStoreCorrupt(err error) bool { return Is(err, CodeStoreCorrupt) }
