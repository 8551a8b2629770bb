// Package apperr defines the error taxonomy shared by the campaign client.
// Every error surfaced to the user is one of these kinds; transport and
// backend failures are wrapped, local input problems are constructed here.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports bad or missing local input (empty template,
// non-positive rate, unknown field references).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf creates a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ParseError reports malformed ingested tabular data.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return e.Msg
}

// Parsef creates a ParseError from a format string.
func Parsef(format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// SourceUnavailableError reports a remote data source that could not be
// reached or connected.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source %s unavailable", e.Source)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// NewSourceUnavailable wraps err as a SourceUnavailableError for source.
func NewSourceUnavailable(source string, err error) error {
	return &SourceUnavailableError{Source: source, Err: err}
}

// ConflictError reports an operation rejected because of current session
// state, such as dispatching while a job is already running.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// Conflictf creates a ConflictError from a format string.
func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// TransportError reports a network or backend failure on any call.
type TransportError struct {
	Op         string // request description, e.g. "POST /jobs"
	StatusCode int    // 0 when the request never reached the backend
	Msg        string // server-provided message, if any
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Msg != "" && e.StatusCode > 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Msg)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": transport error"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsParse reports whether err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsSourceUnavailable reports whether err is (or wraps) a SourceUnavailableError.
func IsSourceUnavailable(err error) bool {
	var se *SourceUnavailableError
	return errors.As(err, &se)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
