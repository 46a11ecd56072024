package core

import "github.com/pkg/errors"

// ErrNotFound is returned when a record does not exist in its collection.
var ErrNotFound = errors.New("record not found")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// LoadError reports that a data source could not deliver its records.
// It is never used for an empty result; callers may retry the load.
type LoadError struct {
	Source string
	Err    error
}

func NewLoadError(source string, err error) error {
	return &LoadError{Source: source, Err: err}
}

func (err LoadError) Error() string {
	if err.Err == nil {
		return "could not load " + err.Source
	}
	return "could not load " + err.Source + ": " + err.Err.Error()
}

func (err LoadError) Unwrap() error { return err.Err }

func IsLoadError(err error) bool {
	_, ok := errors.Cause(err).(*LoadError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
