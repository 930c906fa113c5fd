package domain

import (
	"github.com/juju/errors"
)

// FieldError is a single field-level validation failure, mirrored into
// the errData part of the HTTP error envelope.
type FieldError struct {
	Param string `json:"param"`
	Msg   string `json:"msg"`
}

// ValidationError aggregates field failures for one request. It reports
// itself as errors.NotValid so callers can classify it alongside the
// other error kinds without knowing the concrete type.
type ValidationError struct {
	Msg    string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Is(target error) bool {
	return target == errors.NotValid
}

func NewValidationError(msg string, fields ...FieldError) *ValidationError {
	return &ValidationError{Msg: msg, Fields: fields}
}
