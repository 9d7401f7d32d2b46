package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewLengthMismatchError is used when a collaborator returns a different number of results
// than it was given inputs.
func NewLengthMismatchError(what string, expected, actual int) error {
	return errors.Errorf("%s: expected %d results but got %d", what, expected, actual)
}
