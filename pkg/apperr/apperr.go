// Package apperr defines the error kinds shared by every feature package.
// Feature packages declare their own sentinel errors that wrap one of these
// kinds, so handlers can map any failure to a status with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
)

// Kind returns the kind sentinel err belongs to, or nil for unclassified errors.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrUnauthorized, ErrInvalidState, ErrValidation} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
