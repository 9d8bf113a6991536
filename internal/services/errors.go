package services

import (
	"errors"

	"gorm.io/gorm"
)

// Service-level error taxonomy. Handlers map these onto HTTP statuses.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrValidation    = errors.New("validation failed")
	ErrThemeNotFound = errors.New("theme not found")
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidState  = errors.New("invalid state")
	ErrUpstream      = errors.New("upstream provider failed")
)

// notFoundOr converts gorm's record-not-found into ErrNotFound and passes
// every other error through unchanged.
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
