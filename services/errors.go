// services/errors.go - Typed service errors mapped to HTTP statuses by handlers
package services

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrInvalid      = errors.New("invalid")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a kind sentinel and a message that is safe to show clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func invalid(msg string) error      { return &Error{Kind: ErrInvalid, Message: msg} }
func notFound(msg string) error     { return &Error{Kind: ErrNotFound, Message: msg} }
func forbidden(msg string) error    { return &Error{Kind: ErrForbidden, Message: msg} }
func conflict(msg string) error     { return &Error{Kind: ErrConflict, Message: msg} }
func unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// notFoundOr turns gorm.ErrRecordNotFound into a not-found error.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(msg)
	}
	return err
}

// conflictOr turns a unique violation into a conflict error.
func conflictOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict(msg)
	}
	return err
}
