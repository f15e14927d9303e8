package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/chinor-crm/internal/repository"
)

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     uint64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Unwrap lets callers match repository.ErrNotFound as well.
func (e *NotFoundError) Unwrap() error { return repository.ErrNotFound }

// ValidationError reports unusable input, such as a missing phone or an
// empty broadcast message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// Unwrap lets callers match repository.ErrConflict as well.
func (e *ConflictError) Unwrap() error { return repository.ErrConflict }

// ErrInvalidCredentials is returned by Login for an unknown email or a
// wrong password.  The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// notFound converts repository.ErrNotFound into a NotFoundError and passes
// any other error through.
func notFound(err error, entity string, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}
