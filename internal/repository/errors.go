// Package repository defines the data access layer.  Every store exists in
// two flavours that satisfy the same method sets: a MySQL implementation
// built on database/sql and an in-memory implementation used when the
// service runs without a database (DATA_BACKEND=memory) and in tests.
//
// The sentinel errors below are shared by both flavours so that services
// can distinguish failure scenarios without knowing which one they talk to.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.  Services
// translate it into a NotFoundError and handlers into an HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness rule,
// such as a second guest with the same phone number.  Handlers translate
// it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when a staff user with the same email exists.
var ErrEmailExists = fmt.Errorf("email already exists: %w", ErrConflict)

// ErrPhoneExists is returned when a guest with the same phone exists.
var ErrPhoneExists = fmt.Errorf("phone already exists: %w", ErrConflict)

// isDuplicate reports whether err is a MySQL duplicate-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
