package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no entity matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write lost against a concurrent writer:
	// the stored version moved on, or a uniqueness rule was violated.
	ErrConflict = errors.New("conflict")
)

const (
	postgresUniqueValueViolationErrorCode = "23505"
)

func isErrorUniqueViolation(err error) bool {
	var psqlErr *pq.Error
	return errors.As(err, &psqlErr) && psqlErr.Code == postgresUniqueValueViolationErrorCode
}
