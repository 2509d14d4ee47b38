package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure.
// Implementations other than Postgres may return ErrDuplicate directly.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// ErrDuplicate is returned by non-SQL repository implementations (tests)
// in place of a driver-level unique violation.
var ErrDuplicate = errors.New("duplicate record")
