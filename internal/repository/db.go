package repository

import (
	"errors"

	"github.com/lib/pq"

	"github.com/kbanson/bankcore/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// IsRetryable reports whether an error is a transient store conflict that the
// caller may safely retry as a whole operation: an optimistic lock miss, a
// serialization failure, or a deadlock victim abort. No partial mutation can
// have committed in any of these cases.
func IsRetryable(err error) bool {
	if errors.Is(err, domain.ErrVersionConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
	}
	return false
}
