package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when a unique index
// rejects a write. The read-then-write flows in the services are not atomic;
// this code is the actual safety net under concurrent submissions.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err (possibly wrapped) is a Postgres
// unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
