package recording

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateKey indicates a Create collided with an existing provider id.
	// Callers treat this as "already exists", not as a hard failure.
	ErrDuplicateKey = errors.New("duplicate provider id")

	// ErrIllegalTransition indicates an attempted status change violates the
	// lifecycle graph. Always a defect signal; never swallowed.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrNotFound indicates the referenced recording row does not exist.
	ErrNotFound = errors.New("recording not found")
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		// SQLITE_CONSTRAINT (19) and SQLITE_CONSTRAINT_UNIQUE (2067).
		if code := coder.Code(); code == 19 || code == 2067 {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
