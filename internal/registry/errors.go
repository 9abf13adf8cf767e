package registry

import (
	"fmt"

	"github.com/inventory-tools/scanreg/internal/models"
)

// ValidationError reports malformed or missing registration input. The
// operation aborts with no state change; the caller fixes the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateError reports that registering would violate the uniqueness
// invariant. Existing is the product already holding the code.
type DuplicateError struct {
	Existing models.Product
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("code %q already registered as %q", e.Existing.Code, e.Existing.Name)
}

// ConflictError reports that the persisted collection changed between the
// read and the write of a mutation (another writer got there first).
type ConflictError struct{}

func (e *ConflictError) Error() string {
	return "registry modified concurrently, retry the operation"
}
