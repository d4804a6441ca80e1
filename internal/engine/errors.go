package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/rubric/internal/rubric"
)

// ErrUnsupportedBlock is returned when a block value is not one of the three
// rubric variants (for example a pointer to one).
var ErrUnsupportedBlock = errors.New("unsupported block type")

// InvariantError reports a violation of the dense ordering invariant.
type InvariantError struct {
	Order  int
	Count  int
	Reason string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("order invariant violated: %s (order=%d, blocks=%d)", e.Reason, e.Order, e.Count)
}

// VariantMismatchError is returned by Update when the replacement block is of
// a different variant than the block it would replace.
type VariantMismatchError struct {
	Order int
	Have  rubric.Variant
	Want  rubric.Variant
}

// Error implements the error interface.
func (e *VariantMismatchError) Error() string {
	return fmt.Sprintf("block at order %d is a %s, not a %s", e.Order, e.Have, e.Want)
}

// IsInvariantError returns true if err is or wraps an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
