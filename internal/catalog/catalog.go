package catalog

import (
	"errors"
	"fmt"

	"github.com/tradeskills/course-radar/backend/internal/models"
)

// ErrOutOfRange is returned when a batch number falls outside [1, Count()].
var ErrOutOfRange = errors.New("batch number out of range")

// Batch is an immutable group of source locators sharing one category,
// together with the extraction prompt for that category and a hand-curated
// fallback record set used when live extraction is unavailable.
type Batch struct {
	Number   int
	Name     string
	Category string
	Sources  []string
	Prompt   string
	Fallback []models.RawRecord
}

// Get looks a batch up by its 1-based number.
func Get(n int) (Batch, error) {
	if n < 1 || n > len(batches) {
		return Batch{}, fmt.Errorf("%w: %d (valid 1..%d)", ErrOutOfRange, n, len(batches))
	}
	return batches[n-1], nil
}

// All returns every batch in catalog order.
func All() []Batch {
	out := make([]Batch, len(batches))
	copy(out, batches)
	return out
}

// Count reports how many batches the catalog defines.
func Count() int {
	return len(batches)
}
