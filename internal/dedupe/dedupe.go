package dedupe

import (
	"strings"

	"github.com/tradeskills/course-radar/backend/internal/models"
)

// Set tracks normalized programme titles that have already been kept.
type Set struct {
	seen map[string]struct{}
}

// NewSet creates an empty title set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Key normalizes a title into its deduplication key.
func Key(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Seen reports whether the title's key has been marked.
func (s *Set) Seen(title string) bool {
	_, ok := s.seen[Key(title)]
	return ok
}

// Mark records the title's key.
func (s *Set) Mark(title string) {
	s.seen[Key(title)] = struct{}{}
}

// ByTitle deduplicates a programme list case-insensitively by title, keeping
// the first occurrence and preserving input order.
func ByTitle(programmes []models.Programme) []models.Programme {
	set := NewSet()
	out := make([]models.Programme, 0, len(programmes))
	for _, p := range programmes {
		if set.Seen(p.Title) {
			continue
		}
		set.Mark(p.Title)
		out = append(out, p)
	}
	return out
}
