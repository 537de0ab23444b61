// Package rank orders a scan pass's in-memory batch for reporting. It never
// touches the store.
package rank

import (
	"sort"

	"ideaengine/internal/models"
)

// ByEngagement returns a copy of ideas sorted by score+comments descending,
// newest first on ties.
func ByEngagement(ideas []models.Idea) []models.Idea {
	ranked := append([]models.Idea(nil), ideas...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.EngagementScore() != b.EngagementScore() {
			return a.EngagementScore() > b.EngagementScore()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return ranked
}
