package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ideaengine/internal/models"
)

func TestByEngagementOrdersDescending(t *testing.T) {
	a := models.Idea{Title: "A", Score: 10, Comments: 5}
	b := models.Idea{Title: "B", Score: 3, Comments: 20}
	c := models.Idea{Title: "C", Score: 8, Comments: 8}

	ranked := ByEngagement([]models.Idea{a, b, c})

	titles := []string{ranked[0].Title, ranked[1].Title, ranked[2].Title}
	assert.Equal(t, []string{"B", "C", "A"}, titles)
	assert.Equal(t, 23, ranked[0].EngagementScore())
	assert.Equal(t, 16, ranked[1].EngagementScore())
	assert.Equal(t, 15, ranked[2].EngagementScore())
}

func TestByEngagementTiesBrokenByNewest(t *testing.T) {
	older := models.Idea{Title: "older", Score: 5, Comments: 5, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := models.Idea{Title: "newer", Score: 5, Comments: 5, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}

	ranked := ByEngagement([]models.Idea{older, newer})
	assert.Equal(t, "newer", ranked[0].Title)
	assert.Equal(t, "older", ranked[1].Title)
}

func TestByEngagementDoesNotMutateInput(t *testing.T) {
	input := []models.Idea{
		{Title: "low", Score: 1},
		{Title: "high", Score: 100},
	}
	_ = ByEngagement(input)
	assert.Equal(t, "low", input[0].Title)
}
