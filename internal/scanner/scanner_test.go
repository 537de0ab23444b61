package scanner_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaengine/internal/classify"
	"ideaengine/internal/clients"
	"ideaengine/internal/ingest"
	"ideaengine/internal/models"
	"ideaengine/internal/scanner"
	"ideaengine/internal/taxonomy"
)

type fakeForum struct {
	mu        sync.Mutex
	postsBy   map[string][]models.RawPost // keyed by source
	failing   map[string]error            // sources whose units fail
	callCount int
}

func (f *fakeForum) SearchPosts(_ context.Context, source, _ string, _ int) ([]models.RawPost, error) {
	return f.listing(source)
}

func (f *fakeForum) ListRecentPosts(_ context.Context, source string, _ int) ([]models.RawPost, error) {
	return f.listing(source)
}

func (f *fakeForum) listing(source string) ([]models.RawPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if err, ok := f.failing[source]; ok {
		return nil, err
	}
	return f.postsBy[source], nil
}

type fakeGateway struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{seen: make(map[string]bool)}
}

func (g *fakeGateway) Ingest(_ context.Context, _ string, post models.RawPost, cls classify.Result, candidate bool) (ingest.Outcome, int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !candidate {
		return ingest.OutcomeRejected, 0, nil
	}
	key := ingest.DedupKey(post)
	if g.seen[key] {
		return ingest.OutcomeDuplicate, 0, nil
	}
	g.seen[key] = true
	return ingest.OutcomeInserted, int64(len(g.seen)), nil
}

func post(id, source, title string) models.RawPost {
	return models.RawPost{
		PostID:    id,
		Source:    source,
		Title:     title,
		Body:      "body",
		URL:       fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s/", source, id),
		Score:     3,
		Comments:  2,
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
}

func newScanner(forum *fakeForum, gw *fakeGateway, cfg scanner.Config) *scanner.Scanner {
	return scanner.New(forum, classify.New(taxonomy.Default()), gw, cfg)
}

func TestPlanCrossesSourcesWithQueries(t *testing.T) {
	s := newScanner(&fakeForum{}, newFakeGateway(), scanner.Config{
		Sources: []string{"a", "b", "c"},
		Queries: []string{"q1", "q2"},
	})
	units := s.Plan()
	require.Len(t, units, 6)
	assert.Equal(t, scanner.Unit{Source: "a", Query: "q1"}, units[0])
	assert.Equal(t, scanner.Unit{Source: "c", Query: "q2"}, units[5])
}

func TestRunTargetedIsolatesUnitFailures(t *testing.T) {
	forum := &fakeForum{
		postsBy: map[string][]models.RawPost{
			"smallbusiness": {post("p1", "smallbusiness", "tired of manually invoicing")},
			"webdev":        {post("p2", "webdev", "frustrated with deploy problem")},
		},
		failing: map[string]error{
			"startups": errors.New("503 from upstream"),
		},
	}
	gw := newFakeGateway()
	s := newScanner(forum, gw, scanner.Config{
		Sources:     []string{"smallbusiness", "startups", "webdev"},
		Queries:     []string{`"frustrated with"`},
		Concurrency: 2,
	})

	summary, err := s.RunTargeted(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.UnitsAttempted)
	assert.Equal(t, 1, summary.UnitsFailed)
	assert.Equal(t, 2, summary.PostsSeen)
	assert.Equal(t, 2, summary.Candidates)
	assert.Equal(t, 2, summary.Inserted)
	assert.Len(t, gw.seen, 2)
}

func TestRunTargetedDiscardsStalePosts(t *testing.T) {
	stale := post("old", "smallbusiness", "tired of manually invoicing")
	stale.CreatedAt = time.Now().Add(-90 * 24 * time.Hour)

	forum := &fakeForum{
		postsBy: map[string][]models.RawPost{
			"smallbusiness": {stale, post("new", "smallbusiness", "frustrated with payroll")},
		},
	}
	gw := newFakeGateway()
	s := newScanner(forum, gw, scanner.Config{
		Sources: []string{"smallbusiness"},
		Queries: []string{"q"},
	})

	summary, err := s.RunTargeted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PostsSeen)
	assert.Equal(t, 1, summary.Inserted)
}

func TestRunTargetedCountsDuplicatesAcrossOverlappingUnits(t *testing.T) {
	// The same post surfaces for two different queries.
	shared := post("dup", "smallbusiness", "tired of manually invoicing")
	forum := &fakeForum{
		postsBy: map[string][]models.RawPost{
			"smallbusiness": {shared},
		},
	}
	gw := newFakeGateway()
	s := newScanner(forum, gw, scanner.Config{
		Sources:     []string{"smallbusiness"},
		Queries:     []string{"q1", "q2"},
		Concurrency: 1,
	})

	summary, err := s.RunTargeted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Len(t, gw.seen, 1)
}

func TestRunTargetedAbortsOnAuthFailure(t *testing.T) {
	forum := &fakeForum{
		failing: map[string]error{
			"smallbusiness": fmt.Errorf("%w: bad credentials", clients.ErrAuth),
		},
	}
	s := newScanner(forum, newFakeGateway(), scanner.Config{
		Sources:     []string{"smallbusiness"},
		Queries:     []string{"q"},
		Concurrency: 1,
	})

	_, err := s.RunTargeted(context.Background())
	assert.ErrorIs(t, err, clients.ErrAuth)
}

func TestRunBroadBatchesThenIngests(t *testing.T) {
	forum := &fakeForum{
		postsBy: map[string][]models.RawPost{
			"smallbusiness": {
				post("b1", "smallbusiness", "help with manual bookkeeping"),
				post("b2", "smallbusiness", "announcing my launch"), // not a candidate
			},
			"webdev": {
				post("b3", "webdev", "frustrated with CI problem"),
			},
		},
	}
	gw := newFakeGateway()
	s := newScanner(forum, gw, scanner.Config{
		Sources:     []string{"smallbusiness", "webdev"},
		Concurrency: 2,
		SnapshotDir: t.TempDir(),
	})

	summary, err := s.RunBroad(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.UnitsAttempted)
	assert.Equal(t, 0, summary.UnitsFailed)
	assert.Equal(t, 3, summary.PostsSeen)
	assert.Equal(t, 2, summary.Candidates)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Rejected)
}

func TestRunRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	forum := &fakeForum{
		postsBy: map[string][]models.RawPost{
			"smallbusiness": {post("p1", "smallbusiness", "manual pain")},
		},
	}
	s := newScanner(forum, newFakeGateway(), scanner.Config{
		Sources: []string{"smallbusiness"},
		Queries: []string{"q"},
	})

	summary, err := s.RunTargeted(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.UnitsAttempted)
}
