// Package scanner fans a scan pass out across (source, query) units, pushes
// discovered posts through classification and the ingest gateway, and reports
// a pass summary. Units are independent: one unit failing never aborts its
// siblings. Only an auth failure is fatal for the pass.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"ideaengine/internal/classify"
	"ideaengine/internal/clients"
	"ideaengine/internal/export"
	"ideaengine/internal/ingest"
	"ideaengine/internal/models"
	"ideaengine/internal/rank"
)

// ForumAPI is the external forum collaborator.
type ForumAPI interface {
	SearchPosts(ctx context.Context, source, query string, limit int) ([]models.RawPost, error)
	ListRecentPosts(ctx context.Context, source string, limit int) ([]models.RawPost, error)
}

// Ingestor is the dedup/upsert gateway.
type Ingestor interface {
	Ingest(ctx context.Context, passID string, post models.RawPost, cls classify.Result, candidate bool) (ingest.Outcome, int64, error)
}

type Config struct {
	Sources       []string
	Queries       []string
	SearchLimit   int           // per (source, query) unit in targeted mode
	BroadLimit    int           // per source in broad mode
	Concurrency   int           // in-flight units
	RecencyWindow time.Duration // posts older than this are discarded
	SnapshotDir   string        // empty disables batch export
}

func (c *Config) fillDefaults() {
	if c.SearchLimit <= 0 {
		c.SearchLimit = 3
	}
	if c.BroadLimit <= 0 {
		c.BroadLimit = 25
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = 30 * 24 * time.Hour
	}
}

// Unit is one independent piece of work. Query is empty in broad mode.
type Unit struct {
	Source string
	Query  string
}

type PassSummary struct {
	PassID         string
	Mode           string
	UnitsAttempted int
	UnitsFailed    int
	PostsSeen      int
	Candidates     int
	Inserted       int
	Duplicates     int
	Rejected       int
	Failed         int
	StartedAt      time.Time
	Duration       time.Duration
}

type Scanner struct {
	api        ForumAPI
	classifier *classify.Classifier
	gateway    Ingestor
	cfg        Config
	now        func() time.Time
}

func New(api ForumAPI, classifier *classify.Classifier, gateway Ingestor, cfg Config) *Scanner {
	cfg.fillDefaults()
	return &Scanner{
		api:        api,
		classifier: classifier,
		gateway:    gateway,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Plan enumerates the full cross product of configured sources and queries.
func (s *Scanner) Plan() []Unit {
	units := make([]Unit, 0, len(s.cfg.Sources)*len(s.cfg.Queries))
	for _, source := range s.cfg.Sources {
		for _, query := range s.cfg.Queries {
			units = append(units, Unit{Source: source, Query: query})
		}
	}
	return units
}

// seenPost is one classified post held in a worker's buffer until the pool
// drains.
type seenPost struct {
	post      models.RawPost
	cls       classify.Result
	candidate bool
}

type unitResult struct {
	seen   []seenPost
	failed bool
	err    error
}

// RunTargeted crosses sources with queries and ingests every discovered post
// as soon as its unit sees it.
func (s *Scanner) RunTargeted(ctx context.Context) (PassSummary, error) {
	return s.run(ctx, "targeted", s.Plan(), func(ctx context.Context, passID string, u Unit, summary *PassSummary, mu *sync.Mutex) unitResult {
		posts, err := s.api.SearchPosts(ctx, u.Source, u.Query, s.cfg.SearchLimit)
		if err != nil {
			return unitResult{failed: true, err: err}
		}

		res := unitResult{}
		for _, post := range posts {
			if s.tooOld(post) {
				continue
			}
			cls := s.classifier.Classify(post.Title, post.Body, post.Source)
			candidate := s.classifier.IsCandidate(post.Title, post.Body)
			res.seen = append(res.seen, seenPost{post: post, cls: cls, candidate: candidate})

			outcome, _, _ := s.gateway.Ingest(ctx, passID, post, cls, candidate)
			mu.Lock()
			summary.countOutcome(outcome)
			mu.Unlock()
		}
		return res
	})
}

// RunBroad lists recent posts per source without a query filter, then
// classifies, ranks and ingests the whole batch after the pool drains.
func (s *Scanner) RunBroad(ctx context.Context) (PassSummary, error) {
	units := make([]Unit, 0, len(s.cfg.Sources))
	for _, source := range s.cfg.Sources {
		units = append(units, Unit{Source: source})
	}

	return s.run(ctx, "broad", units, func(ctx context.Context, passID string, u Unit, summary *PassSummary, mu *sync.Mutex) unitResult {
		posts, err := s.api.ListRecentPosts(ctx, u.Source, s.cfg.BroadLimit)
		if err != nil {
			return unitResult{failed: true, err: err}
		}

		res := unitResult{}
		for _, post := range posts {
			if s.tooOld(post) {
				continue
			}
			cls := s.classifier.Classify(post.Title, post.Body, post.Source)
			candidate := s.classifier.IsCandidate(post.Title, post.Body)
			res.seen = append(res.seen, seenPost{post: post, cls: cls, candidate: candidate})
		}
		return res
	})
}

func (s *Scanner) run(ctx context.Context, mode string, units []Unit,
	runUnit func(context.Context, string, Unit, *PassSummary, *sync.Mutex) unitResult,
) (PassSummary, error) {
	summary := PassSummary{
		PassID:    uuid.NewString(),
		Mode:      mode,
		StartedAt: s.now(),
	}

	slog.Info("[Scanner] Pass started",
		slog.String("pass_id", summary.PassID),
		slog.String("mode", mode),
		slog.Int("units", len(units)))

	sem := semaphore.NewWeighted(int64(s.cfg.Concurrency))
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		buffers = make([][]seenPost, len(units))
		authErr error
	)

	for i, unit := range units {
		// Cooperative cancellation: no new unit starts once ctx is done or
		// an auth failure surfaced.
		mu.Lock()
		aborted := authErr != nil
		mu.Unlock()
		if aborted || ctx.Err() != nil {
			break
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		mu.Lock()
		summary.UnitsAttempted++
		mu.Unlock()

		wg.Add(1)
		go func(i int, u Unit) {
			defer wg.Done()
			defer sem.Release(1)

			res := runUnit(ctx, summary.PassID, u, &summary, &mu)

			mu.Lock()
			defer mu.Unlock()
			buffers[i] = res.seen
			summary.PostsSeen += len(res.seen)
			for _, sp := range res.seen {
				if sp.candidate {
					summary.Candidates++
				}
			}
			if res.failed {
				summary.UnitsFailed++
				if errors.Is(res.err, clients.ErrAuth) && authErr == nil {
					authErr = res.err
				}
				slog.Warn("[Scanner] Unit failed, skipping",
					slog.String("pass_id", summary.PassID),
					slog.String("source", u.Source),
					slog.String("query", u.Query),
					slog.String("error", res.err.Error()))
			} else {
				slog.Debug("[Scanner] Unit completed",
					slog.String("pass_id", summary.PassID),
					slog.String("source", u.Source),
					slog.String("query", u.Query),
					slog.Int("posts", len(res.seen)))
			}
		}(i, unit)
	}
	wg.Wait()

	// Merge per-unit buffers into one batch.
	var seen []seenPost
	for _, buf := range buffers {
		seen = append(seen, buf...)
	}

	if mode == "broad" {
		s.ingestBatch(ctx, summary.PassID, seen, &summary)
	}

	s.report(seen, &summary)

	summary.Duration = s.now().Sub(summary.StartedAt)
	slog.Info("[Scanner] Pass completed",
		slog.String("pass_id", summary.PassID),
		slog.String("mode", summary.Mode),
		slog.Int("units_attempted", summary.UnitsAttempted),
		slog.Int("units_failed", summary.UnitsFailed),
		slog.Int("posts_seen", summary.PostsSeen),
		slog.Int("candidates", summary.Candidates),
		slog.Int("inserted", summary.Inserted),
		slog.Int("duplicates", summary.Duplicates),
		slog.Int("rejected", summary.Rejected),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration))

	if authErr != nil {
		return summary, authErr
	}
	return summary, ctx.Err()
}

func (s *Scanner) ingestBatch(ctx context.Context, passID string, seen []seenPost, summary *PassSummary) {
	for _, sp := range seen {
		if ctx.Err() != nil {
			return
		}
		outcome, _, _ := s.gateway.Ingest(ctx, passID, sp.post, sp.cls, sp.candidate)
		summary.countOutcome(outcome)
	}
}

// report ranks the batch, logs the top ideas and writes the snapshots.
func (s *Scanner) report(seen []seenPost, summary *PassSummary) {
	if len(seen) == 0 {
		slog.Info("[Scanner] No potential ideas found in this pass",
			slog.String("pass_id", summary.PassID))
		return
	}

	batch := make([]models.Idea, 0, len(seen))
	var candidates []models.Idea
	for _, sp := range seen {
		idea := ingest.BuildIdea(sp.post, sp.cls)
		batch = append(batch, idea)
		if sp.candidate {
			candidates = append(candidates, idea)
		}
	}

	ranked := rank.ByEngagement(candidates)
	top := ranked
	if len(top) > 10 {
		top = top[:10]
	}
	for i, idea := range top {
		slog.Info("[Scanner] Top idea",
			slog.String("pass_id", summary.PassID),
			slog.Int("rank", i+1),
			slog.String("title", idea.Title),
			slog.String("source", idea.SourceName),
			slog.Int("engagement", idea.EngagementScore()),
			slog.String("url", idea.SourceURL))
	}

	if s.cfg.SnapshotDir == "" {
		return
	}
	allPath, candPath, err := export.WriteSnapshots(s.cfg.SnapshotDir, s.now(), rank.ByEngagement(batch), ranked)
	if err != nil {
		slog.Error("[Scanner] Snapshot export failed",
			slog.String("pass_id", summary.PassID),
			slog.String("error", err.Error()))
		return
	}
	slog.Info("[Scanner] Snapshots written",
		slog.String("pass_id", summary.PassID),
		slog.String("batch", allPath),
		slog.String("candidates", candPath))
}

func (s *Scanner) tooOld(post models.RawPost) bool {
	return post.CreatedAt.Before(s.now().Add(-s.cfg.RecencyWindow))
}

func (ps *PassSummary) countOutcome(outcome ingest.Outcome) {
	switch outcome {
	case ingest.OutcomeInserted:
		ps.Inserted++
	case ingest.OutcomeDuplicate:
		ps.Duplicates++
	case ingest.OutcomeRejected:
		ps.Rejected++
	case ingest.OutcomeFailed:
		ps.Failed++
	}
}
