// Package ingest is the dedup/upsert gateway between the crawl and the idea
// store. It decides whether a discovered post is new, builds the canonical
// record and performs an idempotent insert. Re-discovering a post never
// rewrites the existing record.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ideaengine/internal/classify"
	"ideaengine/internal/clients"
	"ideaengine/internal/models"
)

// Outcome of one ingestion attempt. Duplicates and rejections are successes,
// not errors.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected_not_candidate"
	OutcomeFailed    Outcome = "failed"
)

const maxProblemStatementLen = 300

// IdeaStore is the durable store collaborator.
type IdeaStore interface {
	InsertIdea(ctx context.Context, idea models.Idea) (int64, error)
	IdeaExistsByDedupKey(ctx context.Context, key string) (bool, error)
}

// ProcessedCache is an optional fast path in front of the store lookup.
// A cache miss (or a cache outage) just means one extra store query.
type ProcessedCache interface {
	IsPostProcessed(ctx context.Context, key string) bool
	MarkProcessed(ctx context.Context, key string) error
}

type Gateway struct {
	store IdeaStore
	cache ProcessedCache

	// Serializes check-then-insert per dedup key so overlapping queries in
	// one pass cannot double-insert the same post.
	keyLocks sync.Map
}

func NewGateway(store IdeaStore, cache ProcessedCache) *Gateway {
	return &Gateway{store: store, cache: cache}
}

// DedupKey prefers the external post id; posts without one fall back to a
// hash of (title, source).
func DedupKey(post models.RawPost) string {
	if post.PostID != "" {
		return "reddit:" + post.PostID
	}
	hash := sha256.Sum256([]byte(post.Title + "|" + post.Source))
	return hex.EncodeToString(hash[:])
}

// BuildIdea maps a raw post onto the canonical record.
func BuildIdea(post models.RawPost, cls classify.Result) models.Idea {
	problem := post.Body
	if problem == "" {
		problem = "No description"
	}
	// Truncate by characters, not bytes, so a multi-byte rune at the cut
	// never persists as invalid UTF-8.
	if runes := []rune(problem); len(runes) > maxProblemStatementLen {
		problem = string(runes[:maxProblemStatementLen])
	}
	return models.Idea{
		Title:            post.Title,
		ProblemStatement: problem,
		DataSource:       models.DataSourceReddit,
		SourceName:       post.Source,
		SourceURL:        post.URL,
		DedupKey:         DedupKey(post),
		Subject:          cls.Subject,
		Status:           models.StatusBacklog,
		Score:            post.Score,
		Comments:         post.Comments,
		CreatedAt:        post.CreatedAt,
	}
}

// Ingest persists a candidate post exactly once. Non-candidates are rejected
// before any store traffic. Every attempt is logged with the pass id.
func (g *Gateway) Ingest(ctx context.Context, passID string, post models.RawPost, cls classify.Result, candidate bool) (Outcome, int64, error) {
	logger := slog.With(
		slog.String("pass_id", passID),
		slog.String("source", post.Source),
		slog.String("title", post.Title))

	if !candidate {
		logger.Debug("[Gateway] Rejected: not a candidate")
		return OutcomeRejected, 0, nil
	}

	key := DedupKey(post)
	unlock := g.lockKey(key)
	defer unlock()

	if g.cache != nil && g.cache.IsPostProcessed(ctx, key) {
		logger.Debug("[Gateway] Skipping duplicate post (cache)", slog.String("dedup_key", key))
		return OutcomeDuplicate, 0, nil
	}

	exists, err := g.store.IdeaExistsByDedupKey(ctx, key)
	if err != nil {
		logger.Warn("[Gateway] Store lookup failed", slog.String("error", err.Error()))
		return OutcomeFailed, 0, fmt.Errorf("[Gateway] dedup lookup: %w", err)
	}
	if exists {
		g.markProcessed(ctx, logger, key)
		logger.Debug("[Gateway] Skipping duplicate post (store)", slog.String("dedup_key", key))
		return OutcomeDuplicate, 0, nil
	}

	id, err := g.store.InsertIdea(ctx, BuildIdea(post, cls))
	if err != nil {
		// Another process won the insert race; the unique constraint makes
		// that a duplicate, not a failure.
		if errors.Is(err, clients.ErrDuplicateKey) {
			g.markProcessed(ctx, logger, key)
			logger.Debug("[Gateway] Skipping duplicate post (constraint)", slog.String("dedup_key", key))
			return OutcomeDuplicate, 0, nil
		}
		logger.Warn("[Gateway] Insert failed", slog.String("error", err.Error()))
		return OutcomeFailed, 0, fmt.Errorf("[Gateway] insert: %w", err)
	}

	g.markProcessed(ctx, logger, key)
	logger.Info("[Gateway] Inserted idea",
		slog.Int64("id", id),
		slog.String("subject", cls.Subject),
		slog.Bool("adhoc_subject", cls.AdHoc))
	return OutcomeInserted, id, nil
}

func (g *Gateway) markProcessed(ctx context.Context, logger *slog.Logger, key string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.MarkProcessed(ctx, key); err != nil {
		logger.Warn("[Gateway] Failed to mark post as processed",
			slog.String("dedup_key", key),
			slog.String("error", err.Error()))
	}
}

func (g *Gateway) lockKey(key string) func() {
	muAny, _ := g.keyLocks.LoadOrStore(key, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
