// Package reconcile backfills subjects on already-persisted ideas. It runs
// independently of crawl passes and only ever patches the subject field, so
// repeated or concurrent runs converge instead of conflicting.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"ideaengine/internal/classify"
	"ideaengine/internal/models"
)

// Store is the slice of the idea store the reconciler needs.
type Store interface {
	IdeasMissingSubject(ctx context.Context) ([]models.Idea, error)
	IdeasByStatus(ctx context.Context, status models.Status) ([]models.Idea, error)
	PatchIdeaSubject(ctx context.Context, id int64, subject string) error
}

// SubjectSuggester is the optional LLM fallback consulted when lexicon
// classification resolves nothing.
type SubjectSuggester interface {
	SuggestSubject(ctx context.Context, title, problem string) (string, error)
}

type Reconciler struct {
	store      Store
	classifier *classify.Classifier
	suggester  SubjectSuggester
}

func New(store Store, classifier *classify.Classifier, suggester SubjectSuggester) *Reconciler {
	return &Reconciler{store: store, classifier: classifier, suggester: suggester}
}

// Run classifies every idea lacking a subject from its stored fields and
// patches the ones that resolve. Returns the number updated.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	ideas, err := r.store.IdeasMissingSubject(ctx)
	if err != nil {
		return 0, fmt.Errorf("[Reconciler] fetch ideas missing subject: %w", err)
	}

	slog.Info("[Reconciler] Reconciliation started", slog.Int("missing_subject", len(ideas)))

	updated := 0
	for _, idea := range ideas {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}

		subject := r.resolve(ctx, idea)
		if subject == "" {
			continue
		}

		if err := r.store.PatchIdeaSubject(ctx, idea.ID, subject); err != nil {
			slog.Warn("[Reconciler] Failed to patch subject",
				slog.Int64("id", idea.ID),
				slog.String("error", err.Error()))
			continue
		}
		slog.Info("[Reconciler] Backfilled subject",
			slog.Int64("id", idea.ID),
			slog.String("subject", subject))
		updated++
	}

	slog.Info("[Reconciler] Reconciliation completed",
		slog.Int("missing_subject", len(ideas)),
		slog.Int("updated", updated),
		slog.Int("backlog", r.backlogDepth(ctx)))
	return updated, nil
}

// backlogDepth reports how many ideas still sit in Backlog, the queue the
// crawl feeds and research drains. Lookup failures only cost the gauge.
func (r *Reconciler) backlogDepth(ctx context.Context) int {
	backlog, err := r.store.IdeasByStatus(ctx, models.StatusBacklog)
	if err != nil {
		slog.Warn("[Reconciler] Backlog depth lookup failed", slog.String("error", err.Error()))
		return -1
	}
	return len(backlog)
}

func (r *Reconciler) resolve(ctx context.Context, idea models.Idea) string {
	cls := r.classifier.Classify(idea.Title, idea.ProblemStatement, idea.SourceName)
	if cls.Subject != "" {
		return cls.Subject
	}
	if r.suggester == nil {
		return ""
	}

	subject, err := r.suggester.SuggestSubject(ctx, idea.Title, idea.ProblemStatement)
	if err != nil {
		slog.Warn("[Reconciler] Subject suggestion failed",
			slog.Int64("id", idea.ID),
			slog.String("error", err.Error()))
		return ""
	}
	if !models.Subject(subject).Valid() {
		return ""
	}
	return subject
}
