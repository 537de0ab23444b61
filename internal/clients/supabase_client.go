package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"ideaengine/internal/models"
)

const (
	supabaseRequestTimeout = 10 * time.Second
	ideasResource          = "/rest/v1/ideas"
)

// ErrDuplicateKey is returned when the store rejects an insert because the
// dedup_key unique constraint already holds a row for it.
var ErrDuplicateKey = errors.New("[SupabaseClient] duplicate dedup_key")

var (
	supabaseInstance *SupabaseClient
	supabaseOnce     sync.Once
)

// SupabaseClient talks to the PostgREST `ideas` resource: insert, filtered
// select and partial update. The table carries a unique constraint on
// dedup_key which makes the ingest gateway idempotent.
type SupabaseClient struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

func InitSupabase() (*SupabaseClient, error) {
	baseURL := os.Getenv("SUPABASE_URL")
	apiKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if baseURL == "" || apiKey == "" {
		return nil, errors.New("[SupabaseClient] SUPABASE_URL / SUPABASE_SERVICE_ROLE_KEY not set")
	}

	supabaseOnce.Do(func() {
		supabaseInstance = &SupabaseClient{
			Client:  &http.Client{Timeout: supabaseRequestTimeout},
			BaseURL: baseURL,
			APIKey:  apiKey,
		}
	})
	return supabaseInstance, nil
}

func (sc *SupabaseClient) newRequest(ctx context.Context, method, rawURL string, body []byte, prefer string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", sc.APIKey)
	req.Header.Set("Authorization", "Bearer "+sc.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	return req, nil
}

// do runs the request with capped exponential backoff on rate limits and
// server errors. The response body is returned for 2xx statuses.
func (sc *SupabaseClient) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, int, error) {
	backoff := INITIAL_BACKOFF
	var lastErr error

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		req, err := build()
		if err != nil {
			return nil, 0, err
		}

		resp, err := sc.Client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return nil, resp.StatusCode, readErr
			}

			switch {
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return body, resp.StatusCode, nil
			case resp.StatusCode == http.StatusConflict:
				return body, resp.StatusCode, ErrDuplicateKey
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("[SupabaseClient] status %d: %s", resp.StatusCode, string(body))
			default:
				return body, resp.StatusCode, fmt.Errorf("[SupabaseClient] status %d: %s", resp.StatusCode, string(body))
			}
		}

		slog.Warn("[SupabaseClient] Request failed, retrying...",
			slog.Int("attempt", attempt), slog.Duration("backoff", backoff),
			slog.String("error", lastErr.Error()))

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > MAX_BACKOFF {
			backoff = MAX_BACKOFF
		}
	}
	return nil, 0, lastErr
}

// InsertIdea creates a new row and returns the store-assigned id.
func (sc *SupabaseClient) InsertIdea(ctx context.Context, idea models.Idea) (int64, error) {
	payload := map[string]any{
		"title":             idea.Title,
		"problem_statement": idea.ProblemStatement,
		"data_source":       idea.DataSource,
		"source_name":       idea.SourceName,
		"source_url":        idea.SourceURL,
		"dedup_key":         idea.DedupKey,
		"status":            idea.Status,
	}
	if idea.Subject != "" {
		payload["subject"] = idea.Subject
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	respBody, _, err := sc.do(ctx, func() (*http.Request, error) {
		return sc.newRequest(ctx, http.MethodPost, sc.BaseURL+ideasResource, body, "return=representation")
	})
	if err != nil {
		return 0, err
	}

	var inserted []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(respBody, &inserted); err != nil || len(inserted) == 0 {
		return 0, fmt.Errorf("[SupabaseClient] unexpected insert response: %s", string(respBody))
	}
	return inserted[0].ID, nil
}

// IdeaExistsByDedupKey checks the authoritative store for a row with the key.
func (sc *SupabaseClient) IdeaExistsByDedupKey(ctx context.Context, key string) (bool, error) {
	query := url.Values{}
	query.Set("dedup_key", "eq."+key)
	query.Set("select", "id")
	query.Set("limit", "1")
	rawURL := sc.BaseURL + ideasResource + "?" + query.Encode()

	respBody, _, err := sc.do(ctx, func() (*http.Request, error) {
		return sc.newRequest(ctx, http.MethodGet, rawURL, nil, "")
	})
	if err != nil {
		return false, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return false, fmt.Errorf("[SupabaseClient] unexpected lookup response: %s", string(respBody))
	}
	return len(rows) > 0, nil
}

// IdeasMissingSubject returns all rows the reconciler should backfill.
func (sc *SupabaseClient) IdeasMissingSubject(ctx context.Context) ([]models.Idea, error) {
	query := url.Values{}
	query.Set("subject", "is.null")
	query.Set("select", "id,title,problem_statement,source_name")
	rawURL := sc.BaseURL + ideasResource + "?" + query.Encode()

	return sc.selectIdeas(ctx, rawURL)
}

// IdeasByStatus returns all rows in a lifecycle state.
func (sc *SupabaseClient) IdeasByStatus(ctx context.Context, status models.Status) ([]models.Idea, error) {
	query := url.Values{}
	query.Set("status", "eq."+string(status))
	rawURL := sc.BaseURL + ideasResource + "?" + query.Encode()

	return sc.selectIdeas(ctx, rawURL)
}

func (sc *SupabaseClient) selectIdeas(ctx context.Context, rawURL string) ([]models.Idea, error) {
	respBody, _, err := sc.do(ctx, func() (*http.Request, error) {
		return sc.newRequest(ctx, http.MethodGet, rawURL, nil, "")
	})
	if err != nil {
		return nil, err
	}

	var ideas []models.Idea
	if err := json.Unmarshal(respBody, &ideas); err != nil {
		return nil, fmt.Errorf("[SupabaseClient] unexpected select response: %s", string(respBody))
	}
	return ideas, nil
}

// PatchIdeaSubject sets only the subject column of one row.
func (sc *SupabaseClient) PatchIdeaSubject(ctx context.Context, id int64, subject string) error {
	return sc.patchIdea(ctx, id, map[string]any{"subject": subject})
}

// PatchIdeaStatus advances the lifecycle state. Backward transitions are
// rejected before any request is made.
func (sc *SupabaseClient) PatchIdeaStatus(ctx context.Context, id int64, from, to models.Status) error {
	if !models.CanTransition(from, to) {
		return fmt.Errorf("[SupabaseClient] invalid status transition %s -> %s", from, to)
	}
	return sc.patchIdea(ctx, id, map[string]any{"status": to})
}

func (sc *SupabaseClient) patchIdea(ctx context.Context, id int64, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("id", "eq."+strconv.FormatInt(id, 10))
	rawURL := sc.BaseURL + ideasResource + "?" + query.Encode()

	_, _, err = sc.do(ctx, func() (*http.Request, error) {
		return sc.newRequest(ctx, http.MethodPatch, rawURL, body, "return=minimal")
	})
	return err
}
