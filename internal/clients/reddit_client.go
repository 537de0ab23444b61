package clients

import (
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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"ideaengine/internal/models"
)

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"
	REDDIT_WWW_URL  = "https://www.reddit.com"

	redditRequestTimeout = 15 * time.Second
	// App-only clients get 60 requests/minute; pace below that so concurrent
	// workers never trip the budget.
	redditRequestInterval = 1100 * time.Millisecond
)

// ErrAuth marks credential failures. The scanner treats it as fatal for the
// whole pass, unlike transient per-unit errors.
var ErrAuth = errors.New("[RedditClient] authentication failed")

var (
	redditClientInstance *RedditClient
	redditClientOnce     sync.Once
)

type RedditClient struct {
	Config  *clientcredentials.Config
	Client  *http.Client
	limiter *rate.Limiter
	backoff time.Duration
	mu      sync.Mutex
}

// InitReddit builds the singleton client. Missing credentials are an auth
// error so a pass aborts before any unit runs.
func InitReddit() (*RedditClient, error) {
	clientID := os.Getenv("REDDIT_CLIENT_ID")
	clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: REDDIT_CLIENT_ID / REDDIT_CLIENT_SECRET not set", ErrAuth)
	}

	redditClientOnce.Do(func() {
		oauthConf := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     REDDIT_AUTH_URL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		redditClientInstance = &RedditClient{
			Config:  oauthConf,
			Client:  oauthConf.Client(context.Background()),
			limiter: rate.NewLimiter(rate.Every(redditRequestInterval), 1),
			backoff: INITIAL_BACKOFF,
		}
	})

	return redditClientInstance, nil
}

func (rc *RedditClient) RefreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.Client = rc.Config.Client(context.Background())
}

// SearchPosts runs one bounded search within a subreddit, newest first,
// restricted to the last month.
func (rc *RedditClient) SearchPosts(ctx context.Context, source, query string, limit int) ([]models.RawPost, error) {
	endpoint := fmt.Sprintf("%s/r/%s/search", REDDIT_API_URL, url.PathEscape(source))
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "new")
	params.Set("t", "month")
	params.Set("restrict_sr", "1")
	params.Set("limit", strconv.Itoa(limit))

	return rc.fetchListing(ctx, source, endpoint, params)
}

// ListRecentPosts fetches the newest posts of a subreddit without a query
// filter (broad mode).
func (rc *RedditClient) ListRecentPosts(ctx context.Context, source string, limit int) ([]models.RawPost, error) {
	endpoint := fmt.Sprintf("%s/r/%s/new", REDDIT_API_URL, url.PathEscape(source))
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	return rc.fetchListing(ctx, source, endpoint, params)
}

// fetchListing runs the request with a fixed retry budget. Rate limits back
// off exponentially and share the budget; a single token refresh is allowed
// before 401/403 turns into ErrAuth.
func (rc *RedditClient) fetchListing(ctx context.Context, source, endpoint string, params url.Values) ([]models.RawPost, error) {
	backoff := rc.backoff
	if backoff <= 0 {
		backoff = INITIAL_BACKOFF
	}
	refreshed := false

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		posts, status, err := rc.doListing(ctx, source, endpoint, params)
		switch {
		case err == nil:
			return posts, nil
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			if refreshed {
				return nil, fmt.Errorf("%w: status %d after token refresh", ErrAuth, status)
			}
			slog.Warn("[RedditClient] Token expired - Refreshing and Retrying...")
			rc.RefreshClient()
			refreshed = true
		case status == http.StatusTooManyRequests:
			slog.Warn("[RedditClient] 429 Too Many Requests - Retrying with backoff",
				slog.Int("attempt", attempt), slog.Duration("backoff", backoff))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > MAX_BACKOFF {
				backoff = MAX_BACKOFF
			}
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("[RedditClient] max retries reached, request failed")
}

// doListing performs exactly one request and reports the HTTP status so the
// caller decides whether to retry.
func (rc *RedditClient) doListing(ctx context.Context, source, endpoint string, params url.Values) ([]models.RawPost, int, error) {
	if err := rc.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, redditRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("[RedditClient] failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := rc.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("[RedditClient] request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("[RedditClient] unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("[RedditClient] failed to read response: %w", err)
	}
	posts, err := parseListing(source, body)
	return posts, resp.StatusCode, err
}

func parseListing(source string, body []byte) ([]models.RawPost, error) {
	var listing models.RedditAPIResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to parse listing: %w", err)
	}

	posts := make([]models.RawPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		data := child.Data
		postURL := data.URL
		if data.Permalink != "" {
			postURL = REDDIT_WWW_URL + data.Permalink
		}
		posts = append(posts, models.RawPost{
			PostID:    data.ID,
			Source:    source,
			Title:     data.Title,
			Body:      data.Selftext,
			URL:       postURL,
			Score:     data.Ups,
			Comments:  data.NumComments,
			CreatedAt: time.Unix(int64(data.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}
