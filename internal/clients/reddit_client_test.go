package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

func TestParseListing(t *testing.T) {
	body := []byte(`{
		"data": {
			"after": "t3_next",
			"children": [
				{"data": {
					"id": "abc123",
					"subreddit": "smallbusiness",
					"title": "tired of manual invoicing",
					"selftext": "it takes hours",
					"permalink": "/r/smallbusiness/comments/abc123/tired/",
					"url": "https://example.com/elsewhere",
					"ups": 42,
					"num_comments": 17,
					"created_utc": 1722470400
				}},
				{"data": {
					"id": "def456",
					"title": "link only post",
					"url": "https://example.com/article",
					"ups": 3,
					"num_comments": 0,
					"created_utc": 1722556800
				}}
			]
		}
	}`)

	posts, err := parseListing("smallbusiness", body)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	first := posts[0]
	assert.Equal(t, "abc123", first.PostID)
	assert.Equal(t, "smallbusiness", first.Source)
	assert.Equal(t, "tired of manual invoicing", first.Title)
	assert.Equal(t, "it takes hours", first.Body)
	// Permalink wins over the outbound url when present.
	assert.Equal(t, REDDIT_WWW_URL+"/r/smallbusiness/comments/abc123/tired/", first.URL)
	assert.Equal(t, 42, first.Score)
	assert.Equal(t, 17, first.Comments)
	assert.Equal(t, time.Unix(1722470400, 0).UTC(), first.CreatedAt)

	// No permalink: the raw url is kept.
	assert.Equal(t, "https://example.com/article", posts[1].URL)
}

func TestParseListingRejectsGarbage(t *testing.T) {
	_, err := parseListing("smallbusiness", []byte("<html>rate limited</html>"))
	assert.Error(t, err)
}

func TestParseListingEmpty(t *testing.T) {
	posts, err := parseListing("smallbusiness", []byte(`{"data":{"children":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFetchListingExhaustsRetriesUnderPersistentRateLimit(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rc := &RedditClient{
		Client:  srv.Client(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		backoff: time.Millisecond,
	}

	_, err := rc.fetchListing(context.Background(), "startups", srv.URL, url.Values{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries reached")
	assert.Equal(t, MAX_RETRIES, hits)
}

func TestFetchListingAuthFailureAfterSingleRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"x","token_type":"bearer"}`))
	})
	listingHits := 0
	mux.HandleFunc("/r/startups/new", func(w http.ResponseWriter, _ *http.Request) {
		listingHits++
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rc := &RedditClient{
		Config:  &clientcredentials.Config{TokenURL: srv.URL + "/token"},
		Client:  srv.Client(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		backoff: time.Millisecond,
	}

	_, err := rc.fetchListing(context.Background(), "startups", srv.URL+"/r/startups/new", url.Values{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	// One refresh is allowed; the second 401 is fatal.
	assert.Equal(t, 2, listingHits)
}
