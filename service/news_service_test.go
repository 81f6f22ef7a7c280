package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Snoglet99/JobAgent/cache"
	"github.com/Snoglet99/JobAgent/metrics"
	"github.com/Snoglet99/JobAgent/models"
)

type fakeNewsResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

func newFakeNewsServer(t *testing.T, results []fakeNewsResult, calls *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		assert.NotEmpty(t, r.URL.Query().Get("apikey"))
		assert.Contains(t, r.URL.Query().Get("q"), "AND (finance OR earnings OR strategy OR acquisition)")
		assert.Equal(t, "business", r.URL.Query().Get("category"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"results": results,
		})
	}))
}

func TestFetchCompanyNewsFiltersByCompanyName(t *testing.T) {
	server := newFakeNewsServer(t, []fakeNewsResult{
		{Title: "Acme posts record earnings", Link: "https://news.test/1"},
		{Title: "Unrelated market roundup", Description: "nothing to see", Link: "https://news.test/2"},
		{Title: "Q3 results", Description: "ACME beats estimates", Link: "https://news.test/3"},
	}, nil)
	defer server.Close()

	svc := NewNewsService(
		NewsWithAPIKey("test-key"),
		NewsWithBaseURL(server.URL),
	)

	articles, err := svc.FetchCompanyNews(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Acme posts record earnings", articles[0].Title)
	assert.Equal(t, "Q3 results", articles[1].Title)
}

func TestFetchCompanyNewsCapsAtThree(t *testing.T) {
	results := make([]fakeNewsResult, 6)
	for i := range results {
		results[i] = fakeNewsResult{
			Title: "Acme headline",
			Link:  "https://news.test/n",
		}
	}
	server := newFakeNewsServer(t, results, nil)
	defer server.Close()

	svc := NewNewsService(
		NewsWithAPIKey("test-key"),
		NewsWithBaseURL(server.URL),
	)

	articles, err := svc.FetchCompanyNews(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Len(t, articles, 3)
}

func TestFetchCompanyNewsNoRelevantArticles(t *testing.T) {
	server := newFakeNewsServer(t, []fakeNewsResult{
		{Title: "General market news", Description: "indices rise"},
	}, nil)
	defer server.Close()

	svc := NewNewsService(
		NewsWithAPIKey("test-key"),
		NewsWithBaseURL(server.URL),
	)

	_, err := svc.FetchCompanyNews(context.Background(), "Acme")
	assert.ErrorIs(t, err, ErrNoRelevantArticles)
}

func TestFetchCompanyNewsMissingCompany(t *testing.T) {
	svc := NewNewsService(NewsWithAPIKey("test-key"))

	_, err := svc.FetchCompanyNews(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrMissingCompany)
}

func TestFetchCompanyNewsResolvesAliases(t *testing.T) {
	server := newFakeNewsServer(t, []fakeNewsResult{
		{Title: "Meta Platforms expands data centers", Link: "https://news.test/1"},
	}, nil)
	defer server.Close()

	svc := NewNewsService(
		NewsWithAPIKey("test-key"),
		NewsWithBaseURL(server.URL),
	)

	articles, err := svc.FetchCompanyNews(context.Background(), "Facebook")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Meta Platforms expands data centers", articles[0].Title)
}

func TestNormalizeCompanyName(t *testing.T) {
	assert.Equal(t, "JPMorgan Chase", NormalizeCompanyName("JP Morgan"))
	assert.Equal(t, "Alphabet Inc", NormalizeCompanyName("Google"))
	assert.Equal(t, "Initech", NormalizeCompanyName("  Initech  "))
}

func TestFetchCompanyNewsMemoizesResults(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	newsCache, err := cache.NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	require.NoError(t, err)
	defer newsCache.Close()

	calls := 0
	server := newFakeNewsServer(t, []fakeNewsResult{
		{Title: "Acme wins contract", Link: "https://news.test/1"},
	}, &calls)
	defer server.Close()

	svc := NewNewsService(
		NewsWithAPIKey("test-key"),
		NewsWithBaseURL(server.URL),
		NewsWithCache(newsCache),
		NewsWithCacheTTL(time.Hour),
	)

	ctx := context.Background()

	first, err := svc.FetchCompanyNews(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, calls)

	// The second lookup is served from the cache.
	second, err := svc.FetchCompanyNews(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	// Expiry forces a fresh upstream call.
	mr.FastForward(2 * time.Hour)
	_, err = svc.FetchCompanyNews(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchCompanyNewsMissCounterNeedsCache(t *testing.T) {
	server := newFakeNewsServer(t, []fakeNewsResult{
		{Title: "Acme wins contract", Link: "https://news.test/1"},
	}, nil)
	defer server.Close()

	svc := NewNewsService(
		NewsWithAPIKey("test-key"),
		NewsWithBaseURL(server.URL),
	)

	before := testutil.ToFloat64(metrics.NewsCacheMissesTotal)
	_, err := svc.FetchCompanyNews(context.Background(), "Acme")
	require.NoError(t, err)

	// A lookup that could never hit does not count as a miss.
	assert.Equal(t, before, testutil.ToFloat64(metrics.NewsCacheMissesTotal))
}

func TestFormatArticles(t *testing.T) {
	out := FormatArticles(nil)
	assert.Empty(t, out)

	out = FormatArticles([]models.NewsArticle{
		{Title: "Acme wins contract", Link: "https://news.test/1"},
		{Title: "Acme expands", Link: "https://news.test/2"},
	})
	assert.Contains(t, out, "- Acme wins contract")
	assert.Contains(t, out, "https://news.test/2")
}
