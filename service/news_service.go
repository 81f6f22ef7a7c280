package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Snoglet99/JobAgent/cache"
	"github.com/Snoglet99/JobAgent/metrics"
	"github.com/Snoglet99/JobAgent/models"
)

// NewsService looks up recent business headlines for a company and memoizes
// the filtered result for an hour.
type NewsService struct {
	apiKey     string
	baseURL    string
	language   string
	country    string
	cacheTTL   time.Duration
	cache      *cache.Cache
	httpClient *http.Client
}

// NewsServiceOption is a functional option for NewsService
type NewsServiceOption func(*NewsService)

// NewsWithAPIKey sets the newsdata.io API key
func NewsWithAPIKey(key string) NewsServiceOption {
	return func(s *NewsService) {
		s.apiKey = key
	}
}

// NewsWithBaseURL overrides the news API endpoint
func NewsWithBaseURL(u string) NewsServiceOption {
	return func(s *NewsService) {
		s.baseURL = u
	}
}

// NewsWithCache sets the memoization cache
func NewsWithCache(c *cache.Cache) NewsServiceOption {
	return func(s *NewsService) {
		s.cache = c
	}
}

// NewsWithLocale sets the query language and country
func NewsWithLocale(language, country string) NewsServiceOption {
	return func(s *NewsService) {
		s.language = language
		s.country = country
	}
}

// NewsWithCacheTTL sets the memoization lifetime
func NewsWithCacheTTL(ttl time.Duration) NewsServiceOption {
	return func(s *NewsService) {
		s.cacheTTL = ttl
	}
}

// NewNewsService creates a new news lookup service
func NewNewsService(opts ...NewsServiceOption) *NewsService {
	s := &NewsService{
		baseURL:    defaultNewsAPI,
		language:   "en",
		country:    "au",
		cacheTTL:   time.Hour,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	ErrMissingCompany     = errors.New("no company name provided for news search")
	ErrNoRelevantArticles = errors.New("no relevant articles found")
)

const (
	defaultNewsAPI = "https://newsdata.io/api/1/news"
	maxArticles    = 3
)

// companyAliases maps informal company names to the legal names the news
// index uses.
var companyAliases = map[string]string{
	"JP Morgan":   "JPMorgan Chase",
	"J.P. Morgan": "JPMorgan Chase",
	"Google":      "Alphabet Inc",
	"Meta":        "Meta Platforms",
	"Facebook":    "Meta Platforms",
}

// NormalizeCompanyName resolves a company alias to its canonical name
func NormalizeCompanyName(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := companyAliases[name]; ok {
		return canonical
	}
	return name
}

// FetchCompanyNews returns up to three headlines relevant to the company.
// Results are memoized per canonical company name.
func (s *NewsService) FetchCompanyNews(ctx context.Context, company string) ([]models.NewsArticle, error) {
	company = NormalizeCompanyName(company)
	if company == "" {
		return nil, ErrMissingCompany
	}

	if s.cache != nil {
		articles, hit, err := s.cache.GetNews(ctx, company)
		if err != nil {
			log.Warn().Err(err).Str("company", company).Msg("news cache read failed")
		} else if hit {
			metrics.NewsCacheHitsTotal.Inc()
			return articles, nil
		}
		metrics.NewsCacheMissesTotal.Inc()
	}

	articles, err := s.queryNewsAPI(ctx, company)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetNews(ctx, company, articles, s.cacheTTL); err != nil {
			log.Warn().Err(err).Str("company", company).Msg("news cache write failed")
		}
	}

	return articles, nil
}

type newsAPIResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
	} `json:"results"`
}

func (s *NewsService) queryNewsAPI(ctx context.Context, company string) ([]models.NewsArticle, error) {
	if s.apiKey == "" {
		return nil, errors.New("news API key not set")
	}

	query := fmt.Sprintf(`"%s" AND (finance OR earnings OR strategy OR acquisition)`, company)

	params := url.Values{}
	params.Set("apikey", s.apiKey)
	params.Set("q", query)
	params.Set("language", s.language)
	params.Set("country", s.country)
	params.Set("category", "business")

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news API error: %d", resp.StatusCode)
	}

	var apiResp newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}

	// Post-filter for higher relevance: the company name must appear in the
	// title or description.
	needle := strings.ToLower(company)
	articles := make([]models.NewsArticle, 0, maxArticles)
	for _, a := range apiResp.Results {
		if !strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.Description), needle) {
			continue
		}
		articles = append(articles, models.NewsArticle{Title: a.Title, Link: a.Link})
		if len(articles) == maxArticles {
			break
		}
	}

	if len(articles) == 0 {
		return nil, ErrNoRelevantArticles
	}

	return articles, nil
}

// FormatArticles renders headlines as the bullet list the generation prompt
// consumes.
func FormatArticles(articles []models.NewsArticle) string {
	var b strings.Builder
	for i, a := range articles {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "- %s\n  %s", a.Title, a.Link)
	}
	return b.String()
}
