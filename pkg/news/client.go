// Package news fetches financial headlines from NewsAPI with a demo fallback.
package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"

	"marketcache-api/pkg/market/quotecache"
)

const (
	DefaultQuery = "finance"
	DefaultLimit = 10
	MaxLimit     = 100

	defaultBaseURL  = "https://newsapi.org/v2"
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = time.Minute
)

var errRateLimited = errors.New("news: rate limited")

// Article is one normalized headline.
type Article struct {
	Title       string    `json:"title" msgpack:"title"`
	Description string    `json:"description" msgpack:"description"`
	URL         string    `json:"url" msgpack:"url"`
	PublishedAt time.Time `json:"publishedAt" msgpack:"publishedAt"`
	Source      string    `json:"source" msgpack:"source"`
}

// Client queries the /everything endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *quotecache.Cache[[]Article]
	now        func() time.Time
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCache replaces the 60s headline memo. A nil cache disables memoization.
func WithCache(cache *quotecache.Cache[[]Article]) Option {
	return func(c *Client) { c.cache = cache }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		cache:   quotecache.New[[]Article](defaultCacheTTL, quotecache.WithMaxItems(128)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

func (c *Client) Configured() bool { return c.apiKey != "" }

// CacheKey is the memo key for a query, e.g. "news_finance_10".
func CacheKey(query string, limit int) string {
	return "news_" + query + "_" + strconv.Itoa(limit)
}

// Headlines returns up to limit articles matching query. It never fails:
// a missing key, rate limiting, transport errors and malformed payloads all
// yield the demo headlines, which are not memoized.
func (c *Client) Headlines(ctx context.Context, query string, limit int) []Article {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	key := CacheKey(query, limit)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	logger := logx.WithContext(ctx)
	if c.apiKey == "" {
		logger.Infof("news: no api key configured, using demo headlines")
		return DemoHeadlines(c.now())
	}

	body, err := c.fetch(ctx, query, limit)
	if err != nil {
		if errors.Is(err, errRateLimited) {
			logger.Slowf("news: rate limited, using demo headlines")
		} else {
			logger.Errorf("news: %v, using demo headlines", err)
		}
		return DemoHeadlines(c.now())
	}
	articles, ok := parseArticles(body, c.now())
	if !ok {
		logger.Infof("news: response has no articles array, using demo headlines")
		return DemoHeadlines(c.now())
	}
	c.cache.Set(key, articles)
	return articles
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]byte, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parseArticles(body []byte, now time.Time) ([]Article, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	list := gjson.GetBytes(body, "articles")
	if !list.IsArray() {
		return nil, false
	}
	out := make([]Article, 0, len(list.Array()))
	list.ForEach(func(_, a gjson.Result) bool {
		published := now.UTC()
		if raw := a.Get("publishedAt").String(); raw != "" {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				published = ts.UTC()
			}
		}
		out = append(out, Article{
			Title:       orDefault(a.Get("title").String(), "No title"),
			Description: orDefault(a.Get("description").String(), "No description"),
			URL:         orDefault(a.Get("url").String(), "#"),
			PublishedAt: published,
			Source:      orDefault(a.Get("source.name").String(), "Unknown"),
		})
		return true
	})
	return out, true
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// DemoHeadlines returns the fixed placeholder headlines, spaced an hour apart.
func DemoHeadlines(now time.Time) []Article {
	now = now.UTC()
	return []Article{
		{
			Title:       "AI Prediction Markets Show Strong Growth",
			Description: "Artificial intelligence-powered prediction platforms are gaining traction among institutional investors.",
			URL:         "#",
			PublishedAt: now,
			Source:      "Demo Financial News",
		},
		{
			Title:       "Cryptocurrency Market Analysis",
			Description: "Bitcoin and Ethereum continue to show resilience despite market volatility.",
			URL:         "#",
			PublishedAt: now.Add(-time.Hour),
			Source:      "Demo Crypto News",
		},
		{
			Title:       "Tech Stocks Rally on AI Innovation",
			Description: "Major technology companies report strong earnings driven by AI product adoption.",
			URL:         "#",
			PublishedAt: now.Add(-2 * time.Hour),
			Source:      "Demo Tech News",
		},
	}
}
