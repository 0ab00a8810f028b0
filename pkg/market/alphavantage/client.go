package alphavantage

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
	"golang.org/x/time/rate"

	"marketcache-api/pkg/market"
	"marketcache-api/pkg/market/demo"
)

//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient

const (
	// ProviderType is the registry name used in market.yaml.
	ProviderType = "alphavantage"

	defaultBaseURL   = "https://www.alphavantage.co/query"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "marketcache/1.0"
	tradingDayLayout = "2006-01-02"
)

var (
	// ErrQuotaExceeded marks a 200 response carrying a Note/Information quota message.
	ErrQuotaExceeded = errors.New("alphavantage: api quota exceeded")
	// ErrNoData marks a response without a usable Global Quote.
	ErrNoData = errors.New("alphavantage: no quote data")

	errRateLimited = errors.New("alphavantage: rate limited")
)

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("alphavantage: unexpected status %d", e.code)
}

// Client fetches equity quotes from the GLOBAL_QUOTE endpoint.
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient HTTPClient
	limiter    *rate.Limiter
	fallback   *demo.Generator
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the credential. An empty key makes every call synthetic.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithBaseURL overrides the query endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient injects the transport.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRatePerMinute paces outgoing requests. Zero disables pacing.
func WithRatePerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithFallback injects the synthetic quote generator.
func WithFallback(g *demo.Generator) Option {
	return func(c *Client) {
		if g != nil {
			c.fallback = g
		}
	}
}

// WithName sets the provider name reported by Name.
func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// WithClock overrides the time source used for quotes without a trading day.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs an Alpha Vantage client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		name:      ProviderType,
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		timeout:   defaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.fallback == nil {
		c.fallback = demo.New()
	}
	return c
}

func init() {
	market.RegisterProvider(ProviderType, func(name string, cfg *market.ProviderConfig) (market.QuoteProvider, error) {
		return NewClient(
			WithName(name),
			WithAPIKey(cfg.APIKey),
			WithBaseURL(cfg.BaseURL),
			WithTimeout(cfg.Timeout),
			WithRatePerMinute(cfg.RatePerMinute),
			WithUserAgent(cfg.UserAgent),
		), nil
	})
}

// Name returns the configured provider name.
func (c *Client) Name() string { return c.name }

// Kind reports the equity asset class.
func (c *Client) Kind() market.AssetKind { return market.KindEquity }

// Configured reports whether a credential is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Quote implements market.QuoteProvider.
func (c *Client) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	return c.FetchEquityQuote(ctx, symbol)
}

// FetchEquityQuote returns the latest quote for symbol. Missing credentials,
// rate limiting, quota messages, non-success statuses and empty payloads all
// yield a synthetic quote; only transport failures are returned as errors.
func (c *Client) FetchEquityQuote(ctx context.Context, symbol string) (market.Quote, error) {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return market.Quote{}, market.ErrEmptySymbol
	}
	logger := logx.WithContext(ctx)
	if c.apiKey == "" {
		logger.Infof("alphavantage: no api key configured, using demo data for %s", symbol)
		return c.fallback.EquityQuote(symbol), nil
	}

	body, err := c.fetch(ctx, symbol)
	var se *statusError
	switch {
	case errors.Is(err, errRateLimited):
		logger.Slowf("alphavantage: rate limited, using demo data for %s", symbol)
		return c.fallback.EquityQuote(symbol), nil
	case errors.As(err, &se):
		logger.Errorf("alphavantage: %v for %s, using demo data", err, symbol)
		return c.fallback.EquityQuote(symbol), nil
	case err != nil:
		return market.Quote{}, err
	}

	quote, err := parseGlobalQuote(body, symbol, c.now())
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		logger.Slowf("alphavantage: api limit reached, using demo data for %s", symbol)
		return c.fallback.EquityQuote(symbol), nil
	case err != nil:
		logger.Infof("alphavantage: %v for %s, using demo data", err, symbol)
		return c.fallback.EquityQuote(symbol), nil
	}
	return quote, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("alphavantage: wait for rate limiter: %w", err)
		}
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: request %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: read body: %w", err)
	}
	return body, nil
}

func parseGlobalQuote(body []byte, requested string, now time.Time) (market.Quote, error) {
	if !gjson.ValidBytes(body) {
		return market.Quote{}, fmt.Errorf("%w: malformed json", ErrNoData)
	}
	doc := gjson.ParseBytes(body)
	if doc.Get("Note").Exists() || doc.Get("Information").Exists() {
		return market.Quote{}, ErrQuotaExceeded
	}

	gq := doc.Get("Global Quote")
	if !gq.IsObject() || len(gq.Map()) == 0 {
		return market.Quote{}, ErrNoData
	}
	price := gq.Get(`05\. price`)
	if !price.Exists() {
		return market.Quote{}, fmt.Errorf("%w: missing price", ErrNoData)
	}

	symbol := market.NormalizeSymbol(gq.Get(`01\. symbol`).String())
	if symbol == "" {
		symbol = requested
	}

	ts := now.UTC()
	if day := gq.Get(`07\. latest trading day`).String(); day != "" {
		if parsed, err := time.Parse(tradingDayLayout, day); err == nil {
			ts = parsed
		}
	}

	volume := gq.Get(`06\. volume`).Int()
	if volume < 0 {
		volume = 0
	}

	return market.Quote{
		Symbol:        symbol,
		Price:         price.Float(),
		Change:        gq.Get(`09\. change`).Float(),
		ChangePercent: parsePercent(gq.Get(`10\. change percent`).String()),
		Volume:        volume,
		Timestamp:     ts,
		Source:        market.SourceAlphaVantage,
	}, nil
}

func parsePercent(raw string) float64 {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
