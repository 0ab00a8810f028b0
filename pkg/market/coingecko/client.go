package coingecko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/time/rate"

	"marketcache-api/pkg/market"
	"marketcache-api/pkg/market/demo"
)

const (
	// ProviderType is the registry name used in market.yaml.
	ProviderType = "coingecko"

	// DemoKeyHeader carries keys issued on the public demo plan.
	DemoKeyHeader = "x-cg-demo-api-key"
	// ProKeyHeader carries keys issued on paid plans.
	ProKeyHeader = "x-cg-pro-api-key"

	defaultBaseURL   = "https://api.coingecko.com/api/v3"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "marketcache/1.0"
)

// ErrNoData marks a simple/price response without an entry for the asset.
var ErrNoData = errors.New("coingecko: no price data")

var errRateLimited = errors.New("coingecko: rate limited")

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("coingecko: unexpected status %d: %s", e.code, e.body)
}

// Client fetches crypto quotes from the simple/price endpoint.
type Client struct {
	name       string
	apiKey     string
	keyHeader  string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	fallback   *demo.Generator
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithKeyHeader switches the header the key is sent in, e.g. ProKeyHeader.
func WithKeyHeader(header string) Option {
	return func(c *Client) {
		if header != "" {
			c.keyHeader = header
		}
	}
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

func WithRatePerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

func WithFallback(g *demo.Generator) Option {
	return func(c *Client) {
		if g != nil {
			c.fallback = g
		}
	}
}

func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a CoinGecko client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		name:      ProviderType,
		keyHeader: DemoKeyHeader,
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.fallback == nil {
		c.fallback = demo.New()
	}
	return c
}

func init() {
	market.RegisterProvider(ProviderType, func(name string, cfg *market.ProviderConfig) (market.QuoteProvider, error) {
		opts := []Option{
			WithName(name),
			WithAPIKey(cfg.APIKey),
			WithBaseURL(cfg.BaseURL),
			WithRatePerMinute(cfg.RatePerMinute),
			WithUserAgent(cfg.UserAgent),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		if strings.Contains(cfg.BaseURL, "pro-api.coingecko.com") {
			opts = append(opts, WithKeyHeader(ProKeyHeader))
		}
		return NewClient(opts...), nil
	})
}

func (c *Client) Name() string { return c.name }

func (c *Client) Kind() market.AssetKind { return market.KindCrypto }

func (c *Client) Configured() bool { return c.apiKey != "" }

// Quote implements market.QuoteProvider.
func (c *Client) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	return c.FetchCryptoQuote(ctx, symbol)
}

// FetchCryptoQuote returns the USD price of symbol. The symbol is translated
// to a CoinGecko asset id; the returned quote keeps the caller's ticker.
func (c *Client) FetchCryptoQuote(ctx context.Context, symbol string) (market.Quote, error) {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return market.Quote{}, market.ErrEmptySymbol
	}
	logger := logx.WithContext(ctx)
	if c.apiKey == "" {
		logger.Infof("coingecko: no api key configured, using demo data for %s", symbol)
		return c.fallback.CryptoQuote(symbol), nil
	}

	coinID := market.CoinID(symbol)
	body, err := c.fetch(ctx, coinID)
	if err != nil {
		var se *statusError
		switch {
		case errors.Is(err, errRateLimited):
			logger.Slowf("coingecko: rate limited, using demo data for %s", symbol)
			return c.fallback.CryptoQuote(symbol), nil
		case errors.As(err, &se):
			logger.Errorf("coingecko: %v, using demo data for %s", err, symbol)
			return c.fallback.CryptoQuote(symbol), nil
		}
		return market.Quote{}, err
	}

	quote, err := parsePrice(body, coinID, symbol, c.now())
	if err != nil {
		logger.Infof("coingecko: %v for %s (%s), using demo data", err, symbol, coinID)
		return c.fallback.CryptoQuote(symbol), nil
	}
	return quote, nil
}

func (c *Client) fetch(ctx context.Context, coinID string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("coingecko: wait for rate limiter: %w", err)
		}
	}

	params := url.Values{}
	params.Set("ids", coinID)
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")
	params.Set("include_24hr_vol", "true")

	endpoint := c.baseURL + "/simple/price?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: build request: %w", err)
	}
	req.Header.Set(c.keyHeader, c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko: request %s: %w", coinID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coingecko: read body: %w", err)
	}
	return body, nil
}

func parsePrice(body []byte, coinID, symbol string, now time.Time) (market.Quote, error) {
	if !gjson.ValidBytes(body) {
		return market.Quote{}, fmt.Errorf("%w: malformed json", ErrNoData)
	}
	// Index through Map so ids containing path metacharacters are matched literally.
	entry, ok := gjson.ParseBytes(body).Map()[coinID]
	if !ok || !entry.IsObject() {
		return market.Quote{}, ErrNoData
	}
	usd := entry.Get("usd")
	if !usd.Exists() {
		return market.Quote{}, fmt.Errorf("%w: missing usd price", ErrNoData)
	}

	change := entry.Get("usd_24h_change").Float()
	volume := int64(entry.Get("usd_24h_vol").Float())
	if volume < 0 {
		volume = 0
	}
	return market.Quote{
		Symbol:        symbol,
		Price:         usd.Float(),
		Change:        change,
		ChangePercent: change,
		Volume:        volume,
		Timestamp:     now.UTC(),
		Source:        market.SourceCoinGecko,
	}, nil
}
