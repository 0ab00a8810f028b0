package market

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"marketcache-api/pkg/confkit"
)

const (
	defaultBatchSize        = 3
	defaultSymbolStagger    = 500 * time.Millisecond
	defaultBatchDelay       = 2 * time.Second
	defaultQuoteCacheTTL    = time.Minute
	defaultQuoteCacheItems  = 1024
	defaultMaxAge           = 10 * time.Minute
	defaultReadFetchCeiling = 5
	defaultRefreshCeiling   = 10
	defaultProviderTimeout  = 10 * time.Second
)

// Config describes quote providers and the fetch/reconcile policy.
type Config struct {
	Equity    string                     `yaml:"equity"`
	Crypto    string                     `yaml:"crypto"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
	Fetch     FetchConfig                `yaml:"fetch"`
	Cache     QuoteCacheConfig           `yaml:"cache"`
	Reconcile ReconcileConfig            `yaml:"reconcile"`
}

// ProviderConfig represents configuration for a single quote provider.
type ProviderConfig struct {
	Type    string `yaml:"type"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	TimeoutRaw    string        `yaml:"timeout"`
	Timeout       time.Duration `yaml:"-"`
	RatePerMinute int           `yaml:"rate_per_minute"`
	UserAgent     string        `yaml:"user_agent"`
}

// FetchConfig controls batching and pacing of upstream calls.
type FetchConfig struct {
	BatchSize        int           `yaml:"batch_size"`
	SymbolStaggerRaw string        `yaml:"symbol_stagger"`
	SymbolStagger    time.Duration `yaml:"-"`
	BatchDelayRaw    string        `yaml:"batch_delay"`
	BatchDelay       time.Duration `yaml:"-"`
}

// QuoteCacheConfig controls the in-process quote cache.
type QuoteCacheConfig struct {
	TTLRaw   string        `yaml:"ttl"`
	TTL      time.Duration `yaml:"-"`
	MaxItems int           `yaml:"max_items"`
}

// ReconcileConfig holds read/refresh ceilings and the default freshness window.
type ReconcileConfig struct {
	DefaultMaxAgeRaw string        `yaml:"default_max_age"`
	DefaultMaxAge    time.Duration `yaml:"-"`
	ReadFetchCeiling int           `yaml:"read_fetch_ceiling"`
	RefreshCeiling   int           `yaml:"refresh_ceiling"`
}

// ProviderBuilder constructs a QuoteProvider from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (QuoteProvider, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a quote provider constructor.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// DefaultConfig wires the Alpha Vantage and CoinGecko adapters with keys taken
// from the environment. It is used when no market.yaml is configured.
func DefaultConfig() *Config {
	confkit.LoadDotenvOnce()
	cfg := &Config{
		Equity: "alphavantage",
		Crypto: "coingecko",
		Providers: map[string]*ProviderConfig{
			"alphavantage": {Type: "alphavantage", APIKey: os.Getenv("ALPHA_VANTAGE_API_KEY")},
			"coingecko":    {Type: "coingecko", APIKey: os.Getenv("COINGECKO_API_KEY")},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.expandEnv()
		d, err := parsePositiveDuration(provider.TimeoutRaw, "market provider "+name+": timeout")
		if err != nil {
			return err
		}
		provider.Timeout = d
	}

	c.Fetch.SymbolStaggerRaw = strings.TrimSpace(os.ExpandEnv(c.Fetch.SymbolStaggerRaw))
	c.Fetch.BatchDelayRaw = strings.TrimSpace(os.ExpandEnv(c.Fetch.BatchDelayRaw))
	c.Cache.TTLRaw = strings.TrimSpace(os.ExpandEnv(c.Cache.TTLRaw))
	c.Reconcile.DefaultMaxAgeRaw = strings.TrimSpace(os.ExpandEnv(c.Reconcile.DefaultMaxAgeRaw))

	var err error
	if c.Fetch.SymbolStagger, err = parseDuration(c.Fetch.SymbolStaggerRaw, "market fetch: symbol_stagger"); err != nil {
		return err
	}
	if c.Fetch.BatchDelay, err = parseDuration(c.Fetch.BatchDelayRaw, "market fetch: batch_delay"); err != nil {
		return err
	}
	if c.Cache.TTL, err = parsePositiveDuration(c.Cache.TTLRaw, "market cache: ttl"); err != nil {
		return err
	}
	if c.Reconcile.DefaultMaxAge, err = parsePositiveDuration(c.Reconcile.DefaultMaxAgeRaw, "market reconcile: default_max_age"); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	for _, p := range c.Providers {
		if p != nil && p.Timeout <= 0 {
			p.Timeout = defaultProviderTimeout
		}
	}
	if c.Fetch.BatchSize <= 0 {
		c.Fetch.BatchSize = defaultBatchSize
	}
	if c.Fetch.SymbolStaggerRaw == "" {
		c.Fetch.SymbolStagger = defaultSymbolStagger
	}
	if c.Fetch.BatchDelayRaw == "" {
		c.Fetch.BatchDelay = defaultBatchDelay
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = defaultQuoteCacheTTL
	}
	if c.Cache.MaxItems <= 0 {
		c.Cache.MaxItems = defaultQuoteCacheItems
	}
	if c.Reconcile.DefaultMaxAge <= 0 {
		c.Reconcile.DefaultMaxAge = defaultMaxAge
	}
	if c.Reconcile.ReadFetchCeiling <= 0 {
		c.Reconcile.ReadFetchCeiling = defaultReadFetchCeiling
	}
	if c.Reconcile.RefreshCeiling <= 0 {
		c.Reconcile.RefreshCeiling = defaultRefreshCeiling
	}
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	p.UserAgent = strings.TrimSpace(os.ExpandEnv(p.UserAgent))
}

func parseDuration(raw, field string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %s", field, d)
	}
	return d, nil
}

func parsePositiveDuration(raw, field string) (time.Duration, error) {
	d, err := parseDuration(raw, field)
	if err != nil {
		return 0, err
	}
	if raw != "" && d == 0 {
		return 0, fmt.Errorf("%s: must be positive", field)
	}
	return d, nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("market config: provider name cannot be empty")
		}
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	for role, name := range map[string]string{"equity": c.Equity, "crypto": c.Crypto} {
		if name == "" {
			continue
		}
		if _, ok := c.Providers[name]; !ok {
			return fmt.Errorf("market config: %s provider %q not defined", role, name)
		}
	}
	if c.Reconcile.ReadFetchCeiling > c.Reconcile.RefreshCeiling {
		return fmt.Errorf("market config: read_fetch_ceiling (%d) exceeds refresh_ceiling (%d)",
			c.Reconcile.ReadFetchCeiling, c.Reconcile.RefreshCeiling)
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("market config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("market config: provider %s must specify type", name)
	}
	if _, ok := lookupProviderBuilder(p.Type); !ok {
		return fmt.Errorf("market config: provider %s has unsupported type %q", name, p.Type)
	}
	if p.RatePerMinute < 0 {
		return fmt.Errorf("market config: provider %s rate_per_minute cannot be negative", name)
	}
	return nil
}

// BuildProviders instantiates quote providers according to configuration.
func (c *Config) BuildProviders() (map[string]QuoteProvider, error) {
	result := make(map[string]QuoteProvider, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", name, err)
		}
		result[name] = provider
	}
	return result, nil
}

// Select returns the configured equity and crypto providers. Either may be nil
// when not configured, in which case callers fall back to synthetic data.
func (c *Config) Select(providers map[string]QuoteProvider) (equity, crypto QuoteProvider) {
	return providers[c.Equity], providers[c.Crypto]
}
