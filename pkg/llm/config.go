package llm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"marketcache-api/pkg/confkit"
)

const (
	defaultBaseURL     = "https://api.groq.com/openai/v1"
	defaultModel       = "llama3-70b-8192"
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 2
	defaultTemperature = 0.2
	defaultMaxTokens   = 1000

	envAPIKey       = "GROQ_API_KEY"
	envBaseURL      = "GROQ_BASE_URL"
	envDefaultModel = "LLM_DEFAULT_MODEL"
	envTimeout      = "LLM_TIMEOUT"
	envMaxRetries   = "LLM_MAX_RETRIES"
)

// Config holds runtime settings for the OpenAI-compatible chat endpoint.
type Config struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int
	Temperature  float64
	MaxTokens    int
	// PredictionPrompt optionally points at a text/template overriding the
	// built-in prediction prompt.
	PredictionPrompt string
}

type rawConfig struct {
	BaseURL          string   `yaml:"base_url"`
	APIKey           string   `yaml:"api_key"`
	DefaultModel     string   `yaml:"default_model"`
	Timeout          string   `yaml:"timeout"`
	MaxRetries       *int     `yaml:"max_retries"`
	Temperature      *float64 `yaml:"temperature"`
	MaxTokens        int      `yaml:"max_tokens"`
	PredictionPrompt string   `yaml:"prediction_prompt"`
}

// LoadConfig reads configuration from disk. A relative prediction_prompt is
// resolved against the config file directory.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open llm config: %w", err)
	}
	defer file.Close()
	cfg, err := LoadConfigFromReader(file)
	if err != nil {
		return nil, err
	}
	if cfg.PredictionPrompt != "" {
		cfg.PredictionPrompt = confkit.ResolvePath(confkit.BaseDir(path), cfg.PredictionPrompt)
	}
	return cfg, nil
}

// LoadConfigFromReader constructs a Config from a reader. The API key may be
// empty; Validate reports that when a client is built.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read llm config: %w", err)
	}
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal llm config: %w", err)
	}
	return raw.build()
}

// DefaultConfig builds a configuration from environment variables only.
func DefaultConfig() (*Config, error) {
	confkit.LoadDotenvOnce()
	return rawConfig{}.build()
}

func (raw rawConfig) build() (*Config, error) {
	cfg := &Config{
		BaseURL:          expandAndOverride(raw.BaseURL, envBaseURL),
		APIKey:           expandAndOverride(raw.APIKey, envAPIKey),
		DefaultModel:     expandAndOverride(raw.DefaultModel, envDefaultModel),
		MaxRetries:       defaultMaxRetries,
		Temperature:      defaultTemperature,
		MaxTokens:        raw.MaxTokens,
		PredictionPrompt: strings.TrimSpace(os.ExpandEnv(raw.PredictionPrompt)),
	}
	if raw.MaxRetries != nil {
		cfg.MaxRetries = *raw.MaxRetries
	}
	if v := os.Getenv(envMaxRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("llm config: invalid %s %q: %w", envMaxRetries, v, err)
		}
		cfg.MaxRetries = n
	}
	if raw.Temperature != nil {
		cfg.Temperature = *raw.Temperature
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	timeoutRaw := os.ExpandEnv(raw.Timeout)
	if v := os.Getenv(envTimeout); v != "" {
		timeoutRaw = v
	}
	cfg.Timeout = defaultTimeout
	if strings.TrimSpace(timeoutRaw) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(timeoutRaw))
		if err != nil {
			return nil, fmt.Errorf("llm config: invalid timeout %q: %w", timeoutRaw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("llm config: timeout must be positive, got %s", d)
		}
		cfg.Timeout = d
	}

	if cfg.MaxRetries < 0 {
		return nil, errors.New("llm config: max_retries cannot be negative")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("llm config: temperature must be within [0,2], got %v", cfg.Temperature)
	}
	return cfg, nil
}

// Enabled reports whether a credential is configured.
func (c *Config) Enabled() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != ""
}

// Validate checks that the configuration can back a client.
func (c *Config) Validate() error {
	switch {
	case c == nil:
		return errors.New("llm config: nil config")
	case strings.TrimSpace(c.APIKey) == "":
		return errors.New("llm config: api_key is required")
	case strings.TrimSpace(c.BaseURL) == "":
		return errors.New("llm config: base_url is required")
	case strings.TrimSpace(c.DefaultModel) == "":
		return errors.New("llm config: default_model is required")
	case c.Timeout <= 0:
		return errors.New("llm config: timeout must be positive")
	}
	return nil
}

func expandAndOverride(current, envKey string) string {
	current = strings.TrimSpace(os.ExpandEnv(current))
	if envVal := strings.TrimSpace(os.Getenv(envKey)); envVal != "" {
		return envVal
	}
	return current
}
