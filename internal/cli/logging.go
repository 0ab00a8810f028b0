package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"marketcache-api/internal/config"
	"marketcache-api/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
// Secrets are redacted.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Postgres: %s", presence(strings.TrimSpace(cfg.Postgres.DSN) != "")),
		fmt.Sprintf("SQLite: %s", orNone(cfg.SQLite.Path)),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		fmt.Sprintf("Webhook secret: %s", confkit.Redact(cfg.Webhook.Secret)),
		fmt.Sprintf("News API key: %s", confkit.Redact(cfg.News.APIKey)),
		fmt.Sprintf("Scraper token: %s", confkit.Redact(cfg.Scraper.APIKey)),
		fmt.Sprintf("Watchlist: %s (%s)", orNone(strings.Join(cfg.Watchlist.Symbols, ",")), cfg.Watchlist.Cron),
		sectionLine("LLM config", cfg.LLM),
		sectionLine("Market config", cfg.Market),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func orNone(v string) string {
	if strings.TrimSpace(v) == "" {
		return "none"
	}
	return v
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
