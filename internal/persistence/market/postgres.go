package marketpersist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	cachekeys "marketcache-api/internal/cache"
	"marketcache-api/internal/model"
	"marketcache-api/pkg/market"
)

var _ market.CacheStore = (*PostgresStore)(nil)

// Mirror is the subset of go-zero's cache.Cache used for the latest-quote mirror.
type Mirror interface {
	GetCtx(ctx context.Context, key string, val any) error
	SetWithExpireCtx(ctx context.Context, key string, val any, expire time.Duration) error
	IsNotFound(err error) bool
}

// PostgresStore persists the quote cache in public.market_data_cache and
// mirrors the latest entry per symbol into Redis when a cache is configured.
type PostgresStore struct {
	model model.MarketDataCacheModel
	cache Mirror
	ttl   cachekeys.TTLSet
	now   func() time.Time
}

// Config enumerates dependencies required to persist market data.
type Config struct {
	Model model.MarketDataCacheModel
	Cache Mirror
	TTL   cachekeys.TTLSet
	Clock func() time.Time
}

// NewPostgresStore wires a Postgres backed cache store. Returns nil when the model is missing.
func NewPostgresStore(cfg Config) *PostgresStore {
	if cfg.Model == nil {
		return nil
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &PostgresStore{model: cfg.Model, cache: cfg.Cache, ttl: cfg.TTL, now: now}
}

// mirrorEntry is the Redis payload for the latest write of a symbol.
type mirrorEntry struct {
	Symbol        string  `json:"symbol"`
	Source        string  `json:"source"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	TsMs          int64   `json:"ts"`
}

// QueryFresh serves symbols from the Redis mirror when possible and reads the
// rest from Postgres.
func (s *PostgresStore) QueryFresh(ctx context.Context, symbols []string, maxAge time.Duration) ([]market.CacheEntry, error) {
	now := s.now()
	out := make([]market.CacheEntry, 0, len(symbols))
	remaining := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = market.NormalizeSymbol(sym)
		if sym == "" {
			continue
		}
		if entry, ok := s.mirrored(ctx, sym); ok && entry.Fresh(now, maxAge) {
			out = append(out, entry)
			continue
		}
		remaining = append(remaining, sym)
	}
	if len(remaining) == 0 {
		return out, nil
	}

	rows, err := s.model.FindFresh(ctx, remaining, now.Add(-maxAge))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out = append(out, entryFromRow(row))
	}
	return out, nil
}

// QueryRecent returns every row written within maxAge, newest first.
func (s *PostgresStore) QueryRecent(ctx context.Context, maxAge time.Duration) ([]market.CacheEntry, error) {
	rows, err := s.model.FindSince(ctx, s.now().Add(-maxAge))
	if err != nil {
		return nil, err
	}
	out := make([]market.CacheEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entryFromRow(row))
	}
	return out, nil
}

// Upsert writes each entry independently. Failed rows are reported together
// after every entry has been attempted.
func (s *PostgresStore) Upsert(ctx context.Context, entries []market.CacheEntry) error {
	var errs []error
	for _, e := range entries {
		e.Symbol = market.NormalizeSymbol(e.Symbol)
		if e.Symbol == "" {
			continue
		}
		if e.CachedAt.IsZero() {
			e.CachedAt = s.now().UTC()
		}
		if _, err := s.model.Upsert(ctx, rowFromEntry(e)); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s/%s: %w", e.Symbol, e.Source, err))
			continue
		}
		s.mirror(ctx, e)
	}
	return errors.Join(errs...)
}

func (s *PostgresStore) mirrored(ctx context.Context, symbol string) (market.CacheEntry, bool) {
	if s.cache == nil {
		return market.CacheEntry{}, false
	}
	key := cachekeys.QuoteLatestKey(symbol)
	var payload mirrorEntry
	if err := s.cache.GetCtx(ctx, key, &payload); err != nil {
		if !s.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("marketpersist: load mirror key=%s err=%v", key, err)
		}
		return market.CacheEntry{}, false
	}
	ts := time.UnixMilli(payload.TsMs).UTC()
	return market.CacheEntry{
		Quote: market.Quote{
			Symbol:        payload.Symbol,
			Price:         payload.Price,
			Change:        payload.Change,
			ChangePercent: payload.ChangePercent,
			Volume:        payload.Volume,
			Timestamp:     ts,
			Source:        payload.Source,
		},
		CachedAt: ts,
	}, true
}

func (s *PostgresStore) mirror(ctx context.Context, e market.CacheEntry) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.QuoteLatestTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.QuoteLatestKey(e.Symbol)
	payload := mirrorEntry{
		Symbol:        e.Symbol,
		Source:        e.Source,
		Price:         e.Price,
		Change:        e.Change,
		ChangePercent: e.ChangePercent,
		Volume:        e.Volume,
		TsMs:          e.CachedAt.UnixMilli(),
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache quote key=%s err=%v", key, err)
	}
}

func rowFromEntry(e market.CacheEntry) *model.MarketDataCache {
	return &model.MarketDataCache{
		Symbol:        e.Symbol,
		Source:        e.Source,
		Price:         e.Price,
		ChangeAmount:  e.Change,
		ChangePercent: e.ChangePercent,
		Volume:        e.Volume,
		Timestamp:     e.CachedAt.UTC(),
	}
}

func entryFromRow(row *model.MarketDataCache) market.CacheEntry {
	ts := row.Timestamp.UTC()
	return market.CacheEntry{
		Quote: market.Quote{
			Symbol:        row.Symbol,
			Price:         row.Price,
			Change:        row.ChangeAmount,
			ChangePercent: row.ChangePercent,
			Volume:        row.Volume,
			Timestamp:     ts,
			Source:        row.Source,
		},
		CachedAt: ts,
	}
}
