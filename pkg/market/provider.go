package market

import (
	"context"
	"time"
)

// QuoteProvider maps a symbol to a normalized quote from one upstream.
//
// Expected failure modes (missing credential, rate limit, quota exhaustion,
// unknown symbol) are recovered inside the provider and yield a synthetic
// quote. Only unexpected transport failures are returned as errors.
type QuoteProvider interface {
	Name() string
	Kind() AssetKind
	Quote(ctx context.Context, symbol string) (Quote, error)
}

//go:generate mockgen -package=reconcile_test -destination=reconcile/mock_cache_store_test.go -source=provider.go CacheStore

// CacheStore is the durable table of quotes keyed by (symbol, source).
type CacheStore interface {
	// QueryFresh returns entries for the given symbols written within maxAge.
	QueryFresh(ctx context.Context, symbols []string, maxAge time.Duration) ([]CacheEntry, error)
	// QueryRecent returns every entry written within maxAge, newest first.
	QueryRecent(ctx context.Context, maxAge time.Duration) ([]CacheEntry, error)
	// Upsert inserts or replaces each entry independently.
	Upsert(ctx context.Context, entries []CacheEntry) error
}
