package marketpersist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketcache-api/pkg/market"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func openTestSQLite(t *testing.T, clock *testClock) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), clock.Now)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ", nil)
	require.Error(t, err)
}

func TestSQLiteStoreUpsertIsIdempotent(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)}
	store := openTestSQLite(t, clock)
	ctx := t.Context()

	entry := market.NewCacheEntry(market.Quote{
		Symbol: "AAPL", Price: 190.12, Change: 2.12, ChangePercent: 1.13, Volume: 5000, Source: market.SourceAlphaVantage,
	}, clock.now)
	require.NoError(t, store.Upsert(ctx, []market.CacheEntry{entry}))
	require.NoError(t, store.Upsert(ctx, []market.CacheEntry{entry}))

	later := entry
	later.Price = 191.5
	later.CachedAt = clock.now.Add(time.Second)
	require.NoError(t, store.Upsert(ctx, []market.CacheEntry{later}))

	clock.now = clock.now.Add(2 * time.Second)
	rows, err := store.QueryRecent(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 191.5, rows[0].Price)
	assert.Equal(t, int64(5000), rows[0].Volume)
	assert.Equal(t, later.CachedAt, rows[0].CachedAt)
}

func TestSQLiteStoreQueryFresh(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)}
	store := openTestSQLite(t, clock)
	ctx := t.Context()

	require.NoError(t, store.Upsert(ctx, []market.CacheEntry{
		market.NewCacheEntry(market.Quote{Symbol: "AAPL", Price: 190.12, Source: market.SourceAlphaVantage}, clock.now.Add(-time.Minute)),
		market.NewCacheEntry(market.Quote{Symbol: "TSLA", Price: 250, Source: market.SourceAlphaVantage}, clock.now.Add(-10*time.Minute)),
		market.NewCacheEntry(market.Quote{Symbol: "BTC", Price: 45000, Source: market.SourceCoinGecko}, clock.now),
		market.NewCacheEntry(market.Quote{Symbol: "BTC", Price: 44000, Source: market.SourceDemo}, clock.now.Add(-2*time.Minute)),
	}))

	rows, err := store.QueryFresh(ctx, []string{"aapl", "tsla", "btc", "msft"}, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "BTC", rows[0].Symbol)
	assert.Equal(t, market.SourceCoinGecko, rows[0].Source)
	assert.Equal(t, "AAPL", rows[1].Symbol)
	assert.Equal(t, market.SourceDemo, rows[2].Source)

	rows, err = store.QueryFresh(ctx, nil, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
