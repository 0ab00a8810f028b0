//go:build integration
// +build integration

package market_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	market "marketcache-api/pkg/market"
	_ "marketcache-api/pkg/market/alphavantage"
	_ "marketcache-api/pkg/market/coingecko"
)

func liveProviders(t *testing.T) (equity, crypto market.QuoteProvider) {
	t.Helper()
	cfg := market.DefaultConfig()
	providers, err := cfg.BuildProviders()
	require.NoError(t, err)
	return cfg.Select(providers)
}

func TestCoinGeckoQuote_Integration(t *testing.T) {
	_, crypto := liveProviders(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	q, err := crypto.Quote(ctx, "btc")
	require.NoError(t, err)
	require.NoError(t, q.Validate())

	assert.Equal(t, "BTC", q.Symbol)
	if q.IsSynthetic() {
		t.Skip("CoinGecko rate limited, got synthetic data")
	}
	assert.Equal(t, market.SourceCoinGecko, q.Source)
	assert.Greater(t, q.Price, 0.0)
	assert.InDelta(t, q.Change, q.ChangePercent, 1e-9)
}

func TestAlphaVantageQuote_Integration(t *testing.T) {
	if os.Getenv("ALPHA_VANTAGE_API_KEY") == "" {
		t.Skip("ALPHA_VANTAGE_API_KEY not set")
	}
	equity, _ := liveProviders(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	q, err := equity.Quote(ctx, "IBM")
	require.NoError(t, err)
	require.NoError(t, q.Validate())

	if q.IsSynthetic() {
		t.Skip("Alpha Vantage quota exhausted, got synthetic data")
	}
	assert.Equal(t, market.SourceAlphaVantage, q.Source)
	assert.Greater(t, q.Price, 0.0)
	assert.GreaterOrEqual(t, q.Volume, int64(0))
}
