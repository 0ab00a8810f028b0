package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketcache-api/pkg/market"
)

type recordingRefresher struct {
	ceiling int
	failOn  string
	batches [][]string
}

func (r *recordingRefresher) RefreshCeiling() int { return r.ceiling }

func (r *recordingRefresher) RefreshQuotes(_ context.Context, symbols []string) ([]market.Quote, error) {
	r.batches = append(r.batches, symbols)
	out := make([]market.Quote, 0, len(symbols))
	for _, s := range symbols {
		if s == r.failOn {
			return nil, errors.New("store offline")
		}
		out = append(out, market.Quote{Symbol: s, Price: 1, Source: market.SourceDemo, Timestamp: time.Now()})
	}
	return out, nil
}

func TestRefreshWatchlistChunksByCeiling(t *testing.T) {
	r := &recordingRefresher{ceiling: 2}

	n := refreshWatchlist(t.Context(), r, []string{"aapl", "MSFT", "AAPL", "btc", "eth"})

	assert.Equal(t, 4, n)
	assert.Equal(t, [][]string{{"AAPL", "MSFT"}, {"BTC", "ETH"}}, r.batches)
}

func TestRefreshWatchlistContinuesAfterChunkError(t *testing.T) {
	r := &recordingRefresher{ceiling: 1, failOn: "MSFT"}

	n := refreshWatchlist(t.Context(), r, []string{"AAPL", "MSFT", "BTC"})

	assert.Equal(t, 2, n)
	assert.Len(t, r.batches, 3)
}

func TestRefreshWatchlistSkipsWhenCancelled(t *testing.T) {
	r := &recordingRefresher{ceiling: 10}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	assert.Zero(t, refreshWatchlist(ctx, r, []string{"AAPL"}))
	assert.Empty(t, r.batches)
}
