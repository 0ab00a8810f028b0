package demo

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketcache-api/pkg/market"
)

func TestEquityQuoteShape(t *testing.T) {
	g := New(WithSeed(7))
	for i := 0; i < 200; i++ {
		q := g.EquityQuote(" aapl ")
		require.NoError(t, q.Validate())
		require.Equal(t, "AAPL", q.Symbol)
		require.Equal(t, market.SourceDemo, q.Source)
		require.True(t, q.IsSynthetic())
		require.GreaterOrEqual(t, q.Price, equityMinPrice)
		require.LessOrEqual(t, q.Price, equityMinPrice+equityPriceSpan)
		require.LessOrEqual(t, q.Change, equityMaxMove/2)
		require.GreaterOrEqual(t, q.Change, -equityMaxMove/2)
		require.Less(t, q.Volume, int64(equityMaxVolume))
	}
}

func TestCryptoQuoteUsesReferencePrice(t *testing.T) {
	g := New(WithSeed(1))

	btc := g.CryptoQuote("btc")
	require.Equal(t, "BTC", btc.Symbol)
	require.InDelta(t, 45000, btc.Price, 1e-9)
	require.LessOrEqual(t, btc.Change, 45000*cryptoMaxMove/2)
	require.Less(t, btc.Volume, int64(cryptoMaxVolume))

	doge := g.CryptoQuote("DOGE")
	require.InDelta(t, 0.08, doge.Price, 1e-9)
}

func TestCryptoQuoteUnknownAssetUsesFallbackRange(t *testing.T) {
	g := New(WithSeed(3))
	for i := 0; i < 100; i++ {
		q := g.CryptoQuote("pepe")
		require.NoError(t, q.Validate())
		require.GreaterOrEqual(t, q.Price, cryptoMinPrice)
		require.LessOrEqual(t, q.Price, cryptoMinPrice+cryptoPriceSpan)
	}
}

func TestQuoteDispatchAndClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g := New(WithSeed(5), WithClock(func() time.Time { return fixed }))

	q := g.Quote(market.KindCrypto, "eth")
	require.InDelta(t, 2800, q.Price, 1e-9)
	require.Equal(t, fixed, q.Timestamp)

	q = g.Quote(market.KindEquity, "msft")
	require.Equal(t, "MSFT", q.Symbol)
	require.Equal(t, fixed, q.Timestamp)
}

func TestGeneratorConcurrentUse(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, g.EquityQuote("ibm").Validate())
				assert.NoError(t, g.CryptoQuote("sol").Validate())
			}
		}()
	}
	wg.Wait()
}
