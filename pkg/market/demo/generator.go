// Package demo produces structurally valid placeholder quotes used whenever
// live data is unavailable.
package demo

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"marketcache-api/pkg/market"
)

const (
	equityMinPrice  = 50.0
	equityPriceSpan = 200.0
	equityMaxMove   = 20.0
	equityMaxVolume = 10_000_000

	cryptoMinPrice  = 100.0
	cryptoPriceSpan = 1000.0
	cryptoMaxMove   = 0.1
	cryptoMaxVolume = 50_000_000
)

// referencePrices holds approximate USD prices for well-known crypto assets.
var referencePrices = map[string]float64{
	"btc":      45000,
	"bitcoin":  45000,
	"eth":      2800,
	"ethereum": 2800,
	"ada":      0.45,
	"cardano":  0.45,
	"sol":      95,
	"solana":   95,
	"bnb":      320,
	"xrp":      0.55,
	"doge":     0.08,
	"matic":    0.85,
	"dot":      6.5,
	"avax":     38,
}

// Generator yields randomized quotes tagged market.SourceDemo. It is safe for
// concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// Option customises a Generator.
type Option func(*Generator)

// WithSeed makes the generated sequence reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rnd = rand.New(rand.NewSource(seed))
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// New constructs a Generator seeded from the current time.
func New(opts ...Option) *Generator {
	g := &Generator{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EquityQuote returns a synthetic equity quote.
func (g *Generator) EquityQuote(symbol string) market.Quote {
	g.mu.Lock()
	base := g.rnd.Float64()*equityPriceSpan + equityMinPrice
	change := (g.rnd.Float64() - 0.5) * equityMaxMove
	volume := g.rnd.Int63n(equityMaxVolume)
	g.mu.Unlock()

	return g.build(symbol, base, change, volume)
}

// CryptoQuote returns a synthetic crypto quote anchored on a reference price
// when the asset is known.
func (g *Generator) CryptoQuote(symbol string) market.Quote {
	g.mu.Lock()
	base, ok := referencePrices[strings.ToLower(strings.TrimSpace(symbol))]
	if !ok {
		base = g.rnd.Float64()*cryptoPriceSpan + cryptoMinPrice
	}
	change := (g.rnd.Float64() - 0.5) * (base * cryptoMaxMove)
	volume := g.rnd.Int63n(cryptoMaxVolume)
	g.mu.Unlock()

	return g.build(symbol, base, change, volume)
}

// Quote dispatches on kind.
func (g *Generator) Quote(kind market.AssetKind, symbol string) market.Quote {
	if kind == market.KindCrypto {
		return g.CryptoQuote(symbol)
	}
	return g.EquityQuote(symbol)
}

func (g *Generator) build(symbol string, base, change float64, volume int64) market.Quote {
	return market.Quote{
		Symbol:        market.NormalizeSymbol(symbol),
		Price:         market.Round2(base),
		Change:        market.Round2(change),
		ChangePercent: market.Round2(change / base * 100),
		Volume:        volume,
		Timestamp:     g.now().UTC(),
		Source:        market.SourceDemo,
	}
}
