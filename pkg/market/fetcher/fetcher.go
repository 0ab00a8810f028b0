package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"marketcache-api/pkg/market"
	"marketcache-api/pkg/market/demo"
	"marketcache-api/pkg/market/quotecache"
)

const (
	DefaultBatchSize     = 3
	DefaultSymbolStagger = 500 * time.Millisecond
	DefaultBatchDelay    = 2 * time.Second

	// flightTimeout bounds a provider call once it no longer follows the
	// caller's context.
	flightTimeout = 30 * time.Second
)

const (
	outcomeLive      = "live"
	outcomeCached    = "cached"
	outcomeSynthetic = "synthetic"
	outcomeError     = "error"
)

var fetchTotal = metric.NewCounterVec(&metric.CounterVecOpts{
	Namespace: "marketcache",
	Subsystem: "fetch",
	Name:      "total",
	Help:      "quote fetches by asset kind and outcome",
	Labels:    []string{"kind", "outcome"},
})

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Orchestrator fetches quotes for many symbols in fixed-size batches, pacing
// calls within a batch and between batches. Every symbol always yields a quote:
// failures are replaced by synthetic data.
type Orchestrator struct {
	equity market.QuoteProvider
	crypto market.QuoteProvider
	demo   *demo.Generator
	cache  *quotecache.Cache[market.Quote]

	batchSize  int
	stagger    time.Duration
	batchDelay time.Duration
	sleep      SleepFunc
	classify   func(string) market.AssetKind

	sf singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProviders sets the equity and crypto adapters. A nil adapter routes its
// asset class straight to synthetic data.
func WithProviders(equity, crypto market.QuoteProvider) Option {
	return func(o *Orchestrator) {
		o.equity = equity
		o.crypto = crypto
	}
}

func WithDemo(g *demo.Generator) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.demo = g
		}
	}
}

// WithCache enables the in-process quote cache shared by all callers.
func WithCache(c *quotecache.Cache[market.Quote]) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithBatching overrides batch size and pacing. Non-positive sizes are ignored;
// zero delays disable the corresponding wait.
func WithBatching(size int, stagger, batchDelay time.Duration) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			o.batchSize = size
		}
		if stagger >= 0 {
			o.stagger = stagger
		}
		if batchDelay >= 0 {
			o.batchDelay = batchDelay
		}
	}
}

func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithCryptoSymbols replaces the crypto routing set. Matching stays exact and
// case-insensitive.
func WithCryptoSymbols(symbols ...string) Option {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return func(o *Orchestrator) {
		o.classify = func(symbol string) market.AssetKind {
			if _, ok := set[strings.ToLower(strings.TrimSpace(symbol))]; ok {
				return market.KindCrypto
			}
			return market.KindEquity
		}
	}
}

// New constructs an Orchestrator with the default 3/500ms/2s pacing.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		batchSize:  DefaultBatchSize,
		stagger:    DefaultSymbolStagger,
		batchDelay: DefaultBatchDelay,
		sleep:      sleepCtx,
		classify:   market.KindOf,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.demo == nil {
		o.demo = demo.New()
	}
	return o
}

// FetchMany returns one quote per input symbol, in input order. Symbols are
// processed in batches of batchSize; the i-th symbol of a batch starts after
// i*stagger, and the next batch starts batchDelay after the previous one has
// fully completed. A cancelled context stops scheduling; remaining symbols are
// filled with synthetic quotes.
func (o *Orchestrator) FetchMany(ctx context.Context, symbols []string) []market.Quote {
	results := make([]market.Quote, len(symbols))
	for start := 0; start < len(symbols); start += o.batchSize {
		if start > 0 && o.batchDelay > 0 {
			if err := o.sleep(ctx, o.batchDelay); err != nil {
				o.fillSynthetic(symbols[start:], results[start:])
				break
			}
		}
		end := min(start+o.batchSize, len(symbols))
		o.runBatch(ctx, symbols[start:end], results[start:end])
	}
	return results
}

func (o *Orchestrator) runBatch(ctx context.Context, batch []string, out []market.Quote) {
	var g errgroup.Group
	for i, symbol := range batch {
		g.Go(func() error {
			if i > 0 && o.stagger > 0 {
				if err := o.sleep(ctx, time.Duration(i)*o.stagger); err != nil {
					out[i] = o.synthetic(symbol)
					return nil
				}
			}
			out[i] = o.FetchOne(ctx, symbol)
			return nil
		})
	}
	// Goroutines never return errors; Wait is the batch join barrier.
	_ = g.Wait()
}

// FetchOne resolves a single symbol through the cache and the routed adapter.
// It never fails: any adapter error or panic yields a synthetic quote.
func (o *Orchestrator) FetchOne(ctx context.Context, symbol string) market.Quote {
	symbol = market.NormalizeSymbol(symbol)
	return o.FetchKind(ctx, o.classify(symbol), symbol)
}

// FetchKind is FetchOne with the adapter family picked by the caller instead
// of the symbol router.
func (o *Orchestrator) FetchKind(ctx context.Context, kind market.AssetKind, symbol string) market.Quote {
	symbol = market.NormalizeSymbol(symbol)
	key := quotecache.Key(kind, symbol)

	if q, ok := o.cache.Get(key); ok {
		fetchTotal.Inc(string(kind), outcomeCached)
		return q
	}

	v, _, _ := o.sf.Do(key, func() (any, error) {
		// Every caller waiting on key shares this result.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return o.fetchProvider(fctx, kind, symbol), nil
	})
	q := v.(market.Quote)
	if !q.IsSynthetic() {
		o.cache.Set(key, q)
	}
	return q
}

func (o *Orchestrator) fetchProvider(ctx context.Context, kind market.AssetKind, symbol string) (q market.Quote) {
	logger := logx.WithContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("fetcher: provider panic for %s: %v", symbol, r)
			fetchTotal.Inc(string(kind), outcomeError)
			q = o.demo.Quote(kind, symbol)
		}
	}()

	provider := o.crypto
	if kind == market.KindEquity {
		provider = o.equity
	}
	if provider == nil {
		fetchTotal.Inc(string(kind), outcomeSynthetic)
		return o.demo.Quote(kind, symbol)
	}

	q, err := provider.Quote(ctx, symbol)
	if err == nil {
		err = q.Validate()
	}
	if err != nil {
		logger.Errorf("fetcher: %s quote for %s failed: %v", provider.Name(), symbol, err)
		fetchTotal.Inc(string(kind), outcomeError)
		return o.demo.Quote(kind, symbol)
	}
	// Providers may echo a different spelling (BRK-B for BRK.B); callers
	// match results and cache rows by the requested symbol.
	q.Symbol = symbol
	if q.IsSynthetic() {
		fetchTotal.Inc(string(kind), outcomeSynthetic)
	} else {
		fetchTotal.Inc(string(kind), outcomeLive)
	}
	return q
}

func (o *Orchestrator) synthetic(symbol string) market.Quote {
	kind := o.classify(symbol)
	fetchTotal.Inc(string(kind), outcomeSynthetic)
	return o.demo.Quote(kind, market.NormalizeSymbol(symbol))
}

func (o *Orchestrator) fillSynthetic(symbols []string, out []market.Quote) {
	for i, s := range symbols {
		out[i] = o.synthetic(s)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
