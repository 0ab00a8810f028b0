package market

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Provenance tags carried in Quote.Source.
const (
	SourceAlphaVantage = "Alpha Vantage"
	SourceCoinGecko    = "CoinGecko"
	SourceDemo         = "Demo Data"
)

// ErrEmptySymbol is returned when a blank symbol reaches an adapter.
var ErrEmptySymbol = errors.New("market: symbol cannot be empty")

// AssetKind selects the adapter family used for a symbol.
type AssetKind string

const (
	KindEquity AssetKind = "stock"
	KindCrypto AssetKind = "crypto"
)

// Quote is a normalized market-data snapshot for one symbol from one source.
type Quote struct {
	Symbol        string    `json:"symbol" msgpack:"symbol"`
	Price         float64   `json:"price" msgpack:"price"`
	Change        float64   `json:"change" msgpack:"change"`
	ChangePercent float64   `json:"changePercent" msgpack:"changePercent"`
	Volume        int64     `json:"volume" msgpack:"volume"`
	Timestamp     time.Time `json:"timestamp" msgpack:"timestamp"`
	Source        string    `json:"source" msgpack:"source"`
}

// IsSynthetic reports whether the quote was produced by the demo generator.
func (q Quote) IsSynthetic() bool {
	return q.Source == SourceDemo
}

// Validate checks the structural invariants every quote must satisfy.
func (q Quote) Validate() error {
	switch {
	case strings.TrimSpace(q.Symbol) == "":
		return ErrEmptySymbol
	case math.IsNaN(q.Price) || q.Price < 0:
		return fmt.Errorf("market: quote %s has invalid price %v", q.Symbol, q.Price)
	case q.Volume < 0:
		return fmt.Errorf("market: quote %s has negative volume %d", q.Symbol, q.Volume)
	case strings.TrimSpace(q.Source) == "":
		return fmt.Errorf("market: quote %s has no source", q.Symbol)
	case q.Timestamp.IsZero():
		return fmt.Errorf("market: quote %s has no timestamp", q.Symbol)
	}
	return nil
}

// CacheEntry is a persisted quote keyed by (symbol, source). CachedAt is the
// write time used for freshness checks.
type CacheEntry struct {
	Quote
	CachedAt time.Time
}

// NewCacheEntry stamps q with the time it is being written.
func NewCacheEntry(q Quote, now time.Time) CacheEntry {
	return CacheEntry{Quote: q, CachedAt: now.UTC()}
}

// Key returns the storage identity of the entry.
func (e CacheEntry) Key() string {
	return e.Symbol + "|" + e.Source
}

// Fresh reports whether the entry is within maxAge of now.
func (e CacheEntry) Fresh(now time.Time, maxAge time.Duration) bool {
	if e.CachedAt.IsZero() {
		return false
	}
	return now.Sub(e.CachedAt) <= maxAge
}

// AsQuote maps the entry back to the quote shape returned to callers. The
// persisted write time becomes the quote timestamp.
func (e CacheEntry) AsQuote() Quote {
	q := e.Quote
	if !e.CachedAt.IsZero() {
		q.Timestamp = e.CachedAt
	}
	return q
}

// CacheRequest is the input of a single reconciliation call.
type CacheRequest struct {
	Symbols []string
	MaxAge  time.Duration
}

// NormalizeSymbol trims and uppercases a ticker for lookup consistency.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeSymbols normalizes, drops blanks and removes duplicates while
// preserving the first occurrence order.
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Round2 rounds to two decimal places, the precision used for synthetic values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
