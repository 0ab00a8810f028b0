package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"marketcache-api/pkg/market"
)

const (
	DefaultMaxAge           = 10 * time.Minute
	DefaultReadFetchCeiling = 5
	DefaultRefreshCeiling   = 10
)

var (
	// ErrValidation marks caller mistakes such as exceeding the refresh ceiling.
	ErrValidation = errors.New("reconcile: invalid request")
	// ErrInternal marks unexpected failures recovered at the service boundary.
	ErrInternal = errors.New("reconcile: internal error")
)

// Fetcher resolves live quotes, one per input symbol.
type Fetcher interface {
	FetchMany(ctx context.Context, symbols []string) []market.Quote
}

// Service answers quote reads from the persistent cache and fills gaps with
// live fetches under fixed ceilings.
type Service struct {
	store          market.CacheStore
	fetcher        Fetcher
	defaultMaxAge  time.Duration
	readCeiling    int
	refreshCeiling int
	now            func() time.Time
}

type Option func(*Service)

func WithCeilings(read, refresh int) Option {
	return func(s *Service) {
		if read > 0 {
			s.readCeiling = read
		}
		if refresh > 0 {
			s.refreshCeiling = refresh
		}
	}
}

func WithDefaultMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultMaxAge = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store market.CacheStore, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		store:          store,
		fetcher:        fetcher,
		defaultMaxAge:  DefaultMaxAge,
		readCeiling:    DefaultReadFetchCeiling,
		refreshCeiling: DefaultRefreshCeiling,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultMaxAge is the freshness window applied when callers pass zero.
func (s *Service) DefaultMaxAge() time.Duration { return s.defaultMaxAge }

// RefreshCeiling is the largest symbol list RefreshQuotes accepts.
func (s *Service) RefreshCeiling() int { return s.refreshCeiling }

// GetQuotes returns cached quotes no older than maxAge and live quotes for up
// to the read ceiling of the symbols missing from the cache. Missing symbols
// beyond the ceiling are omitted. An empty symbol list returns every entry
// written within maxAge.
func (s *Service) GetQuotes(ctx context.Context, symbols []string, maxAge time.Duration) (quotes []market.Quote, err error) {
	defer s.recoverInto(ctx, "get quotes", &err)

	if maxAge <= 0 {
		maxAge = s.defaultMaxAge
	}
	logger := logx.WithContext(ctx)
	normalized := market.NormalizeSymbols(symbols)

	if len(normalized) == 0 {
		rows, err := s.store.QueryRecent(ctx, maxAge)
		if err != nil {
			return nil, fmt.Errorf("%w: query recent: %v", ErrInternal, err)
		}
		return newestPerSymbol(rows), nil
	}

	rows, err := s.store.QueryFresh(ctx, normalized, maxAge)
	if err != nil {
		logger.Errorf("reconcile: query fresh %v: %v", normalized, err)
		rows = nil
	}
	now := s.now()
	fresh := make([]market.CacheEntry, 0, len(rows))
	for _, row := range rows {
		if row.Fresh(now, maxAge) {
			fresh = append(fresh, row)
		}
	}

	cached := make(map[string]struct{}, len(fresh))
	for _, row := range fresh {
		cached[row.Symbol] = struct{}{}
	}
	missing := make([]string, 0, len(normalized))
	for _, sym := range normalized {
		if _, ok := cached[sym]; !ok {
			missing = append(missing, sym)
		}
	}
	if len(missing) > s.readCeiling {
		logger.Infof("reconcile: %d symbols missing from cache, fetching first %d", len(missing), s.readCeiling)
		missing = missing[:s.readCeiling]
	}

	var live []market.Quote
	if len(missing) > 0 {
		live = s.fetchAndStore(ctx, missing)
	}
	return merge(normalized, fresh, live), nil
}

// RefreshQuotes fetches every symbol live regardless of cache state and
// upserts the results.
func (s *Service) RefreshQuotes(ctx context.Context, symbols []string) ([]market.Quote, error) {
	return s.RefreshQuotesLimit(ctx, symbols, s.refreshCeiling)
}

// RefreshQuotesLimit is RefreshQuotes with a caller-supplied cap, never above
// the service ceiling. Oversized requests fail with ErrValidation before any
// provider is called.
func (s *Service) RefreshQuotesLimit(ctx context.Context, symbols []string, maxCount int) (quotes []market.Quote, err error) {
	defer s.recoverInto(ctx, "refresh quotes", &err)

	if maxCount <= 0 || maxCount > s.refreshCeiling {
		maxCount = s.refreshCeiling
	}
	if len(symbols) > maxCount {
		return nil, fmt.Errorf("%w: maximum %d symbols allowed per refresh, got %d", ErrValidation, maxCount, len(symbols))
	}
	normalized := market.NormalizeSymbols(symbols)
	if len(normalized) == 0 {
		return []market.Quote{}, nil
	}
	return s.fetchAndStore(ctx, normalized), nil
}

func (s *Service) fetchAndStore(ctx context.Context, symbols []string) []market.Quote {
	quotes := s.fetcher.FetchMany(ctx, symbols)
	now := s.now()
	entries := make([]market.CacheEntry, 0, len(quotes))
	for _, q := range quotes {
		entries = append(entries, market.NewCacheEntry(q, now))
	}
	if err := s.store.Upsert(ctx, entries); err != nil {
		logx.WithContext(ctx).Errorf("reconcile: upsert %d quotes: %v", len(entries), err)
	}
	return quotes
}

func (s *Service) recoverInto(ctx context.Context, op string, err *error) {
	if r := recover(); r != nil {
		logx.WithContext(ctx).Errorf("reconcile: %s panic: %v", op, r)
		*err = fmt.Errorf("%w: %s: %v", ErrInternal, op, r)
	}
}

// merge returns one quote per symbol in request order. Live quotes supersede
// cached rows; among cached rows the most recent write wins.
func merge(order []string, cached []market.CacheEntry, live []market.Quote) []market.Quote {
	bySymbol := make(map[string]market.Quote, len(order))
	for _, q := range newestPerSymbol(cached) {
		bySymbol[q.Symbol] = q
	}
	for _, q := range live {
		bySymbol[q.Symbol] = q
	}
	out := make([]market.Quote, 0, len(bySymbol))
	for _, sym := range order {
		if q, ok := bySymbol[sym]; ok {
			out = append(out, q)
		}
	}
	return out
}

func newestPerSymbol(rows []market.CacheEntry) []market.Quote {
	best := make(map[string]int, len(rows))
	order := make([]string, 0, len(rows))
	for i, row := range rows {
		j, ok := best[row.Symbol]
		if !ok {
			best[row.Symbol] = i
			order = append(order, row.Symbol)
			continue
		}
		if row.CachedAt.After(rows[j].CachedAt) {
			best[row.Symbol] = i
		}
	}
	out := make([]market.Quote, 0, len(order))
	for _, sym := range order {
		out = append(out, rows[best[sym]].AsQuote())
	}
	return out
}
