// Package memstore is an in-memory market.CacheStore for tests and
// single-process deployments without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketcache-api/pkg/market"
)

type Store struct {
	mu   sync.RWMutex
	rows map[string]market.CacheEntry
	now  func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{rows: make(map[string]market.CacheEntry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) QueryFresh(_ context.Context, symbols []string, maxAge time.Duration) ([]market.CacheEntry, error) {
	want := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		want[market.NormalizeSymbol(sym)] = struct{}{}
	}
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.CacheEntry, 0, len(symbols))
	for _, row := range s.rows {
		if _, ok := want[row.Symbol]; !ok {
			continue
		}
		if row.Fresh(now, maxAge) {
			out = append(out, row)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) QueryRecent(_ context.Context, maxAge time.Duration) ([]market.CacheEntry, error) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.CacheEntry, 0, len(s.rows))
	for _, row := range s.rows {
		if row.Fresh(now, maxAge) {
			out = append(out, row)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Upsert replaces rows by (symbol, source). Entries without a write time are
// stamped with the store clock, as the SQL stores do.
func (s *Store) Upsert(_ context.Context, entries []market.CacheEntry) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		e.Symbol = market.NormalizeSymbol(e.Symbol)
		if e.Symbol == "" {
			continue
		}
		if e.CachedAt.IsZero() {
			e.CachedAt = now
		}
		s.rows[e.Key()] = e
	}
	return nil
}

// Len reports the number of stored (symbol, source) rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func sortNewestFirst(rows []market.CacheEntry) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CachedAt.Equal(rows[j].CachedAt) {
			return rows[i].CachedAt.After(rows[j].CachedAt)
		}
		return rows[i].Key() < rows[j].Key()
	})
}
