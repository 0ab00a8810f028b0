package main

import (
	"context"
	"log"
	"time"

	"marketcache-api/pkg/market"
)

const refreshTimeout = 2 * time.Minute // Upper bound for one watchlist pass

type quoteRefresher interface {
	RefreshQuotes(ctx context.Context, symbols []string) ([]market.Quote, error)
	RefreshCeiling() int
}

// refreshWatchlist force-refreshes symbols in chunks no larger than the
// refresher's ceiling. It returns the number of quotes written.
func refreshWatchlist(parentCtx context.Context, r quoteRefresher, symbols []string) int {
	if parentCtx.Err() != nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	symbols = market.NormalizeSymbols(symbols)
	size := max(r.RefreshCeiling(), 1)
	total := 0
	for start := 0; start < len(symbols); start += size {
		chunk := symbols[start:min(start+size, len(symbols))]

		began := time.Now()
		quotes, err := r.RefreshQuotes(ctx, chunk)
		elapsed := time.Since(began)
		if err != nil {
			log.Printf("[cron.refresh] [ERROR] %v: %v, took %dms", chunk, err, elapsed.Milliseconds())
			continue
		}

		synthetic := 0
		for _, q := range quotes {
			if q.IsSynthetic() {
				synthetic++
			}
		}
		if synthetic > 0 {
			log.Printf("[cron.refresh] [WARN] %d of %d quotes are synthetic, took %dms", synthetic, len(quotes), elapsed.Milliseconds())
		} else {
			log.Printf("[cron.refresh] [OK] refreshed %d quotes, took %dms", len(quotes), elapsed.Milliseconds())
		}
		total += len(quotes)
	}
	return total
}
