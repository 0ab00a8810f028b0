package marketdata

import (
	"marketcache-api/internal/types"
	"marketcache-api/pkg/market"
)

func toQuotes(quotes []market.Quote) []types.Quote {
	out := make([]types.Quote, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, toQuote(q))
	}
	return out
}

func toQuote(q market.Quote) types.Quote {
	return types.Quote{
		Symbol:        q.Symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		Timestamp:     q.Timestamp,
		Source:        q.Source,
	}
}
