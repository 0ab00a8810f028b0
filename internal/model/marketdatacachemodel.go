package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ MarketDataCacheModel = (*customMarketDataCacheModel)(nil)

type (
	// MarketDataCacheModel is an interface to be customized, add more methods here,
	// and implement the added methods in customMarketDataCacheModel.
	MarketDataCacheModel interface {
		marketDataCacheModel
		FindFresh(ctx context.Context, symbols []string, since time.Time) ([]*MarketDataCache, error)
		FindSince(ctx context.Context, since time.Time) ([]*MarketDataCache, error)
	}

	customMarketDataCacheModel struct {
		*defaultMarketDataCacheModel
	}
)

// NewMarketDataCacheModel returns a model for the database table.
func NewMarketDataCacheModel(conn sqlx.SqlConn) MarketDataCacheModel {
	return &customMarketDataCacheModel{
		defaultMarketDataCacheModel: newMarketDataCacheModel(conn),
	}
}

// FindFresh returns rows for symbols written at or after since, newest first.
// An empty symbol list yields no rows.
func (m *customMarketDataCacheModel) FindFresh(ctx context.Context, symbols []string, since time.Time) ([]*MarketDataCache, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(symbols)+1)
	args = append(args, since)
	placeholders := make([]string, len(symbols))
	for i, sym := range symbols {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, sym)
	}
	query := fmt.Sprintf(`select %s from %s where "timestamp" >= $1 and "symbol" in (%s) order by "timestamp" desc`,
		marketDataCacheRows, m.tableName(), strings.Join(placeholders, ", "))

	var rows []*MarketDataCache
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("market_data_cache.FindFresh query: %w", err)
	}
	return rows, nil
}

// FindSince returns every row written at or after since, newest first.
func (m *customMarketDataCacheModel) FindSince(ctx context.Context, since time.Time) ([]*MarketDataCache, error) {
	query := fmt.Sprintf(`select %s from %s where "timestamp" >= $1 order by "timestamp" desc`, marketDataCacheRows, m.tableName())
	var rows []*MarketDataCache
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("market_data_cache.FindSince query: %w", err)
	}
	return rows, nil
}
