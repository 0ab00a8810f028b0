package marketpersist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	_ "modernc.org/sqlite"

	"marketcache-api/pkg/market"
)

var _ market.CacheStore = (*SQLiteStore)(nil)

// SQLiteStore keeps the quote cache in an embedded SQLite file. Timestamps
// are stored as unix milliseconds.
type SQLiteStore struct {
	db   *sql.DB
	conn sqlx.SqlConn
	now  func() time.Time
}

type sqliteRow struct {
	Symbol        string  `db:"symbol"`
	Source        string  `db:"source"`
	Price         float64 `db:"price"`
	ChangeAmount  float64 `db:"change_amount"`
	ChangePercent float64 `db:"change_percent"`
	Volume        int64   `db:"volume"`
	TsMs          int64   `db:"ts_ms"`
}

const sqliteColumns = "symbol, source, price, change_amount, change_percent, volume, ts_ms"

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string, clock func() time.Time) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("marketpersist: sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if clock == nil {
		clock = time.Now
	}
	s := &SQLiteStore{db: db, conn: sqlx.NewSqlConnFromDB(db), now: clock}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logx.Infof("marketpersist: sqlite cache opened: %s", path)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS market_data_cache (
			symbol         TEXT NOT NULL,
			source         TEXT NOT NULL,
			price          REAL NOT NULL,
			change_amount  REAL NOT NULL DEFAULT 0,
			change_percent REAL NOT NULL DEFAULT 0,
			volume         INTEGER NOT NULL DEFAULT 0,
			ts_ms          INTEGER NOT NULL,
			PRIMARY KEY (symbol, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_data_cache_ts ON market_data_cache(ts_ms)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) QueryFresh(ctx context.Context, symbols []string, maxAge time.Duration) ([]market.CacheEntry, error) {
	norm := market.NormalizeSymbols(symbols)
	if len(norm) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(norm)+1)
	args = append(args, s.now().Add(-maxAge).UnixMilli())
	for _, sym := range norm {
		args = append(args, sym)
	}
	query := fmt.Sprintf(`SELECT %s FROM market_data_cache WHERE ts_ms >= ? AND symbol IN (%s) ORDER BY ts_ms DESC`,
		sqliteColumns, strings.TrimSuffix(strings.Repeat("?, ", len(norm)), ", "))
	return s.query(ctx, query, args...)
}

func (s *SQLiteStore) QueryRecent(ctx context.Context, maxAge time.Duration) ([]market.CacheEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM market_data_cache WHERE ts_ms >= ? ORDER BY ts_ms DESC`, sqliteColumns)
	return s.query(ctx, query, s.now().Add(-maxAge).UnixMilli())
}

func (s *SQLiteStore) Upsert(ctx context.Context, entries []market.CacheEntry) error {
	const stmt = `INSERT INTO market_data_cache (` + sqliteColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol, source) DO UPDATE SET
    price = excluded.price,
    change_amount = excluded.change_amount,
    change_percent = excluded.change_percent,
    volume = excluded.volume,
    ts_ms = excluded.ts_ms`
	var errs []error
	for _, e := range entries {
		symbol := market.NormalizeSymbol(e.Symbol)
		if symbol == "" {
			continue
		}
		cachedAt := e.CachedAt
		if cachedAt.IsZero() {
			cachedAt = s.now()
		}
		if _, err := s.conn.ExecCtx(ctx, stmt, symbol, e.Source, e.Price, e.Change, e.ChangePercent, e.Volume, cachedAt.UnixMilli()); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s/%s: %w", symbol, e.Source, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]market.CacheEntry, error) {
	var rows []sqliteRow
	if err := s.conn.QueryRowsCtx(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("marketpersist: sqlite query: %w", err)
	}
	out := make([]market.CacheEntry, 0, len(rows))
	for _, r := range rows {
		ts := time.UnixMilli(r.TsMs).UTC()
		out = append(out, market.CacheEntry{
			Quote: market.Quote{
				Symbol:        r.Symbol,
				Price:         r.Price,
				Change:        r.ChangeAmount,
				ChangePercent: r.ChangePercent,
				Volume:        r.Volume,
				Timestamp:     ts,
				Source:        r.Source,
			},
			CachedAt: ts,
		})
	}
	return out, nil
}
