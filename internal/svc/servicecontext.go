package svc

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "marketcache-api/internal/cache"
	"marketcache-api/internal/config"
	"marketcache-api/internal/model"
	marketpersist "marketcache-api/internal/persistence/market"
	llmpkg "marketcache-api/pkg/llm"
	marketpkg "marketcache-api/pkg/market"
	_ "marketcache-api/pkg/market/alphavantage"
	_ "marketcache-api/pkg/market/coingecko"
	"marketcache-api/pkg/market/demo"
	"marketcache-api/pkg/market/fetcher"
	"marketcache-api/pkg/market/memstore"
	"marketcache-api/pkg/market/quotecache"
	"marketcache-api/pkg/market/reconcile"
	"marketcache-api/pkg/news"
	"marketcache-api/pkg/scraper"
)

// Storage backends selected by NewServiceContext.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// testEnvModel is the low-cost model used when Env is test.
const testEnvModel = "llama3-8b-8192"

type ServiceContext struct {
	Config config.Config

	MarketConfig *marketpkg.Config
	Equity       marketpkg.QuoteProvider
	Crypto       marketpkg.QuoteProvider
	Demo         *demo.Generator
	QuoteCache   *quotecache.Cache[marketpkg.Quote]
	Fetcher      *fetcher.Orchestrator

	Store       marketpkg.CacheStore
	StorageKind string
	Reconciler  *reconcile.Service

	News    *news.Client
	Scraper *scraper.Client

	LLMConfig *llmpkg.Config
	// Predictor is nil when no LLM key is configured.
	Predictor *llmpkg.Predictor

	// Optional DB handles, set only when a Postgres DSN is configured.
	DBConn           sqlx.SqlConn
	PredictionsModel model.PredictionsModel

	closers []func() error
}

// NewServiceContext wires every dependency and exits the process on error.
func NewServiceContext(c config.Config) *ServiceContext {
	svc, err := Build(c)
	if err != nil {
		log.Fatalf("failed to build service context: %v", err)
	}
	return svc
}

// Build wires the service graph. Credentials are optional: missing keys only
// switch the affected adapters to synthetic data.
func Build(c config.Config) (*ServiceContext, error) {
	svc := &ServiceContext{Config: c}

	marketCfg := c.MarketConfig()
	providers, err := marketCfg.BuildProviders()
	if err != nil {
		return nil, fmt.Errorf("build market providers: %w", err)
	}
	svc.MarketConfig = marketCfg
	svc.Equity, svc.Crypto = marketCfg.Select(providers)
	svc.Demo = demo.New()
	svc.QuoteCache = quotecache.New[marketpkg.Quote](marketCfg.Cache.TTL, quotecache.WithMaxItems(marketCfg.Cache.MaxItems))
	svc.Fetcher = fetcher.New(
		fetcher.WithProviders(svc.Equity, svc.Crypto),
		fetcher.WithDemo(svc.Demo),
		fetcher.WithCache(svc.QuoteCache),
		fetcher.WithBatching(marketCfg.Fetch.BatchSize, marketCfg.Fetch.SymbolStagger, marketCfg.Fetch.BatchDelay),
	)

	if err := svc.initStore(c); err != nil {
		return nil, err
	}
	svc.Reconciler = reconcile.NewService(svc.Store, svc.Fetcher,
		reconcile.WithCeilings(marketCfg.Reconcile.ReadFetchCeiling, marketCfg.Reconcile.RefreshCeiling),
		reconcile.WithDefaultMaxAge(marketCfg.Reconcile.DefaultMaxAge),
	)

	svc.News = news.NewClient(
		news.WithAPIKey(c.News.APIKey),
		news.WithBaseURL(c.News.BaseURL),
		news.WithHTTPClient(&http.Client{Timeout: time.Duration(c.News.Timeout) * time.Second}),
	)
	svc.Scraper = scraper.NewClient(
		scraper.WithToken(c.Scraper.APIKey),
		scraper.WithBaseURL(c.Scraper.BaseURL),
		scraper.WithHTTPClient(&http.Client{Timeout: time.Duration(c.Scraper.Timeout) * time.Second}),
	)

	if err := svc.initPredictor(c); err != nil {
		return nil, err
	}
	return svc, nil
}

// initStore picks Postgres, then SQLite, then the in-memory store.
func (s *ServiceContext) initStore(c config.Config) error {
	switch {
	case strings.TrimSpace(c.Postgres.DSN) != "":
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		if c.Postgres.MaxOpen > 0 || c.Postgres.MaxIdle > 0 {
			if db, err := conn.RawDB(); err == nil {
				if c.Postgres.MaxOpen > 0 {
					db.SetMaxOpenConns(c.Postgres.MaxOpen)
				}
				if c.Postgres.MaxIdle > 0 {
					db.SetMaxIdleConns(c.Postgres.MaxIdle)
				}
			} else {
				logx.Errorf("postgres pool settings not applied: %v", err)
			}
		}
		s.DBConn = conn
		s.PredictionsModel = model.NewPredictionsModel(conn)

		var mirror marketpersist.Mirror
		if strings.TrimSpace(c.Redis.Host) != "" {
			mirror = gocache.New(gocache.ClusterConf{{RedisConf: c.Redis, Weight: 100}},
				syncx.NewSingleFlight(), gocache.NewStat("marketcache"), model.ErrNotFound)
		}
		s.Store = marketpersist.NewPostgresStore(marketpersist.Config{
			Model: model.NewMarketDataCacheModel(conn),
			Cache: mirror,
			TTL:   cachekeys.NewTTLSet(c.TTL),
		})
		s.StorageKind = StoragePostgres
	case strings.TrimSpace(c.SQLite.Path) != "":
		store, err := marketpersist.OpenSQLite(c.SQLite.Path, nil)
		if err != nil {
			return fmt.Errorf("open sqlite cache: %w", err)
		}
		s.Store = store
		s.StorageKind = StorageSQLite
		s.closers = append(s.closers, store.Close)
	default:
		logx.Info("no Postgres DSN or SQLite path configured, quote cache is in-memory only")
		s.Store = memstore.New()
		s.StorageKind = StorageMemory
	}
	return nil
}

func (s *ServiceContext) initPredictor(c config.Config) error {
	loaded, err := c.LLMConfig()
	if err != nil {
		return fmt.Errorf("load llm config: %w", err)
	}
	llmCfg := *loaded
	if c.IsTestEnv() {
		llmCfg.DefaultModel = testEnvModel
	}
	s.LLMConfig = &llmCfg
	if !llmCfg.Enabled() {
		logx.Info("no LLM api key configured, prediction endpoints are disabled")
		return nil
	}

	client, err := llmpkg.NewClient(&llmCfg)
	if err != nil {
		return fmt.Errorf("build llm client: %w", err)
	}
	var opts []llmpkg.PredictorOption
	if llmCfg.PredictionPrompt != "" {
		tmpl, err := llmpkg.NewPromptTemplate(llmCfg.PredictionPrompt)
		if err != nil {
			return fmt.Errorf("load prediction prompt: %w", err)
		}
		opts = append(opts, llmpkg.WithPromptTemplate(tmpl))
	}
	predictor, err := llmpkg.NewPredictor(client, opts...)
	if err != nil {
		return err
	}
	s.Predictor = predictor
	return nil
}

// Close releases resources opened by Build.
func (s *ServiceContext) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}
