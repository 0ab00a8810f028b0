package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"

	"marketcache-api/pkg/confkit"
	llmpkg "marketcache-api/pkg/llm"
	marketpkg "marketcache-api/pkg/market"
	_ "marketcache-api/pkg/market/alphavantage"
	_ "marketcache-api/pkg/market/coingecko"
	"marketcache-api/pkg/market/demo"
	"marketcache-api/pkg/market/fetcher"
	"marketcache-api/pkg/market/quotecache"
)

func parseSymbols(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	return marketpkg.NormalizeSymbols(fields)
}

// describeQuote renders q as the market-data paragraph fed to the model.
func describeQuote(q marketpkg.Quote) string {
	line := fmt.Sprintf("%s last price %.2f (change %+.2f, %+.2f%%), volume %d, as of %s, source %s.",
		q.Symbol, q.Price, q.Change, q.ChangePercent, q.Volume, q.Timestamp.UTC().Format("2006-01-02 15:04 MST"), q.Source)
	if q.IsSynthetic() {
		line += " Values are synthetic placeholders, weigh them lightly."
	}
	return line
}

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	os.Exit(1)
}

func main() {
	var (
		marketPath = flag.String("market-config", "etc/market.yaml", "path to market provider configuration")
		llmPath    = flag.String("llm-config", "etc/llm.yaml", "path to llm client configuration")
		symbolsRaw = flag.String("symbols", "BTC,AAPL", "comma-separated list of assets to forecast")
		botContext = flag.String("context", "", "optional strategy description passed to the model")
	)
	flag.Parse()
	logx.MustSetup(logx.LogConf{})
	logx.DisableStat()

	symbols := parseSymbols(*symbolsRaw)
	if len(symbols) == 0 {
		fatalf("no symbols provided; use --symbols to specify at least one")
	}

	confkit.LoadDotenvOnce()

	marketCfg, err := marketpkg.LoadConfig(*marketPath)
	if err != nil {
		fatalf("load market config: %v", err)
	}
	marketProviders, err := marketCfg.BuildProviders()
	if err != nil {
		fatalf("build market providers: %v", err)
	}
	equity, crypto := marketCfg.Select(marketProviders)
	quotes := fetcher.New(
		fetcher.WithProviders(equity, crypto),
		fetcher.WithDemo(demo.New()),
		fetcher.WithCache(quotecache.New[marketpkg.Quote](marketCfg.Cache.TTL)),
		fetcher.WithBatching(marketCfg.Fetch.BatchSize, marketCfg.Fetch.SymbolStagger, marketCfg.Fetch.BatchDelay),
	)

	llmCfg, err := llmpkg.LoadConfig(*llmPath)
	if err != nil {
		fatalf("load llm config: %v", err)
	}
	llmClient, err := llmpkg.NewClient(llmCfg)
	if err != nil {
		fatalf("initialise llm client: %v", err)
	}
	predictor, err := llmpkg.NewPredictor(llmClient)
	if err != nil {
		fatalf("initialise predictor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, q := range quotes.FetchMany(ctx, symbols) {
		if ctx.Err() != nil {
			break
		}
		pred, err := predictor.GenerateStructuredPrediction(ctx, llmpkg.PredictionRequest{
			Asset:      q.Symbol,
			BotContext: *botContext,
			MarketData: describeQuote(q),
		})
		if err != nil {
			logx.Errorf("predict %s: %v", q.Symbol, err)
			continue
		}
		if err := enc.Encode(pred); err != nil {
			fatalf("write prediction: %v", err)
		}
	}
}
