package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"marketcache-api/internal/cli"
	"marketcache-api/internal/config"
	"marketcache-api/internal/svc"
)

const shutdownTimeout = 10 * time.Second // Grace period for an in-flight refresh

var configFile = flag.String("f", "etc/marketcache.yaml", "the config file")

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting watchlist refresher...")

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", *configFile, err)
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}
	if len(appCfg.Watchlist.Symbols) == 0 {
		log.Fatalf("[main] Watchlist.Symbols is empty, nothing to refresh")
	}

	svcCtx, err := svc.Build(*appCfg)
	if err != nil {
		log.Fatalf("[main] Failed to build services: %v", err)
	}
	defer svcCtx.Close()
	log.Printf("[main] Storage backend: %s", svcCtx.StorageKind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	job := func() {
		refreshWatchlist(ctx, svcCtx.Reconciler, appCfg.Watchlist.Symbols)
	}
	if _, err := scheduler.AddFunc(appCfg.Watchlist.Cron, job); err != nil {
		log.Fatalf("[main] Invalid schedule %q: %v", appCfg.Watchlist.Cron, err)
	}

	// Run once immediately on startup
	job()
	scheduler.Start()
	log.Printf("[main] Refresher scheduled (%s). Press Ctrl+C to stop.", appCfg.Watchlist.Cron)

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, waiting for running refresh...")

	select {
	case <-scheduler.Stop().Done():
		log.Println("[main] All jobs stopped cleanly")
	case <-time.After(shutdownTimeout):
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}
	log.Println("[main] Watchlist refresher stopped")
}
