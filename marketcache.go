package main

import (
	"flag"
	"fmt"

	"marketcache-api/internal/cli"
	"marketcache-api/internal/config"
	"marketcache-api/internal/errorx"
	"marketcache-api/internal/handler"
	"marketcache-api/internal/svc"

	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"
)

var configFile = flag.String("f", "etc/marketcache.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	cli.LogConfigSummary(cfg)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(*cfg)
	defer ctx.Close()
	handler.RegisterHandlers(server, ctx)
	httpx.SetErrorHandlerCtx(errorx.Handler)

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
