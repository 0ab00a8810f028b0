package handler

import (
	"net/http"

	marketdata "marketcache-api/internal/handler/marketdata"
	prediction "marketcache-api/internal/handler/prediction"
	scraper "marketcache-api/internal/handler/scraper"
	webhook "marketcache-api/internal/handler/webhook"
	"marketcache-api/internal/svc"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(marketDataRoutes(serverCtx))
	server.AddRoutes(predictionRoutes(serverCtx))
	server.AddRoutes(webhookRoutes(serverCtx))
	server.AddRoutes(scraperRoutes(serverCtx))
}

func marketDataRoutes(serverCtx *svc.ServiceContext) []rest.Route {
	return []rest.Route{
		{
			Method:  http.MethodGet,
			Path:    "/market-data/cache",
			Handler: marketdata.GetCachedQuotesHandler(serverCtx),
		},
		{
			Method:  http.MethodPost,
			Path:    "/market-data/cache",
			Handler: marketdata.RefreshCacheHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/market-data/news",
			Handler: marketdata.GetNewsHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/market-data/:symbol",
			Handler: marketdata.GetQuoteHandler(serverCtx),
		},
	}
}

func predictionRoutes(serverCtx *svc.ServiceContext) []rest.Route {
	return []rest.Route{
		{
			Method:  http.MethodPost,
			Path:    "/predictions/generate",
			Handler: prediction.GeneratePredictionHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/predictions",
			Handler: prediction.ListPredictionsHandler(serverCtx),
		},
	}
}

func webhookRoutes(serverCtx *svc.ServiceContext) []rest.Route {
	return []rest.Route{
		{
			Method:  http.MethodPost,
			Path:    "/webhooks/finsynapse",
			Handler: webhook.FinsynapseWebhookHandler(serverCtx),
		},
	}
}

func scraperRoutes(serverCtx *svc.ServiceContext) []rest.Route {
	return []rest.Route{
		{
			Method:  http.MethodPost,
			Path:    "/scraper/jobs",
			Handler: scraper.SubmitScrapeJobHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/scraper/jobs/:id",
			Handler: scraper.GetScrapeJobHandler(serverCtx),
		},
	}
}
