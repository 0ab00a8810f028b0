package types

import (
	"encoding/json"
	"time"
)

type Quote struct {
	Symbol        string    `json:"symbol" msgpack:"symbol"`
	Price         float64   `json:"price" msgpack:"price"`
	Change        float64   `json:"change" msgpack:"change"`
	ChangePercent float64   `json:"changePercent" msgpack:"changePercent"`
	Volume        int64     `json:"volume" msgpack:"volume"`
	Timestamp     time.Time `json:"timestamp" msgpack:"timestamp"`
	Source        string    `json:"source" msgpack:"source"`
}

type CachedQuotesReq struct {
	Symbols string `form:"symbols,optional"`
	MaxAge  int64  `form:"maxAge,optional"`
}

type RefreshCacheReq struct {
	Symbols []string `json:"symbols"`
}

type RefreshCacheResp struct {
	Success bool    `json:"success"`
	Updated int     `json:"updated"`
	Data    []Quote `json:"data"`
}

type QuoteReq struct {
	Symbol string `path:"symbol"`
	Type   string `form:"type,default=auto,options=stock|crypto|auto"`
}

type NewsReq struct {
	Q     string `form:"q,optional"`
	Limit int    `form:"limit,optional"`
}

type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Url         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
}

type NewsResp struct {
	Articles []Article `json:"articles"`
}

type GeneratePredictionReq struct {
	Asset      string `json:"asset"`
	BotContext string `json:"botContext,optional"`
	MarketData string `json:"marketData,optional"`
}

type Prediction struct {
	Id                 string    `json:"id"`
	Asset              string    `json:"asset"`
	PredictedDirection string    `json:"predicted_direction"`
	ConfidenceScore    float64   `json:"confidence_score"`
	RiskScore          float64   `json:"risk_score"`
	ReasonSummary      string    `json:"reason_summary"`
	Model              string    `json:"model,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type ListPredictionsReq struct {
	Asset string `form:"asset"`
	Limit int    `form:"limit,optional"`
}

type ListPredictionsResp struct {
	Predictions []Prediction `json:"predictions"`
}

type WebhookEvent struct {
	Event      string `json:"event,omitempty"`
	Asset      string `json:"asset"`
	BotContext string `json:"botContext,omitempty"`
	MarketData string `json:"marketData,omitempty"`
}

type WebhookResp struct {
	Received   bool        `json:"received"`
	Prediction *Prediction `json:"prediction,omitempty"`
}

type SubmitScrapeJobReq struct {
	Url      string `json:"url"`
	Selector string `json:"selector,optional"`
	ActorId  string `json:"actorId,optional"`
}

type ScrapeJobReq struct {
	Id string `path:"id"`
}

type ScrapeJob struct {
	Id          string          `json:"id"`
	TrackingId  string          `json:"trackingId"`
	Url         string          `json:"url,omitempty"`
	Status      string          `json:"status"`
	DatasetId   string          `json:"datasetId,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}
