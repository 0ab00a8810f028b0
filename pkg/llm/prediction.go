package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Direction is the predicted price move.
type Direction string

const (
	DirectionUp      Direction = "UP"
	DirectionDown    Direction = "DOWN"
	DirectionNeutral Direction = "NEUTRAL"
)

const (
	defaultMarketData = "Recent market trends and technical indicators"
	defaultBotContext = "You are a financial analyst with expertise in market prediction."
)

// ErrInvalidPredictionRequest is returned when the asset is missing.
var ErrInvalidPredictionRequest = errors.New("llm: prediction request requires an asset")

const predictionPrompt = `You are a financial prediction AI assistant.
Based on the following market data for {{ .Asset }}:

{{ .MarketData }}

And considering your role and expertise as described:
{{ .BotContext }}

Generate a prediction with the following information:
1. Predicted direction (UP, DOWN, NEUTRAL)
2. Confidence score (0.0-1.0)
3. Risk score (0.0-1.0)
4. A brief reason for this prediction (2-3 sentences)
`

// PredictionRequest is the input of GenerateStructuredPrediction.
type PredictionRequest struct {
	Asset      string `json:"asset"`
	BotContext string `json:"botContext,omitempty"`
	MarketData string `json:"marketData,omitempty"`
}

// Prediction is a normalised model forecast for one asset.
type Prediction struct {
	ID                 string    `json:"id"`
	Asset              string    `json:"asset"`
	PredictedDirection Direction `json:"predicted_direction"`
	ConfidenceScore    float64   `json:"confidence_score"`
	RiskScore          float64   `json:"risk_score"`
	ReasonSummary      string    `json:"reason_summary"`
	Model              string    `json:"model,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type predictionPayload struct {
	PredictedDirection string  `json:"predicted_direction" enum:"UP|DOWN|NEUTRAL"`
	ConfidenceScore    float64 `json:"confidence_score" description:"0.0-1.0"`
	RiskScore          float64 `json:"risk_score" description:"0.0-1.0"`
	ReasonSummary      string  `json:"reason_summary" description:"2-3 sentences"`
}

// Predictor turns market context into structured predictions.
type Predictor struct {
	chat   Chatter
	prompt *PromptTemplate
	newID  func() string
	now    func() time.Time
}

type PredictorOption func(*Predictor)

// WithPromptTemplate replaces the built-in prompt.
func WithPromptTemplate(t *PromptTemplate) PredictorOption {
	return func(p *Predictor) {
		if t != nil {
			p.prompt = t
		}
	}
}

func WithPredictorClock(now func() time.Time) PredictorOption {
	return func(p *Predictor) {
		if now != nil {
			p.now = now
		}
	}
}

func WithIDGenerator(fn func() string) PredictorOption {
	return func(p *Predictor) {
		if fn != nil {
			p.newID = fn
		}
	}
}

func NewPredictor(chat Chatter, opts ...PredictorOption) (*Predictor, error) {
	if chat == nil {
		return nil, errors.New("llm: predictor requires a chat client")
	}
	tmpl, err := NewInlinePromptTemplate("prediction", predictionPrompt)
	if err != nil {
		return nil, err
	}
	p := &Predictor{chat: chat, prompt: tmpl, newID: uuid.NewString, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GenerateStructuredPrediction asks the model for a direction, confidence,
// risk and rationale. Scores are clamped to [0,1] and unknown directions
// become NEUTRAL.
func (p *Predictor) GenerateStructuredPrediction(ctx context.Context, req PredictionRequest) (*Prediction, error) {
	req.Asset = strings.TrimSpace(req.Asset)
	if req.Asset == "" {
		return nil, ErrInvalidPredictionRequest
	}
	if strings.TrimSpace(req.MarketData) == "" {
		req.MarketData = defaultMarketData
	}
	if strings.TrimSpace(req.BotContext) == "" {
		req.BotContext = defaultBotContext
	}

	prompt, err := p.prompt.Render(req)
	if err != nil {
		return nil, err
	}
	var payload predictionPayload
	resp, err := p.chat.ChatStructured(ctx, &ChatRequest{Messages: []Message{UserMessage(prompt)}}, &payload)
	if err != nil {
		return nil, fmt.Errorf("llm: generate prediction for %s: %w", req.Asset, err)
	}

	pred := &Prediction{
		ID:                 p.newID(),
		Asset:              req.Asset,
		PredictedDirection: ParseDirection(payload.PredictedDirection),
		ConfidenceScore:    clampUnit(payload.ConfidenceScore),
		RiskScore:          clampUnit(payload.RiskScore),
		ReasonSummary:      strings.TrimSpace(payload.ReasonSummary),
		CreatedAt:          p.now().UTC(),
	}
	if resp != nil {
		pred.Model = resp.Model
	}
	return pred, nil
}

// ParseDirection maps model wording onto a Direction.
func ParseDirection(raw string) Direction {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "UP", "BULLISH", "BUY", "LONG":
		return DirectionUp
	case "DOWN", "BEARISH", "SELL", "SHORT":
		return DirectionDown
	default:
		return DirectionNeutral
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
