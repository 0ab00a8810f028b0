package prediction

import (
	"context"
	"database/sql"
	"errors"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/model"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"
	llmpkg "marketcache-api/pkg/llm"

	"github.com/zeromicro/go-zero/core/logx"
)

type GeneratePredictionLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGeneratePredictionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GeneratePredictionLogic {
	return &GeneratePredictionLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// GeneratePrediction asks the model for a structured forecast and stores it
// when a database is configured. Storage failures are logged only.
func (l *GeneratePredictionLogic) GeneratePrediction(req *types.GeneratePredictionReq) (resp *types.Prediction, err error) {
	if l.svcCtx.Predictor == nil {
		return nil, errorx.Unavailable("prediction service is not configured")
	}

	pred, err := l.svcCtx.Predictor.GenerateStructuredPrediction(l.ctx, llmpkg.PredictionRequest{
		Asset:      req.Asset,
		BotContext: req.BotContext,
		MarketData: req.MarketData,
	})
	switch {
	case errors.Is(err, llmpkg.ErrInvalidPredictionRequest):
		return nil, errorx.BadRequest("asset is required")
	case err != nil:
		return nil, errorx.Internal("Failed to generate prediction", err)
	}

	if l.svcCtx.PredictionsModel != nil {
		if _, err := l.svcCtx.PredictionsModel.Insert(l.ctx, toRow(pred)); err != nil {
			l.Errorf("store prediction %s: %v", pred.ID, err)
		}
	}
	return ToPrediction(pred), nil
}

// ToPrediction maps a model forecast onto the response shape.
func ToPrediction(p *llmpkg.Prediction) *types.Prediction {
	return &types.Prediction{
		Id:                 p.ID,
		Asset:              p.Asset,
		PredictedDirection: string(p.PredictedDirection),
		ConfidenceScore:    p.ConfidenceScore,
		RiskScore:          p.RiskScore,
		ReasonSummary:      p.ReasonSummary,
		Model:              p.Model,
		CreatedAt:          p.CreatedAt,
	}
}

func toRow(p *llmpkg.Prediction) *model.Predictions {
	return &model.Predictions{
		Id:                 p.ID,
		Asset:              p.Asset,
		PredictedDirection: string(p.PredictedDirection),
		ConfidenceScore:    p.ConfidenceScore,
		RiskScore:          p.RiskScore,
		ReasonSummary:      p.ReasonSummary,
		Model:              sql.NullString{String: p.Model, Valid: p.Model != ""},
		CreatedAt:          p.CreatedAt,
	}
}
