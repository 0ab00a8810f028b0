package prediction

import (
	"context"
	"strings"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
)

const maxListLimit = 100

type ListPredictionsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewListPredictionsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListPredictionsLogic {
	return &ListPredictionsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ListPredictionsLogic) ListPredictions(req *types.ListPredictionsReq) (resp *types.ListPredictionsResp, err error) {
	if l.svcCtx.PredictionsModel == nil {
		return nil, errorx.Unavailable("prediction history requires a database")
	}
	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	if asset == "" {
		return nil, errorx.BadRequest("asset is required")
	}

	rows, err := l.svcCtx.PredictionsModel.FindRecentByAsset(l.ctx, asset, min(req.Limit, maxListLimit))
	if err != nil {
		return nil, errorx.Internal("Failed to load predictions", err)
	}

	resp = &types.ListPredictionsResp{Predictions: make([]types.Prediction, 0, len(rows))}
	for _, row := range rows {
		resp.Predictions = append(resp.Predictions, types.Prediction{
			Id:                 row.Id,
			Asset:              row.Asset,
			PredictedDirection: row.PredictedDirection,
			ConfidenceScore:    row.ConfidenceScore,
			RiskScore:          row.RiskScore,
			ReasonSummary:      row.ReasonSummary,
			Model:              row.Model.String,
			CreatedAt:          row.CreatedAt,
		})
	}
	return resp, nil
}
