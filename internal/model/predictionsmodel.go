package model

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ PredictionsModel = (*customPredictionsModel)(nil)

type (
	// PredictionsModel is an interface to be customized, add more methods here,
	// and implement the added methods in customPredictionsModel.
	PredictionsModel interface {
		predictionsModel
		FindRecentByAsset(ctx context.Context, asset string, limit int) ([]*Predictions, error)
	}

	customPredictionsModel struct {
		*defaultPredictionsModel
	}
)

// NewPredictionsModel returns a model for the database table.
func NewPredictionsModel(conn sqlx.SqlConn) PredictionsModel {
	return &customPredictionsModel{
		defaultPredictionsModel: newPredictionsModel(conn),
	}
}

// FindRecentByAsset lists the latest predictions for asset.
func (m *customPredictionsModel) FindRecentByAsset(ctx context.Context, asset string, limit int) ([]*Predictions, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`select %s from %s where "asset" = $1 order by "created_at" desc limit $2`, predictionsRows, m.tableName())
	var rows []*Predictions
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, asset, limit); err != nil {
		return nil, fmt.Errorf("predictions.FindRecentByAsset query: %w", err)
	}
	return rows, nil
}
