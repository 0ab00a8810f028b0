package marketdata

import (
	"context"
	"errors"
	"fmt"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"
	"marketcache-api/pkg/market/reconcile"

	"github.com/zeromicro/go-zero/core/logx"
)

type RefreshCacheLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewRefreshCacheLogic(ctx context.Context, svcCtx *svc.ServiceContext) *RefreshCacheLogic {
	return &RefreshCacheLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *RefreshCacheLogic) RefreshCache(req *types.RefreshCacheReq) (resp *types.RefreshCacheResp, err error) {
	if req.Symbols == nil {
		return nil, errorx.BadRequest("symbols array is required")
	}
	if ceiling := l.svcCtx.Reconciler.RefreshCeiling(); len(req.Symbols) > ceiling {
		return nil, errorx.BadRequest(fmt.Sprintf("Maximum %d symbols allowed per refresh", ceiling))
	}

	quotes, err := l.svcCtx.Reconciler.RefreshQuotes(l.ctx, req.Symbols)
	switch {
	case errors.Is(err, reconcile.ErrValidation):
		return nil, errorx.BadRequest(err.Error())
	case err != nil:
		return nil, errorx.Internal("Failed to refresh cache", err)
	}

	l.Infof("refreshed %d quotes", len(quotes))
	return &types.RefreshCacheResp{
		Success: true,
		Updated: len(quotes),
		Data:    toQuotes(quotes),
	}, nil
}
