package marketdata

import (
	"context"
	"strings"
	"time"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
)

type GetCachedQuotesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetCachedQuotesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetCachedQuotesLogic {
	return &GetCachedQuotesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// maxAgeLimit caps ?maxAge (seconds) well below time.Duration overflow.
const maxAgeLimit int64 = 365 * 24 * 60 * 60

// GetCachedQuotes serves ?symbols=A,B,C&maxAge=N. A missing or non-positive
// maxAge falls back to the service default.
func (l *GetCachedQuotesLogic) GetCachedQuotes(req *types.CachedQuotesReq) (resp []types.Quote, err error) {
	var symbols []string
	if strings.TrimSpace(req.Symbols) != "" {
		symbols = strings.Split(req.Symbols, ",")
	}
	maxAge := l.svcCtx.Reconciler.DefaultMaxAge()
	if req.MaxAge > 0 {
		maxAge = time.Duration(min(req.MaxAge, maxAgeLimit)) * time.Second
	}

	quotes, err := l.svcCtx.Reconciler.GetQuotes(l.ctx, symbols, maxAge)
	if err != nil {
		return nil, errorx.Internal("Failed to fetch market data", err)
	}
	return toQuotes(quotes), nil
}
