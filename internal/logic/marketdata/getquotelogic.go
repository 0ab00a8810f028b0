package marketdata

import (
	"context"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"
	"marketcache-api/pkg/market"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	quoteTypeStock  = "stock"
	quoteTypeCrypto = "crypto"
	quoteTypeAuto   = "auto"
)

type GetQuoteLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetQuoteLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetQuoteLogic {
	return &GetQuoteLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// GetQuote returns one live (or in-process cached) quote. In auto mode the
// symbol router picks the adapter, and a synthetic equity result is retried
// against the crypto adapter.
func (l *GetQuoteLogic) GetQuote(req *types.QuoteReq) (resp *types.Quote, err error) {
	symbol := market.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, errorx.BadRequest("symbol is required")
	}

	var q market.Quote
	switch req.Type {
	case quoteTypeStock:
		q = l.svcCtx.Fetcher.FetchKind(l.ctx, market.KindEquity, symbol)
	case quoteTypeCrypto:
		q = l.svcCtx.Fetcher.FetchKind(l.ctx, market.KindCrypto, symbol)
	case quoteTypeAuto, "":
		q = l.svcCtx.Fetcher.FetchOne(l.ctx, symbol)
		if q.IsSynthetic() && market.KindOf(symbol) == market.KindEquity {
			if alt := l.svcCtx.Fetcher.FetchKind(l.ctx, market.KindCrypto, symbol); !alt.IsSynthetic() {
				q = alt
			}
		}
	default:
		return nil, errorx.BadRequest("type must be one of stock, crypto, auto")
	}

	out := toQuote(q)
	return &out, nil
}
