package scraper

import (
	"context"

	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
)

type GetScrapeJobLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetScrapeJobLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetScrapeJobLogic {
	return &GetScrapeJobLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetScrapeJobLogic) GetScrapeJob(req *types.ScrapeJobReq) (resp *types.ScrapeJob, err error) {
	handle, err := l.svcCtx.Scraper.Status(l.ctx, req.Id)
	if err != nil {
		return nil, mapError(err, "Failed to fetch scraping job")
	}
	return toJob(handle), nil
}
