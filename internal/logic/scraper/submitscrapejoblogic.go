package scraper

import (
	"context"
	"errors"
	"net/url"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"
	scraperpkg "marketcache-api/pkg/scraper"

	"github.com/zeromicro/go-zero/core/logx"
)

type SubmitScrapeJobLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSubmitScrapeJobLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SubmitScrapeJobLogic {
	return &SubmitScrapeJobLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SubmitScrapeJobLogic) SubmitScrapeJob(req *types.SubmitScrapeJobReq) (resp *types.ScrapeJob, err error) {
	if u, perr := url.Parse(req.Url); perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errorx.BadRequest("url must be an absolute http(s) URL")
	}

	handle, err := l.svcCtx.Scraper.Submit(l.ctx, scraperpkg.JobRequest{
		URL:      req.Url,
		Selector: req.Selector,
		Actor:    req.ActorId,
	})
	if err != nil {
		return nil, mapError(err, "Failed to submit scraping job")
	}
	l.Infof("scraping job %s submitted for %s", handle.ID, req.Url)
	return toJob(handle), nil
}

func mapError(err error, msg string) error {
	switch {
	case errors.Is(err, scraperpkg.ErrNotConfigured):
		return errorx.Unavailable("scraping service is not configured")
	case errors.Is(err, scraperpkg.ErrInvalidJob):
		return errorx.BadRequest(err.Error())
	default:
		return errorx.Internal(msg, err)
	}
}
