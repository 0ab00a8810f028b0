package marketdata

import (
	"context"

	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
)

type GetNewsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetNewsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetNewsLogic {
	return &GetNewsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetNewsLogic) GetNews(req *types.NewsReq) (resp *types.NewsResp, err error) {
	articles := l.svcCtx.News.Headlines(l.ctx, req.Q, req.Limit)

	resp = &types.NewsResp{Articles: make([]types.Article, 0, len(articles))}
	for _, a := range articles {
		resp.Articles = append(resp.Articles, types.Article{
			Title:       a.Title,
			Description: a.Description,
			Url:         a.URL,
			PublishedAt: a.PublishedAt,
			Source:      a.Source,
		})
	}
	return resp, nil
}
