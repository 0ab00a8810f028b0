package marketdata

import (
	"net/http"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/logic/marketdata"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"

	"github.com/zeromicro/go-zero/rest/httpx"
)

func GetNewsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.NewsReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, errorx.BadRequest(err.Error()))
			return
		}

		l := marketdata.NewGetNewsLogic(r.Context(), svcCtx)
		resp, err := l.GetNews(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
