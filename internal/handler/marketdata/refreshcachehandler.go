package marketdata

import (
	"net/http"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/logic/marketdata"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"

	"github.com/zeromicro/go-zero/rest/httpx"
)

func RefreshCacheHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RefreshCacheReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, errorx.BadRequest("symbols array is required"))
			return
		}

		l := marketdata.NewRefreshCacheLogic(r.Context(), svcCtx)
		resp, err := l.RefreshCache(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
