package prediction

import (
	"net/http"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/logic/prediction"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"

	"github.com/zeromicro/go-zero/rest/httpx"
)

func ListPredictionsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ListPredictionsReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, errorx.BadRequest(err.Error()))
			return
		}

		l := prediction.NewListPredictionsLogic(r.Context(), svcCtx)
		resp, err := l.ListPredictions(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
