package marketdata

import (
	"net/http"
	"strings"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/logic/marketdata"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"
)

const contentTypeMsgpack = "application/msgpack"

func GetCachedQuotesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CachedQuotesReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, errorx.BadRequest(err.Error()))
			return
		}

		l := marketdata.NewGetCachedQuotesLogic(r.Context(), svcCtx)
		resp, err := l.GetCachedQuotes(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		if wantsMsgpack(r) {
			writeMsgpack(w, r, resp)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}

func wantsMsgpack(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack)
}

func writeMsgpack(w http.ResponseWriter, r *http.Request, v any) {
	body, err := msgpack.Marshal(v)
	if err != nil {
		httpx.ErrorCtx(r.Context(), w, errorx.Internal("Failed to fetch market data", err))
		return
	}
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logx.WithContext(r.Context()).Errorf("write msgpack response: %v", err)
	}
}
