package webhook

import (
	"io"
	"net/http"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/logic/webhook"
	"marketcache-api/internal/svc"
	webhookpkg "marketcache-api/pkg/webhook"

	"github.com/zeromicro/go-zero/rest/httpx"
)

const maxWebhookBody = 1 << 20

// FinsynapseWebhookHandler reads the raw body since the signature covers the
// exact bytes sent.
func FinsynapseWebhookHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, errorx.BadRequest("unreadable webhook body"))
			return
		}

		l := webhook.NewFinsynapseWebhookLogic(r.Context(), svcCtx)
		resp, err := l.FinsynapseWebhook(body, r.Header.Get(webhookpkg.SignatureHeader))
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
