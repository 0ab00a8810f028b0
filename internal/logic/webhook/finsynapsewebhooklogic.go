package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"marketcache-api/internal/errorx"
	"marketcache-api/internal/logic/prediction"
	"marketcache-api/internal/svc"
	"marketcache-api/internal/types"
	webhookpkg "marketcache-api/pkg/webhook"

	"github.com/zeromicro/go-zero/core/logx"
)

type FinsynapseWebhookLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewFinsynapseWebhookLogic(ctx context.Context, svcCtx *svc.ServiceContext) *FinsynapseWebhookLogic {
	return &FinsynapseWebhookLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// FinsynapseWebhook authenticates body against signature and runs a
// prediction for the event's asset when one is named.
func (l *FinsynapseWebhookLogic) FinsynapseWebhook(body []byte, signature string) (resp *types.WebhookResp, err error) {
	if err := webhookpkg.Verify(l.svcCtx.Config.Webhook.Secret, body, signature); err != nil {
		if errors.Is(err, webhookpkg.ErrNoSecret) {
			l.Error("webhook secret is not configured, rejecting delivery")
		}
		return nil, errorx.Unauthorized("Invalid signature")
	}

	var event types.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errorx.BadRequest("invalid webhook payload")
	}
	resp = &types.WebhookResp{Received: true}
	if strings.TrimSpace(event.Asset) == "" {
		return resp, nil
	}
	if l.svcCtx.Predictor == nil {
		l.Infof("webhook %q for %s accepted without prediction: no model configured", event.Event, event.Asset)
		return resp, nil
	}

	pred, err := prediction.NewGeneratePredictionLogic(l.ctx, l.svcCtx).GeneratePrediction(&types.GeneratePredictionReq{
		Asset:      event.Asset,
		BotContext: event.BotContext,
		MarketData: event.MarketData,
	})
	if err != nil {
		return nil, err
	}
	resp.Prediction = pred
	return resp, nil
}
