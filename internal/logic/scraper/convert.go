package scraper

import (
	"marketcache-api/internal/types"
	scraperpkg "marketcache-api/pkg/scraper"
)

func toJob(h *scraperpkg.JobHandle) *types.ScrapeJob {
	return &types.ScrapeJob{
		Id:          h.ID,
		TrackingId:  h.TrackingID,
		Url:         h.URL,
		Status:      string(h.Status),
		DatasetId:   h.DatasetID,
		Data:        h.Data,
		CreatedAt:   h.CreatedAt,
		CompletedAt: h.CompletedAt,
	}
}
