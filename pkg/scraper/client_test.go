package scraper

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithToken("apify-token"),
		WithBaseURL(srv.URL),
		WithIDGenerator(func() string { return "track-1" }),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestSubmit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/acts/apify~web-scraper/runs", r.URL.Path)
		assert.Equal(t, "Bearer apify-token", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var input map[string]any
		require.NoError(t, json.Unmarshal(raw, &input))
		assert.Equal(t, []any{map[string]any{"url": "https://example.com/page"}}, input["startUrls"])
		assert.Equal(t, "h1", input["selector"])
		assert.EqualValues(t, 1, input["maxRequestsPerCrawl"])
		assert.Contains(t, input["pageFunction"], "substring(0, 5000)")

		_, _ = w.Write([]byte(`{"data":{"id":"run-42","status":"RUNNING","defaultDatasetId":"ds-7"}}`))
	})

	handle, err := c.Submit(t.Context(), JobRequest{URL: "https://example.com/page", Selector: "h1"})
	require.NoError(t, err)
	assert.Equal(t, &JobHandle{
		ID:         "run-42",
		TrackingID: "track-1",
		URL:        "https://example.com/page",
		Status:     StatusRunning,
		DatasetID:  "ds-7",
		CreatedAt:  fixedNow,
	}, handle)
}

func TestSubmitValidation(t *testing.T) {
	_, err := NewClient().Submit(t.Context(), JobRequest{URL: "https://example.com"})
	require.ErrorIs(t, err, ErrNotConfigured)

	c := NewClient(WithToken("t"))
	_, err = c.Submit(t.Context(), JobRequest{})
	require.ErrorIs(t, err, ErrInvalidJob)
	_, err = c.Submit(t.Context(), JobRequest{URL: "not a url"})
	require.ErrorIs(t, err, ErrInvalidJob)
}

func TestSubmitUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"token-not-valid","message":"Authentication token is not valid."}}`))
	})
	_, err := c.Submit(t.Context(), JobRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication token is not valid.")
}

func TestStatusSucceededLoadsDataset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/actor-runs/run-42":
			_, _ = w.Write([]byte(`{"data":{"id":"run-42","status":"SUCCEEDED","defaultDatasetId":"ds-7",
				"startedAt":"2024-06-03T14:00:00.000Z","finishedAt":"2024-06-03T14:01:30.000Z"}}`))
		case "/datasets/ds-7/items":
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			_, _ = w.Write([]byte(`[{"url":"https://example.com","title":"Example"}]`))
		default:
			http.NotFound(w, r)
		}
	})

	handle, err := c.Status(t.Context(), "run-42")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, handle.Status)
	assert.Equal(t, time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC), handle.CreatedAt)
	require.NotNil(t, handle.CompletedAt)
	assert.Equal(t, time.Date(2024, 6, 3, 14, 1, 30, 0, time.UTC), *handle.CompletedAt)
	assert.JSONEq(t, `[{"url":"https://example.com","title":"Example"}]`, string(handle.Data))
}

func TestStatusMapping(t *testing.T) {
	for remote, want := range map[string]Status{
		"READY": StatusPending, "RUNNING": StatusRunning, "SUCCEEDED": StatusCompleted,
		"FAILED": StatusFailed, "TIMED-OUT": StatusFailed, "ABORTED": StatusFailed,
	} {
		assert.Equal(t, want, mapStatus(remote), remote)
	}

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"run-1","status":"RUNNING"}}`))
	})
	handle, err := c.Status(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, handle.Status)
	assert.Nil(t, handle.CompletedAt)
	assert.Nil(t, handle.Data)
}
