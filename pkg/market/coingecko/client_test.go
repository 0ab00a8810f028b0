package coingecko

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketcache-api/pkg/market"
)

func newTestServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_vol"))
		assert.Equal(t, "cg-key", r.Header.Get(DemoKeyHeader))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCryptoQuote(t *testing.T) {
	var calls atomic.Int32
	var gotIDs atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotIDs.Store(r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":67123.45,"usd_24h_vol":28123456789.9,"usd_24h_change":-1.25}}`))
	}))
	defer srv.Close()

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	client := NewClient(WithAPIKey("cg-key"), WithBaseURL(srv.URL), WithClock(func() time.Time { return fixed }))

	quote, err := client.FetchCryptoQuote(t.Context(), "btc")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "bitcoin", gotIDs.Load())
	assert.Equal(t, "BTC", quote.Symbol)
	assert.Equal(t, market.SourceCoinGecko, quote.Source)
	assert.InDelta(t, 67123.45, quote.Price, 1e-9)
	assert.InDelta(t, -1.25, quote.Change, 1e-9)
	assert.InDelta(t, -1.25, quote.ChangePercent, 1e-9)
	assert.Equal(t, int64(28123456789), quote.Volume)
	assert.Equal(t, fixed, quote.Timestamp)
}

func TestFetchCryptoQuoteSendsKeyHeader(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, http.StatusOK, `{"solana":{"usd":101.5,"usd_24h_vol":1000,"usd_24h_change":3.2}}`, &calls)

	client := NewClient(WithAPIKey("cg-key"), WithBaseURL(srv.URL+"/"))
	quote, err := client.Quote(t.Context(), "SOL")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "SOL", quote.Symbol)
	assert.Equal(t, market.SourceCoinGecko, quote.Source)
}

func TestFetchCryptoQuoteWithoutKeyUsesDemoData(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, http.StatusOK, `{}`, &calls)

	client := NewClient(WithBaseURL(srv.URL))
	quote, err := client.FetchCryptoQuote(t.Context(), "eth")
	require.NoError(t, err)
	assert.Zero(t, calls.Load(), "no request may be issued without a key")
	assert.Equal(t, market.SourceDemo, quote.Source)
	assert.Equal(t, "ETH", quote.Symbol)
	assert.False(t, client.Configured())
}

func TestFetchCryptoQuoteFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"status":{"error_code":429}}`},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "unknown coin", status: http.StatusOK, body: `{}`},
		{name: "missing usd", status: http.StatusOK, body: `{"dogecoin":{"eur":0.1}}`},
		{name: "malformed", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newTestServer(t, tt.status, tt.body, &calls)
			client := NewClient(WithAPIKey("cg-key"), WithBaseURL(srv.URL))

			quote, err := client.FetchCryptoQuote(t.Context(), "DOGE")
			require.NoError(t, err)
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, market.SourceDemo, quote.Source)
			assert.Equal(t, "DOGE", quote.Symbol)
			assert.NoError(t, quote.Validate())
		})
	}
}

func TestFetchCryptoQuoteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(WithAPIKey("cg-key"), WithBaseURL(url))
	_, err := client.FetchCryptoQuote(t.Context(), "BTC")
	require.Error(t, err)
}

func TestParsePriceMatchesIDLiterally(t *testing.T) {
	body := []byte(`{"avalanche-2":{"usd":38.5,"usd_24h_change":0.5,"usd_24h_vol":12.7}}`)
	quote, err := parsePrice(body, "avalanche-2", "AVAX", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, "AVAX", quote.Symbol)
	assert.InDelta(t, 38.5, quote.Price, 1e-9)
	assert.Equal(t, int64(12), quote.Volume)

	_, err = parsePrice(body, "avalanche-*", "AVAX", time.Unix(0, 0))
	assert.ErrorIs(t, err, ErrNoData)
}
