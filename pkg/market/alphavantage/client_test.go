package alphavantage_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"marketcache-api/pkg/market"
	"marketcache-api/pkg/market/alphavantage"
)

const globalQuoteBody = `{
  "Global Quote": {
    "01. symbol": "AAPL",
    "02. open": "189.1000",
    "05. price": "190.1200",
    "06. volume": "53210987",
    "07. latest trading day": "2024-01-05",
    "08. previous close": "188.0000",
    "09. change": "2.1200",
    "10. change percent": "1.1277%"
  }
}`

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	}
}

func TestFetchEquityQuoteWithoutKeySkipsNetwork(t *testing.T) {
	t.Parallel()

	// Arrange: a mock with no expectations fails the test on any call.
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	client := alphavantage.NewClient(alphavantage.WithHTTPClient(httpClient))

	// Act
	quote, err := client.FetchEquityQuote(t.Context(), "aapl")

	// Assert
	require.NoError(t, err)
	require.Equal(t, market.SourceDemo, quote.Source)
	require.Equal(t, "AAPL", quote.Symbol)
	require.NoError(t, quote.Validate())
	require.False(t, client.Configured())
}

func TestFetchEquityQuoteParsesGlobalQuote(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			require.Equal(t, "GLOBAL_QUOTE", q.Get("function"))
			require.Equal(t, "AAPL", q.Get("symbol"))
			require.Equal(t, "test-key", q.Get("apikey"))
			require.Equal(t, "unit-test/1.0", req.Header.Get("User-Agent"))
			require.True(t, strings.HasPrefix(req.URL.String(), "http://av.local/query"))
			return respond(http.StatusOK, globalQuoteBody)(req)
		}).
		Times(1)

	client := alphavantage.NewClient(
		alphavantage.WithAPIKey("test-key"),
		alphavantage.WithBaseURL("http://av.local/query/"),
		alphavantage.WithUserAgent("unit-test/1.0"),
		alphavantage.WithHTTPClient(httpClient),
	)

	// Act
	quote, err := client.FetchEquityQuote(t.Context(), "aapl")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "AAPL", quote.Symbol)
	require.Equal(t, market.SourceAlphaVantage, quote.Source)
	require.InDelta(t, 190.12, quote.Price, 1e-9)
	require.InDelta(t, 2.12, quote.Change, 1e-9)
	require.InDelta(t, 1.1277, quote.ChangePercent, 1e-9)
	require.Equal(t, int64(53210987), quote.Volume)
	require.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), quote.Timestamp)
}

func TestFetchEquityQuoteFallsBackToDemoData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`},
		{name: "quota note", status: http.StatusOK, body: `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`},
		{name: "information message", status: http.StatusOK, body: `{"Information": "The **demo** API key is for demo purposes only."}`},
		{name: "unknown symbol", status: http.StatusOK, body: `{"Global Quote": {}}`},
		{name: "missing price", status: http.StatusOK, body: `{"Global Quote": {"01. symbol": "ZZZZ"}}`},
		{name: "malformed json", status: http.StatusOK, body: `<html>`},
		{name: "server error", status: http.StatusBadGateway, body: `bad gateway`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(respond(tt.status, tt.body)).Times(1)
			client := alphavantage.NewClient(
				alphavantage.WithAPIKey("test-key"),
				alphavantage.WithHTTPClient(httpClient),
			)

			// Act
			quote, err := client.FetchEquityQuote(t.Context(), "ZZZZ")

			// Assert
			require.NoError(t, err)
			require.Equal(t, market.SourceDemo, quote.Source)
			require.Equal(t, "ZZZZ", quote.Symbol)
			require.NoError(t, quote.Validate())
		})
	}
}

func TestFetchEquityQuoteReturnsTransportErrors(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(nil, errors.New("dial tcp: lookup www.alphavantage.co: no such host")).
		Times(1)
	client := alphavantage.NewClient(
		alphavantage.WithAPIKey("test-key"),
		alphavantage.WithHTTPClient(httpClient),
	)

	// Act
	_, err := client.Quote(t.Context(), "MSFT")

	// Assert
	require.Error(t, err)
	require.Contains(t, err.Error(), "no such host")
}

func TestFetchEquityQuoteRejectsEmptySymbol(t *testing.T) {
	t.Parallel()

	client := alphavantage.NewClient(alphavantage.WithAPIKey("test-key"))
	_, err := client.FetchEquityQuote(t.Context(), "   ")
	require.ErrorIs(t, err, market.ErrEmptySymbol)
}

func TestRegistryBuildsAlphaVantageProvider(t *testing.T) {
	t.Setenv("AV_TEST_KEY", "from-env")

	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
equity: av
providers:
  av:
    type: alphavantage
    api_key: ${AV_TEST_KEY}
    timeout: 3s
    rate_per_minute: 5
`))
	require.NoError(t, err)

	providers, err := cfg.BuildProviders()
	require.NoError(t, err)

	equity, crypto := cfg.Select(providers)
	require.Nil(t, crypto)
	require.NotNil(t, equity)
	require.Equal(t, "av", equity.Name())
	require.Equal(t, market.KindEquity, equity.Kind())

	client, ok := equity.(*alphavantage.Client)
	require.True(t, ok)
	require.True(t, client.Configured())
}
