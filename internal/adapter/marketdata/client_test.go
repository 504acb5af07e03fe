package marketdata

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(config.MarketDataConfig{BaseURL: server.URL, Timeout: time.Second, RequestsPerSec: 1000, Burst: 10})
}

func TestQuoteMapsFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		_, _ = io.WriteString(w, `{"quoteResponse":{"result":[{
			"symbol":"AAPL","shortName":"Apple","regularMarketPrice":190.5,
			"regularMarketChange":{"raw":1.5,"fmt":"1.50"},"regularMarketVolume":1000,
			"marketCap":3000000000000,"fullExchangeName":"NasdaqGS"
		}]}}`)
	})

	q, err := client.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 190.5, q.Price)
	assert.Equal(t, 1.5, q.Change)
	assert.Equal(t, int64(1000), q.Volume)
	assert.Equal(t, "NasdaqGS", q.Exchange)
	assert.Zero(t, q.TrailingPE)
}

func TestQuoteEmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"quoteResponse":{"result":[]}}`)
	})

	_, err := client.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestHistorySkipsGaps(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1mo", r.URL.Query().Get("range"))
		_, _ = io.WriteString(w, `{"chart":{"result":[{
			"meta":{"currency":"USD"},
			"timestamp":[1,2,3],
			"indicators":{"quote":[{"open":[1,2,3],"high":[2,3,4],"low":[0.5,1,2],"close":[1.5,null,3.5],"volume":[10,20,30]}]}
		}]}}`)
	})

	h, err := client.History(context.Background(), "AAPL", "1mo", "1d")
	require.NoError(t, err)
	assert.Equal(t, "USD", h.Currency)
	require.Len(t, h.Bars, 2)
	assert.Equal(t, int64(3), h.Bars[1].Time)
	assert.Equal(t, 3.5, h.Bars[1].Close)
	assert.Equal(t, int64(30), h.Bars[1].Volume)
}

func TestProfileAndHolders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("modules") {
		case "assetProfile,price":
			_, _ = io.WriteString(w, `{"quoteSummary":{"result":[{
				"assetProfile":{"sector":"Technology","fullTimeEmployees":100,"companyOfficers":[{"name":"A","title":"CEO"},{"title":"anonymous"}]},
				"price":{"longName":"Apple Inc."}
			}]}}`)
		default:
			_, _ = io.WriteString(w, `{"quoteSummary":{"result":[{
				"majorHoldersBreakdown":{"insidersPercentHeld":{"raw":0.01,"fmt":"1%"},"institutionsCount":{"raw":5}},
				"institutionOwnership":{"ownershipList":[{"organization":"Vanguard","pctHeld":{"raw":0.08},"reportDate":{"raw":1,"fmt":"2024-03-31"}}]}
			}]}}`)
		}
	})

	p, err := client.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", p.Name)
	assert.Equal(t, int64(100), p.Employees)
	require.Len(t, p.Officers, 1)

	h, err := client.Holders(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0.01, h.InsidersPercentHeld)
	assert.Equal(t, int64(5), h.InstitutionsCount)
	require.Len(t, h.Institutions, 1)
	assert.Equal(t, "2024-03-31", h.Institutions[0].ReportDate)
}

func TestQuoteSummaryError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for ticker symbol: XX"}}}`)
	})

	_, err := client.Profile(context.Background(), "XX")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Quote not found")
}

func TestSearchAndNews(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"quotes":[{"symbol":"AAPL","longname":"Apple Inc.","exchDisp":"NASDAQ","quoteType":"EQUITY"},{"shortname":"no symbol"}],
			"news":[{"uuid":"n1","title":"Apple ships","publisher":"Wire","providerPublishTime":1700000000},{"uuid":"n2"}]
		}`)
	})

	results, err := client.Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "NASDAQ", results[0].Exchange)

	news, err := client.News(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), news[0].PublishedAt)
}

func TestUpstreamErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v7/finance/quote" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `<html>`)
	})

	_, err := client.Quote(context.Background(), "AAPL")
	assert.Error(t, err)
	_, err = client.Search(context.Background(), "x")
	assert.Error(t, err)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	client := NewClient(config.MarketDataConfig{BaseURL: "http://127.0.0.1:1", RequestsPerSec: 0.001, Burst: 1})
	client.limiter.Allow() // drain the only token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Quote(ctx, "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
