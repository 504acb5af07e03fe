// Package marketdata reads quotes, price history, company profiles, holders,
// search results and news from a Yahoo-Finance-style provider. Every field
// is optional upstream; missing fields stay at their zero value.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/config"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
)

// ErrNoData is returned when the provider answers without usable data.
var ErrNoData = errors.New("no data returned by market data provider")

// Provider defines the market-data lookups used by the service.
type Provider interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
	History(ctx context.Context, symbol, rng, interval string) (*domain.History, error)
	Profile(ctx context.Context, symbol string) (*domain.Profile, error)
	Holders(ctx context.Context, symbol string) (*domain.Holders, error)
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
	News(ctx context.Context, symbol string) ([]domain.NewsItem, error)
}

// Client is an HTTP client for the market data provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Ensure Client implements Provider interface.
var _ Provider = (*Client)(nil)

// NewClient creates a new market data client.
func NewClient(cfg config.MarketDataConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Quote returns the latest quote of symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	res, err := c.get(ctx, "/v7/finance/quote", url.Values{"symbols": {symbol}})
	if err != nil {
		return nil, err
	}
	q := res.Get("quoteResponse.result.0")
	if !q.Exists() {
		return nil, ErrNoData
	}

	return &domain.Quote{
		Symbol:            firstNonEmpty(q.Get("symbol").String(), symbol),
		ShortName:         q.Get("shortName").String(),
		LongName:          q.Get("longName").String(),
		Currency:          q.Get("currency").String(),
		Exchange:          firstNonEmpty(q.Get("fullExchangeName").String(), q.Get("exchange").String()),
		Price:             num(q.Get("regularMarketPrice")),
		Change:            num(q.Get("regularMarketChange")),
		ChangePercent:     num(q.Get("regularMarketChangePercent")),
		PreviousClose:     num(q.Get("regularMarketPreviousClose")),
		Open:              num(q.Get("regularMarketOpen")),
		DayHigh:           num(q.Get("regularMarketDayHigh")),
		DayLow:            num(q.Get("regularMarketDayLow")),
		Volume:            int64(num(q.Get("regularMarketVolume"))),
		MarketCap:         num(q.Get("marketCap")),
		TrailingPE:        num(q.Get("trailingPE")),
		FiftyTwoWeekHigh:  num(q.Get("fiftyTwoWeekHigh")),
		FiftyTwoWeekLow:   num(q.Get("fiftyTwoWeekLow")),
		MarketState:       q.Get("marketState").String(),
		RegularMarketTime: int64(num(q.Get("regularMarketTime"))),
	}, nil
}

// History returns the price series of symbol over rng sampled at interval.
func (c *Client) History(ctx context.Context, symbol, rng, interval string) (*domain.History, error) {
	res, err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), url.Values{"range": {rng}, "interval": {interval}})
	if err != nil {
		return nil, err
	}
	chart := res.Get("chart.result.0")
	if !chart.Exists() {
		return nil, ErrNoData
	}

	timestamps := chart.Get("timestamp").Array()
	quote := chart.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	h := &domain.History{
		Symbol:   symbol,
		Range:    rng,
		Interval: interval,
		Currency: chart.Get("meta.currency").String(),
	}
	for i, ts := range timestamps {
		// Provider rows with a null close are gaps in trading.
		if i >= len(closes) || closes[i].Type == gjson.Null {
			continue
		}
		h.Bars = append(h.Bars, domain.Bar{
			Time:   ts.Int(),
			Open:   at(opens, i),
			High:   at(highs, i),
			Low:    at(lows, i),
			Close:  closes[i].Float(),
			Volume: int64(at(volumes, i)),
		})
	}
	if len(h.Bars) == 0 {
		return nil, ErrNoData
	}
	return h, nil
}

// Profile returns the company profile of symbol.
func (c *Client) Profile(ctx context.Context, symbol string) (*domain.Profile, error) {
	summary, err := c.quoteSummary(ctx, symbol, "assetProfile,price")
	if err != nil {
		return nil, err
	}
	ap := summary.Get("assetProfile")
	if !ap.Exists() {
		return nil, ErrNoData
	}

	p := &domain.Profile{
		Symbol:    symbol,
		Name:      firstNonEmpty(summary.Get("price.longName").String(), summary.Get("price.shortName").String()),
		Sector:    ap.Get("sector").String(),
		Industry:  ap.Get("industry").String(),
		Country:   ap.Get("country").String(),
		Website:   ap.Get("website").String(),
		Employees: int64(num(ap.Get("fullTimeEmployees"))),
		Summary:   ap.Get("longBusinessSummary").String(),
	}
	for _, o := range ap.Get("companyOfficers").Array() {
		if name := o.Get("name").String(); name != "" {
			p.Officers = append(p.Officers, domain.Officer{Name: name, Title: o.Get("title").String()})
		}
	}
	return p, nil
}

// Holders returns the ownership breakdown of symbol.
func (c *Client) Holders(ctx context.Context, symbol string) (*domain.Holders, error) {
	summary, err := c.quoteSummary(ctx, symbol, "majorHoldersBreakdown,institutionOwnership")
	if err != nil {
		return nil, err
	}
	breakdown := summary.Get("majorHoldersBreakdown")
	owners := summary.Get("institutionOwnership.ownershipList").Array()
	if !breakdown.Exists() && len(owners) == 0 {
		return nil, ErrNoData
	}

	h := &domain.Holders{
		Symbol:                  symbol,
		InsidersPercentHeld:     num(breakdown.Get("insidersPercentHeld")),
		InstitutionsPercentHeld: num(breakdown.Get("institutionsPercentHeld")),
		InstitutionsCount:       int64(num(breakdown.Get("institutionsCount"))),
		Institutions:            []domain.Holder{},
	}
	for _, o := range owners {
		h.Institutions = append(h.Institutions, domain.Holder{
			Organization: o.Get("organization").String(),
			PctHeld:      num(o.Get("pctHeld")),
			Position:     int64(num(o.Get("position"))),
			Value:        num(o.Get("value")),
			ReportDate:   str(o.Get("reportDate")),
		})
	}
	return h, nil
}

// Search finds instruments matching query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	res, err := c.get(ctx, "/v1/finance/search", url.Values{"q": {query}, "quotesCount": {"10"}, "newsCount": {"0"}})
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	for _, q := range res.Get("quotes").Array() {
		symbol := q.Get("symbol").String()
		if symbol == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			Symbol:    symbol,
			Name:      firstNonEmpty(q.Get("longname").String(), q.Get("shortname").String()),
			Exchange:  firstNonEmpty(q.Get("exchDisp").String(), q.Get("exchange").String()),
			QuoteType: q.Get("quoteType").String(),
		})
	}
	if len(results) == 0 {
		return nil, ErrNoData
	}
	return results, nil
}

// News returns recent headlines about symbol.
func (c *Client) News(ctx context.Context, symbol string) ([]domain.NewsItem, error) {
	res, err := c.get(ctx, "/v1/finance/search", url.Values{"q": {symbol}, "quotesCount": {"0"}, "newsCount": {"10"}})
	if err != nil {
		return nil, err
	}

	var items []domain.NewsItem
	for _, n := range res.Get("news").Array() {
		title := n.Get("title").String()
		if title == "" {
			continue
		}
		items = append(items, domain.NewsItem{
			UUID:        n.Get("uuid").String(),
			Title:       title,
			Publisher:   n.Get("publisher").String(),
			Link:        n.Get("link").String(),
			PublishedAt: time.Unix(n.Get("providerPublishTime").Int(), 0).UTC(),
		})
	}
	if len(items) == 0 {
		return nil, ErrNoData
	}
	return items, nil
}

func (c *Client) quoteSummary(ctx context.Context, symbol, modules string) (gjson.Result, error) {
	res, err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), url.Values{"modules": {modules}})
	if err != nil {
		return gjson.Result{}, err
	}
	if msg := res.Get("quoteSummary.error.description").String(); msg != "" {
		return gjson.Result{}, fmt.Errorf("market data provider: %s", msg)
	}
	summary := res.Get("quoteSummary.result.0")
	if !summary.Exists() {
		return gjson.Result{}, ErrNoData
	}
	return summary, nil
}

// get performs a rate-limited GET and returns the parsed JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; findash/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read market data response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("market data provider returned status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("market data provider returned invalid JSON")
	}
	return gjson.ParseBytes(body), nil
}

// num reads a number that may be wrapped as {"raw": n, "fmt": "..."}.
func num(r gjson.Result) float64 {
	if r.IsObject() {
		return r.Get("raw").Float()
	}
	return r.Float()
}

// str reads a string that may be wrapped as {"raw": n, "fmt": "..."}.
func str(r gjson.Result) string {
	if r.IsObject() {
		return r.Get("fmt").String()
	}
	return r.String()
}

func at(values []gjson.Result, i int) float64 {
	if i >= len(values) {
		return 0
	}
	return values[i].Float()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
