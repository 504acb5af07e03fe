package service

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/marketdata"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/metrics"
)

const (
	sourceUpstream = "upstream"
	sourceFallback = "fallback"
)

var (
	validRanges    = map[string]bool{"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true, "1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true}
	validIntervals = map[string]bool{"1m": true, "5m": true, "15m": true, "30m": true, "60m": true, "1h": true, "1d": true, "1wk": true, "1mo": true}
)

// withFallback runs fetch and wraps its result. Any upstream failure is
// replaced by the fallback dataset and flagged; it never becomes an error.
func withFallback[T any](endpoint, key string, fetch func() (T, error), fallback func() T) domain.MarketEnvelope {
	data, err := fetch()
	if err == nil {
		metrics.MarketRequests.WithLabelValues(endpoint, "false").Inc()
		return domain.MarketEnvelope{Data: data, Source: sourceUpstream}
	}

	log.Printf("WARN: market %s for %q failed, serving fallback data: %v", endpoint, key, err)
	metrics.MarketRequests.WithLabelValues(endpoint, "true").Inc()
	return domain.MarketEnvelope{
		Data:     fallback(),
		Fallback: true,
		Source:   sourceFallback,
		Warning:  "live market data is temporarily unavailable; showing fallback data",
	}
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", apperrors.InvalidInput("symbol", "is required")
	}
	if len(symbol) > 15 || strings.ContainsAny(symbol, " /\\?#&") {
		return "", apperrors.InvalidInput("symbol", "is not a valid ticker")
	}
	return symbol, nil
}

// Quote returns the latest quote of symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (domain.MarketEnvelope, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.MarketEnvelope{}, err
	}
	return withFallback("quote", symbol,
		func() (*domain.Quote, error) { return s.market.Quote(ctx, symbol) },
		func() *domain.Quote { return marketdata.FallbackQuote(symbol) },
	), nil
}

// History returns the price series of symbol.
func (s *Service) History(ctx context.Context, symbol, rng, interval string) (domain.MarketEnvelope, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.MarketEnvelope{}, err
	}
	if rng == "" {
		rng = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}
	if !validRanges[rng] {
		return domain.MarketEnvelope{}, apperrors.InvalidInput("range", "is not supported: "+strconv.Quote(rng))
	}
	if !validIntervals[interval] {
		return domain.MarketEnvelope{}, apperrors.InvalidInput("interval", "is not supported: "+strconv.Quote(interval))
	}
	return withFallback("history", symbol,
		func() (*domain.History, error) { return s.market.History(ctx, symbol, rng, interval) },
		func() *domain.History { return marketdata.FallbackHistory(symbol, rng, interval, s.now()) },
	), nil
}

// Profile returns the company profile of symbol.
func (s *Service) Profile(ctx context.Context, symbol string) (domain.MarketEnvelope, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.MarketEnvelope{}, err
	}
	return withFallback("profile", symbol,
		func() (*domain.Profile, error) { return s.market.Profile(ctx, symbol) },
		func() *domain.Profile { return marketdata.FallbackProfile(symbol) },
	), nil
}

// Holders returns the ownership breakdown of symbol.
func (s *Service) Holders(ctx context.Context, symbol string) (domain.MarketEnvelope, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.MarketEnvelope{}, err
	}
	return withFallback("holders", symbol,
		func() (*domain.Holders, error) { return s.market.Holders(ctx, symbol) },
		func() *domain.Holders { return marketdata.FallbackHolders(symbol) },
	), nil
}

// News returns recent headlines about symbol.
func (s *Service) News(ctx context.Context, symbol string) (domain.MarketEnvelope, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return domain.MarketEnvelope{}, err
	}
	return withFallback("news", symbol,
		func() ([]domain.NewsItem, error) { return s.market.News(ctx, symbol) },
		func() []domain.NewsItem { return marketdata.FallbackNews(symbol, s.now()) },
	), nil
}

// Search finds instruments matching query.
func (s *Service) Search(ctx context.Context, query string) (domain.MarketEnvelope, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.MarketEnvelope{}, apperrors.InvalidInput("q", "is required")
	}
	return withFallback("search", query,
		func() ([]domain.SearchResult, error) { return s.market.Search(ctx, query) },
		func() []domain.SearchResult { return marketdata.FallbackSearch(query) },
	), nil
}
