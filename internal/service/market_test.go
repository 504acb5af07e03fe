package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/marketdata"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/apperrors"
	"github.com/CloserlookAI/demo-market-app-sub000/internal/domain"
	"github.com/CloserlookAI/demo-market-app-sub000/tests/helpers"
)

func newMarketService(t *testing.T, market marketdata.Provider) *Service {
	t.Helper()
	return New(helpers.NewTestSQLiteStore(t), nil, nil, market, testConfig(), nil)
}

func TestMarketUpstreamSuccess(t *testing.T) {
	svc := newMarketService(t, &fakeMarket{quote: &domain.Quote{Symbol: "AAPL", Price: 123.45}})

	env, err := svc.Quote(context.Background(), "aapl")
	require.NoError(t, err)
	assert.False(t, env.Fallback)
	assert.Equal(t, "upstream", env.Source)
	assert.Equal(t, 123.45, env.Data.(*domain.Quote).Price)
}

func TestMarketFallbackOnTransportError(t *testing.T) {
	svc := newMarketService(t, &fakeMarket{err: errors.New("dial tcp: connection refused")})
	ctx := context.Background()

	quote, err := svc.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, quote.Fallback)
	assert.Equal(t, "fallback", quote.Source)
	assert.NotEmpty(t, quote.Warning)
	assert.Equal(t, marketdata.FallbackQuote("AAPL"), quote.Data)

	history, err := svc.History(ctx, "AAPL", "", "")
	require.NoError(t, err)
	assert.True(t, history.Fallback)
	assert.NotEmpty(t, history.Data.(*domain.History).Bars)

	for _, call := range []func() (domain.MarketEnvelope, error){
		func() (domain.MarketEnvelope, error) { return svc.Profile(ctx, "MSFT") },
		func() (domain.MarketEnvelope, error) { return svc.Holders(ctx, "MSFT") },
		func() (domain.MarketEnvelope, error) { return svc.News(ctx, "MSFT") },
		func() (domain.MarketEnvelope, error) { return svc.Search(ctx, "micro") },
	} {
		env, err := call()
		require.NoError(t, err)
		assert.True(t, env.Fallback)
		assert.NotNil(t, env.Data)
	}
}

func TestMarketFallbackOnEmptyResult(t *testing.T) {
	svc := newMarketService(t, &fakeMarket{})

	env, err := svc.Profile(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.True(t, env.Fallback)
	assert.Equal(t, "Tesla, Inc.", env.Data.(*domain.Profile).Name)
}

func TestMarketInputValidation(t *testing.T) {
	svc := newMarketService(t, &fakeMarket{})
	ctx := context.Background()

	_, err := svc.Quote(ctx, " ")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
	_, err = svc.Quote(ctx, "AA/PL")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
	_, err = svc.History(ctx, "AAPL", "7y", "1d")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
	_, err = svc.History(ctx, "AAPL", "1y", "2h")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
	_, err = svc.Search(ctx, "")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.Code(err))
}
