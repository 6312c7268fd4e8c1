// Copyright 2026 fanjia1024
// Tests for market data and market overview tools

package builtin

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-platform/internal/runtime/cache"
)

func TestMarketDataReturnsQuotePayload(t *testing.T) {
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(symbol string) (*Quote, error) {
		return &Quote{
			Symbol: symbol, Name: "Apple Inc.", Price: 272.13, PreviousClose: 270.00,
			ChangePct: 0.79, Currency: "USD", Exchange: "NasdaqGS", InstrumentType: "EQUITY",
		}, nil
	}, nil)

	res := NewMarketDataTool(quotes, "").Execute(context.Background(), map[string]any{"symbol": "aapl"})
	require.True(t, res.Success)
	assert.Equal(t, "AAPL", res.Payload["symbol"])
	assert.InDelta(t, 272.13, toFloat(res.Payload["current_price"]), 0.001)
	assert.InDelta(t, 0.79, toFloat(res.Payload["change_pct"]), 0.001)
	assert.Equal(t, "NasdaqGS", res.Payload["exchange"])
}

func TestMarketDataRequiresSymbol(t *testing.T) {
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(string) (*Quote, error) {
		return nil, fmt.Errorf("should not be called")
	}, nil)

	res := NewMarketDataTool(quotes, "").Execute(context.Background(), map[string]any{})
	require.False(t, res.Success)
	assert.Equal(t, "BAD_INPUT", res.Error.Code)
}

func TestMarketDataFallsBackToDefaultSymbol(t *testing.T) {
	var got string
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(symbol string) (*Quote, error) {
		got = symbol
		return &Quote{Symbol: symbol, Price: 663.42, Currency: "USD"}, nil
	}, nil)

	res := NewMarketDataTool(quotes, "spy").Execute(context.Background(), map[string]any{})
	require.True(t, res.Success)
	assert.Equal(t, "SPY", got)
	assert.Equal(t, "SPY", res.Payload["symbol"])
}

func TestMarketDataUnknownSymbolIsNoData(t *testing.T) {
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(symbol string) (*Quote, error) {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}, nil)

	res := NewMarketDataTool(quotes, "").Execute(context.Background(), map[string]any{"symbol": "FAKESYM"})
	require.False(t, res.Success)
	assert.Equal(t, "NO_DATA", res.Error.Code)
	assert.Contains(t, res.Error.Message, "FAKESYM")
}

func TestMarketOverviewCountsAdvancersAndDecliners(t *testing.T) {
	changes := map[string]float64{"SPY": 0.5, "QQQ": -1.2, "IWM": 0.0}
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(symbol string) (*Quote, error) {
		return &Quote{Symbol: symbol, Price: 100, ChangePct: changes[symbol], Currency: "USD"}, nil
	}, nil)

	tl := NewMarketOverviewTool(quotes, []string{"SPY", "QQQ", "IWM"})
	res := tl.Execute(context.Background(), nil)
	require.True(t, res.Success)

	overview := asMaps(res.Payload["overview"])
	require.Len(t, overview, 3)
	// 顺序跟 ticker 列表一致，与并发完成顺序无关
	assert.Equal(t, "SPY", overview[0]["symbol"])
	assert.Equal(t, "QQQ", overview[1]["symbol"])
	assert.Equal(t, "IWM", overview[2]["symbol"])
	assert.Equal(t, 1, res.Payload["advancers"])
	assert.Equal(t, 1, res.Payload["decliners"])
}

func TestMarketOverviewSkipsFailedTickers(t *testing.T) {
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(symbol string) (*Quote, error) {
		if symbol == "BAD" {
			return nil, fmt.Errorf("no quote data for BAD")
		}
		return &Quote{Symbol: symbol, Price: 100, ChangePct: 1.0}, nil
	}, nil)

	res := NewMarketOverviewTool(quotes, []string{"SPY", "BAD"}).Execute(context.Background(), nil)
	require.True(t, res.Success)
	assert.Len(t, asMaps(res.Payload["overview"]), 1)
}

func TestMarketOverviewAllFailedIsNoData(t *testing.T) {
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(string) (*Quote, error) {
		return nil, fmt.Errorf("feed down")
	}, nil)

	res := NewMarketOverviewTool(quotes, nil).Execute(context.Background(), nil)
	require.False(t, res.Success)
	assert.Equal(t, "NO_DATA", res.Error.Code)
}

func TestQuoteServiceReadsThroughCache(t *testing.T) {
	calls := 0
	quotes := NewQuoteServiceWithFuncs(cache.NewMemory(), time.Minute, func(symbol string) (*Quote, error) {
		calls++
		return &Quote{Symbol: symbol, Price: 100}, nil
	}, nil)

	for i := 0; i < 3; i++ {
		q, err := quotes.Quote(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.InDelta(t, 100, q.Price, 0.001)
	}
	assert.Equal(t, 1, calls, "repeat lookups should come from cache")

	_, err := quotes.Quote(context.Background(), "")
	assert.Error(t, err)
}

func TestQuoteServiceBoundsSlowFetch(t *testing.T) {
	var inflight sync.WaitGroup
	inflight.Add(2)
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(string) (*Quote, error) {
		defer inflight.Done()
		time.Sleep(80 * time.Millisecond)
		return &Quote{Symbol: "SPY", Price: 1}, nil
	}, nil)
	quotes.fetchTimeout = 10 * time.Millisecond

	_, err := quotes.Quote(context.Background(), "SPY")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 工具层要把兜底超时映射成 TIMEOUT 而不是 NO_DATA
	res := NewMarketDataTool(quotes, "").Execute(context.Background(), map[string]any{"symbol": "QQQ"})
	require.False(t, res.Success)
	assert.Equal(t, "TIMEOUT", res.Error.Code)

	inflight.Wait() // 等两次后台取数协程退出
}

func TestQuoteServiceHonorsContextCancel(t *testing.T) {
	released := make(chan struct{})
	quotes := NewQuoteServiceWithFuncs(nil, time.Minute, func(string) (*Quote, error) {
		defer close(released)
		time.Sleep(80 * time.Millisecond)
		return &Quote{Symbol: "SPY", Price: 1}, nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := quotes.Quote(ctx, "SPY")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	<-released
}
