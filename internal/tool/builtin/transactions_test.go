// Copyright 2026 fanjia1024
// Tests for the transaction history query tool

package builtin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersBody = `{"activities":[
	{"id":"a1","type":"BUY","quantity":10,"unitPrice":180.5,"fee":1,"currency":"USD","date":"2025-03-01T00:00:00.000Z","valueInBaseCurrency":1805,"SymbolProfile":{"symbol":"AAPL","name":"Apple Inc."}},
	{"id":"a2","type":"SELL","quantity":5,"unitPrice":200,"fee":1,"currency":"USD","date":"2025-07-15T00:00:00.000Z","valueInBaseCurrency":1000,"SymbolProfile":{"symbol":"AAPL","name":"Apple Inc."}},
	{"id":"a3","type":"BUY","quantity":3,"unitPrice":420,"fee":0,"currency":"USD","date":"2025-05-20T00:00:00.000Z","valueInBaseCurrency":1260,"SymbolProfile":{"symbol":"MSFT","name":"Microsoft"}}
]}`

func ordersServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/order", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, ordersBody)
	}))
}

func TestTransactionQuerySimplifiesAndSortsNewestFirst(t *testing.T) {
	srv := ordersServer(t)
	defer srv.Close()

	tl := NewTransactionQueryTool(srv.URL, time.Second)
	res := tl.Execute(context.Background(), map[string]any{})
	require.True(t, res.Success, "expected success, got %v", res.Error)

	assert.Equal(t, 3, res.Payload["count"])
	assert.NotContains(t, res.Payload, "filter_symbol")

	activities := asMaps(res.Payload["activities"])
	require.Len(t, activities, 3)
	assert.Equal(t, "2025-07-15", activities[0]["date"])
	assert.Equal(t, "2025-05-20", activities[1]["date"])
	assert.Equal(t, "2025-03-01", activities[2]["date"])

	first := activities[0]
	assert.Equal(t, "SELL", first["type"])
	assert.Equal(t, "AAPL", first["symbol"])
	assert.Equal(t, "Apple Inc.", first["name"])
	assert.InDelta(t, 200, toFloat(first["unit_price"]), 0.001)
	assert.Equal(t, "a2", first["id"])
}

func TestTransactionQueryFiltersBySymbol(t *testing.T) {
	srv := ordersServer(t)
	defer srv.Close()

	tl := NewTransactionQueryTool(srv.URL, time.Second)
	res := tl.Execute(context.Background(), map[string]any{"symbol": "msft"})
	require.True(t, res.Success)

	assert.Equal(t, "MSFT", res.Payload["filter_symbol"])
	assert.Equal(t, 1, res.Payload["count"])
	activities := asMaps(res.Payload["activities"])
	require.Len(t, activities, 1)
	assert.Equal(t, "MSFT", activities[0]["symbol"])
}

func TestTransactionQueryTruncatesAfterSorting(t *testing.T) {
	srv := ordersServer(t)
	defer srv.Close()

	tl := NewTransactionQueryTool(srv.URL, time.Second)
	res := tl.Execute(context.Background(), map[string]any{"limit": 2})
	require.True(t, res.Success)

	assert.Equal(t, 2, res.Payload["count"])
	activities := asMaps(res.Payload["activities"])
	require.Len(t, activities, 2)
	// 截断留下的必须是最新两条，不是接口返回顺序的前两条
	assert.Equal(t, "2025-07-15", activities[0]["date"])
	assert.Equal(t, "2025-05-20", activities[1]["date"])
}

func TestTransactionQueryClampsLimit(t *testing.T) {
	srv := ordersServer(t)
	defer srv.Close()

	tl := NewTransactionQueryTool(srv.URL, time.Second)
	res := tl.Execute(context.Background(), map[string]any{"limit": 9999})
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Payload["count"])
}

func TestTransactionQueryErrorPaths(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		res := NewTransactionQueryTool(srv.URL, time.Second).Execute(context.Background(), nil)
		require.False(t, res.Success)
		assert.Equal(t, "API_ERROR", res.Error.Code)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		res := NewTransactionQueryTool(srv.URL, 20*time.Millisecond).Execute(context.Background(), nil)
		require.False(t, res.Success)
		assert.Equal(t, "TIMEOUT", res.Error.Code)
		assert.Contains(t, res.Error.Message, "timed out")
	})
}
