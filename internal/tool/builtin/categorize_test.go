// Copyright 2026 fanjia1024
// Tests for the transaction pattern categorizer

package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeWithFee(atype, symbol string, qty, price, fee float64) map[string]any {
	return map[string]any{
		"type": atype, "symbol": symbol,
		"quantity": qty, "unit_price": price, "fee": fee,
	}
}

func TestCategorizeSummarizesByTypeAndSymbol(t *testing.T) {
	activities := []map[string]any{
		tradeWithFee("BUY", "AAPL", 10, 100, 1),
		tradeWithFee("BUY", "AAPL", 5, 120, 1),
		tradeWithFee("BUY", "MSFT", 2, 400, 0),
		tradeWithFee("SELL", "MSFT", 1, 420, 1),
		tradeWithFee("DIVIDEND", "KO", 1, 48.6, 0),
	}

	res := NewCategorizeTool().Execute(context.Background(), map[string]any{"activities": activities})
	require.True(t, res.Success)

	summary := res.Payload["summary"].(map[string]any)
	assert.Equal(t, 5, summary["total_transactions"])
	assert.Equal(t, 3, summary["buy_count"])
	assert.Equal(t, 1, summary["sell_count"])
	assert.Equal(t, 1, summary["dividend_count"])
	// 只累计买入：10×100 + 5×120 + 2×400 = 2400
	assert.InDelta(t, 2400.0, toFloat(summary["total_invested_usd"]), 0.001)
	assert.InDelta(t, 3.0, toFloat(summary["total_fees_usd"]), 0.001)

	bySymbol := res.Payload["by_symbol"].(map[string]any)
	aapl := bySymbol["AAPL"].(map[string]any)
	assert.Equal(t, 2, aapl["buy_count"])
	assert.InDelta(t, 1600.0, toFloat(aapl["total_invested"]), 0.001)

	mostTraded := asMaps(res.Payload["most_traded"])
	require.NotEmpty(t, mostTraded)
	assert.Equal(t, "AAPL", mostTraded[0]["symbol"], "most bought symbol first")
}

func TestCategorizePatternFlags(t *testing.T) {
	t.Run("buy and hold with dividends", func(t *testing.T) {
		activities := []map[string]any{
			tradeWithFee("BUY", "VOO", 10, 400, 0),
			tradeWithFee("DIVIDEND", "VOO", 1, 15, 0),
		}
		res := NewCategorizeTool().Execute(context.Background(), map[string]any{"activities": activities})
		require.True(t, res.Success)

		patterns := res.Payload["patterns"].(map[string]any)
		assert.Equal(t, true, patterns["is_buy_and_hold"])
		assert.Equal(t, true, patterns["has_dividends"])
		assert.Equal(t, false, patterns["high_fee_ratio"])
	})

	t.Run("high fee ratio", func(t *testing.T) {
		activities := []map[string]any{
			tradeWithFee("BUY", "PENNY", 100, 1, 5), // 手续费 5%
		}
		res := NewCategorizeTool().Execute(context.Background(), map[string]any{"activities": activities})
		require.True(t, res.Success)

		patterns := res.Payload["patterns"].(map[string]any)
		assert.Equal(t, true, patterns["high_fee_ratio"])
	})
}

func TestCategorizeEmptyHistory(t *testing.T) {
	res := NewCategorizeTool().Execute(context.Background(), map[string]any{"activities": []any{}})
	require.True(t, res.Success)

	summary := res.Payload["summary"].(map[string]any)
	assert.Equal(t, 0, summary["total_transactions"])
	patterns := res.Payload["patterns"].(map[string]any)
	assert.Equal(t, true, patterns["is_buy_and_hold"])
}
