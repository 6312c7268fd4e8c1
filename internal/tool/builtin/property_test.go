// Copyright 2026 fanjia1024
// Tests for home equity and affordability calculators

package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquityAdvisorProjectsThreeOptions(t *testing.T) {
	res := NewEquityAdvisorTool().Execute(context.Background(), map[string]any{
		"home_value":       500000.0,
		"mortgage_balance": 200000.0,
	})
	require.True(t, res.Success)

	assert.InDelta(t, 300000, toFloat(res.Payload["current_equity"]), 0.5)
	assert.InDelta(t, 240000, toFloat(res.Payload["accessible_equity"]), 0.5)

	options := res.Payload["options"].(map[string]any)

	// 4% 年化涨幅：500000×1.04^10 ≈ 740122
	a := options["leave_untouched"].(map[string]any)
	assert.InDelta(t, 740122, toFloat(a["projected_home_value"]), 1)
	assert.InDelta(t, 540122, toFloat(a["projected_equity_10yr"]), 1)

	// 提取 240000 投入市场（7% 年化）≈ 472116，叠加剩余房产净值 ≈ 772238
	b := options["cash_out_invest"].(map[string]any)
	assert.InDelta(t, 240000, toFloat(b["cash_extracted"]), 0.5)
	assert.InDelta(t, 1589, toFloat(b["monthly_payment_increase"]), 1)
	assert.InDelta(t, 472116, toFloat(b["invested_value_10yr"]), 1)
	assert.InDelta(t, 772238, toFloat(b["total_wealth_10yr"]), 1)

	// 出租方案：月租 0.7% × 500000 = 3500，扣月供后现金流 ≈ 2110
	c := options["rental_property"].(map[string]any)
	assert.InDelta(t, 2110, toFloat(c["monthly_cash_flow"]), 1)
	assert.InDelta(t, 253189, toFloat(c["ten_year_cash_flow"]), 2)

	assert.Contains(t, res.Payload["recommendation"], "Option B generates the most total wealth at $772,238")
	assert.Contains(t, res.Payload["recommendation"], "$2,110/mo passive income")
	assert.Contains(t, res.Payload["disclaimer"], "not guarantees")
	assert.Contains(t, res.Payload["data_source"], "7% investment return")
}

func TestEquityAdvisorInsufficientEquity(t *testing.T) {
	res := NewEquityAdvisorTool().Execute(context.Background(), map[string]any{
		"home_value":       300000.0,
		"mortgage_balance": 320000.0,
	})
	require.True(t, res.Success)

	assert.Equal(t, "Insufficient equity for cash-out options", res.Payload["message"])
	assert.Empty(t, res.Payload["options"])
	assert.InDelta(t, -20000, toFloat(res.Payload["current_equity"]), 0.5)
}

func TestEquityAdvisorRequiresHomeValue(t *testing.T) {
	res := NewEquityAdvisorTool().Execute(context.Background(), map[string]any{})
	require.False(t, res.Success)
	assert.Equal(t, "BAD_INPUT", res.Error.Code)
}

func TestAffordabilityScenariosAndMaxPrice(t *testing.T) {
	res := NewAffordabilityTool().Execute(context.Background(), map[string]any{
		"portfolio_value": 250000.0,
	})
	require.True(t, res.Success)

	scenarios := res.Payload["down_payment_scenarios"].(map[string]any)
	assert.InDelta(t, 250000, toFloat(scenarios["full"]), 0.001)
	assert.InDelta(t, 200000, toFloat(scenarios["conservative"]), 0.001)
	assert.InDelta(t, 150000, toFloat(scenarios["safe"]), 0.001)
	assert.InDelta(t, 1250000, toFloat(res.Payload["max_home_price"]), 0.5)

	assumptions := res.Payload["mortgage_assumptions"].(map[string]any)
	assert.InDelta(t, 0.0695, toFloat(assumptions["rate"]), 0.0001)
	assert.Contains(t, assumptions["disclaimer"], "Verify with lender")

	assert.Contains(t, res.Payload["recommendation"],
		"Your $250,000 portfolio could fund a 20% down payment on homes up to $1,250,000.")
}

func TestAffordabilityTargetPrice(t *testing.T) {
	res := NewAffordabilityTool().Execute(context.Background(), map[string]any{
		"portfolio_value": 250000.0,
		"target_price":    400000.0,
	})
	require.True(t, res.Success)

	target := res.Payload["target"].(map[string]any)
	assert.InDelta(t, 80000, toFloat(target["required_down"]), 0.001)
	assert.Equal(t, true, target["can_afford_full"])
	assert.Equal(t, true, target["can_afford_conservative"])
	assert.Equal(t, true, target["can_afford_safe"])
	// 月供估算含税费保险：amortize(320000) × 1.25 ≈ 2648
	assert.InDelta(t, 2648, toFloat(target["monthly_payment_estimate"]), 1)
	assert.Contains(t, res.Payload["recommendation"], "within reach")
}

func TestAffordabilityTargetOutOfReach(t *testing.T) {
	res := NewAffordabilityTool().Execute(context.Background(), map[string]any{
		"portfolio_value": 50000.0,
		"target_price":    2000000.0,
	})
	require.True(t, res.Success)

	target := res.Payload["target"].(map[string]any)
	assert.Equal(t, false, target["can_afford_full"])
	assert.Contains(t, res.Payload["recommendation"], "above your current portfolio value")
}

func TestAffordabilityRequiresPortfolioValue(t *testing.T) {
	res := NewAffordabilityTool().Execute(context.Background(), map[string]any{})
	require.False(t, res.Success)
	assert.Equal(t, "BAD_INPUT", res.Error.Code)
}
