// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"advisor-platform/internal/tool"
	"advisor-platform/pkg/moneyfmt"
)

// 房贷与市场假设
var (
	mortgageRate       = decimal.NewFromFloat(0.0695) // 30 年期固定利率
	homeAppreciation   = decimal.NewFromFloat(1.04)   // 年化 4% 房价涨幅
	accessibleEquityPc = decimal.NewFromFloat(0.80)   // 可动用净值比例
)

const mortgageTermMonths = 360

// amortizedPayment 标准等额本息月供
func amortizedPayment(principal decimal.Decimal) decimal.Decimal {
	if !principal.IsPositive() {
		return decimal.Zero
	}
	r := mortgageRate.Div(decimal.NewFromInt(12))
	factor := decimal.NewFromInt(1).Add(r).Pow(decimal.NewFromInt(mortgageTermMonths))
	return principal.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1)))
}

// EquityAdvisorTool 房屋净值三方案对比：不动、cash-out 再投资、买出租房。
// 纯本地测算，输入来自查询里解析出的房价与按揭余额。
type EquityAdvisorTool struct{}

// NewEquityAdvisorTool 创建净值测算工具
func NewEquityAdvisorTool() *EquityAdvisorTool { return &EquityAdvisorTool{} }

// Name 实现 tool.Tool
func (t *EquityAdvisorTool) Name() string { return "equity_advisor" }

// Description 实现 tool.Tool
func (t *EquityAdvisorTool) Description() string {
	return "对比房屋净值的三个去向：保持不动、cash-out 再投资、用作出租房首付。"
}

// Schema 实现 tool.Tool
func (t *EquityAdvisorTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "净值测算参数",
		Properties: map[string]tool.SchemaProperty{
			"home_value":       {Type: "number", Description: "房产当前市值（USD）"},
			"mortgage_balance": {Type: "number", Description: "按揭剩余本金（USD），默认 0"},
			"market_return":    {Type: "number", Description: "年化投资回报假设，默认 0.07"},
		},
		Required: []string{"home_value"},
	}
}

// Execute 实现 tool.Tool
func (t *EquityAdvisorTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	homeValue := decimal.NewFromFloat(toFloat(args["home_value"]))
	if !homeValue.IsPositive() {
		return tool.Failure(t.Name(), tool.CodeBadInput,
			"home value is required — e.g. 'my home is worth $450k with $200k left on the mortgage'")
	}
	mortgage := decimal.NewFromFloat(toFloat(args["mortgage_balance"]))
	marketReturn := toFloat(args["market_return"])
	if marketReturn <= 0 {
		marketReturn = 0.07
	}

	equity := homeValue.Sub(mortgage)
	accessible := equity.Mul(accessibleEquityPc)

	if !accessible.IsPositive() {
		return tool.Success(t.Name(), map[string]any{
			"current_value":     homeValue.InexactFloat64(),
			"mortgage_balance":  mortgage.InexactFloat64(),
			"current_equity":    equity.Round(0).InexactFloat64(),
			"accessible_equity": 0,
			"message":           "Insufficient equity for cash-out options",
			"options":           map[string]any{},
		})
	}

	ten := decimal.NewFromInt(10)
	growthTenYr := homeAppreciation.Pow(ten)
	marketGrowth := decimal.NewFromFloat(1 + marketReturn).Pow(ten)

	// 方案 A：不动
	projectedValue := homeValue.Mul(growthTenYr)
	equityA := projectedValue.Sub(mortgage)

	// 方案 B：cash-out 后投入市场
	newBalance := mortgage.Add(accessible)
	paymentIncrease := amortizedPayment(newBalance).Sub(amortizedPayment(mortgage))
	investedB := accessible.Mul(marketGrowth)
	homeEquityB := projectedValue.Sub(newBalance)
	totalB := homeEquityB.Add(investedB)

	// 方案 C：做出租房首付
	rentalPrice := homeValue.Mul(decimal.NewFromFloat(0.9))
	rentalBalance := rentalPrice.Sub(accessible)
	rentalPayment := amortizedPayment(rentalBalance)
	monthlyRent := homeValue.Mul(decimal.NewFromFloat(0.007))
	monthlyCashFlow := monthlyRent.Sub(rentalPayment)
	tenYrCashFlow := monthlyCashFlow.Mul(decimal.NewFromInt(120))

	return tool.Success(t.Name(), map[string]any{
		"current_value":     homeValue.InexactFloat64(),
		"mortgage_balance":  mortgage.InexactFloat64(),
		"current_equity":    equity.Round(0).InexactFloat64(),
		"accessible_equity": accessible.Round(0).InexactFloat64(),
		"options": map[string]any{
			"leave_untouched": map[string]any{
				"label":                 "Option A — Do Nothing",
				"projected_equity_10yr": equityA.Round(0).InexactFloat64(),
				"projected_home_value":  projectedValue.Round(0).InexactFloat64(),
				"upside":                "No risk, no new debt, steady appreciation",
				"downside":              "Equity is illiquid, not generating returns",
			},
			"cash_out_invest": map[string]any{
				"label":                    "Option B — Cash-Out Refi + Invest",
				"cash_extracted":           accessible.Round(0).InexactFloat64(),
				"monthly_payment_increase": paymentIncrease.Round(0).InexactFloat64(),
				"invested_value_10yr":      investedB.Round(0).InexactFloat64(),
				"total_wealth_10yr":        totalB.Round(0).InexactFloat64(),
				"upside":                   "Equity working harder in the market",
				"downside":                 "Higher payment, market risk",
			},
			"rental_property": map[string]any{
				"label":              "Option C — Buy Rental Property",
				"monthly_cash_flow":  monthlyCashFlow.Round(0).InexactFloat64(),
				"ten_year_cash_flow": tenYrCashFlow.Round(0).InexactFloat64(),
				"upside":             "Passive income + appreciation on 2 properties",
				"downside":           "Landlord responsibilities, vacancy risk",
			},
		},
		"recommendation": fmt.Sprintf(
			"Option B generates the most total wealth at %s by year 10 if markets perform well. "+
				"Option C provides %s/mo passive income. Option A is best for simplicity and certainty.",
			moneyfmt.Dollars(totalB.InexactFloat64(), 0),
			moneyfmt.Dollars(monthlyCashFlow.InexactFloat64(), 0)),
		"disclaimer": "These are projections not guarantees. Consult a financial advisor before refinancing.",
		"data_source": fmt.Sprintf(
			"Market assumptions: 4%% home appreciation, %.0f%% investment return, 6.95%% mortgage rate",
			marketReturn*100),
	})
}

// AffordabilityTool 组合购房能力：三档首付预算与可负担房价上限。
type AffordabilityTool struct{}

// NewAffordabilityTool 创建购房能力测算工具
func NewAffordabilityTool() *AffordabilityTool { return &AffordabilityTool{} }

// Name 实现 tool.Tool
func (t *AffordabilityTool) Name() string { return "affordability_check" }

// Description 实现 tool.Tool
func (t *AffordabilityTool) Description() string {
	return "按组合市值测算购房首付能力：全仓/保守/安全三档预算与可负担房价上限。"
}

// Schema 实现 tool.Tool
func (t *AffordabilityTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "购房能力参数",
		Properties: map[string]tool.SchemaProperty{
			"portfolio_value":  {Type: "number", Description: "组合当前市值（USD）"},
			"target_price":     {Type: "number", Description: "目标房价（可选）"},
			"down_payment_pct": {Type: "number", Description: "首付比例，默认 20"},
		},
		Required: []string{"portfolio_value"},
	}
}

// Execute 实现 tool.Tool
func (t *AffordabilityTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	value := toFloat(args["portfolio_value"])
	if value <= 0 {
		return tool.Failure(t.Name(), tool.CodeBadInput, "portfolio value is required")
	}
	downPct := toFloat(args["down_payment_pct"])
	if downPct <= 0 || downPct >= 100 {
		downPct = 20
	}
	targetPrice := toFloat(args["target_price"])

	full := decimal.NewFromFloat(value)
	conservative := full.Mul(decimal.NewFromFloat(0.80)).Round(2)
	safe := full.Mul(decimal.NewFromFloat(0.60)).Round(2)
	downFrac := decimal.NewFromFloat(downPct / 100)
	maxHomePrice := full.Div(downFrac).Round(0)

	payload := map[string]any{
		"portfolio_value": value,
		"down_payment_scenarios": map[string]any{
			"full":         full.Round(2).InexactFloat64(),
			"conservative": conservative.InexactFloat64(),
			"safe":         safe.InexactFloat64(),
		},
		"down_payment_pct": downPct,
		"max_home_price":   maxHomePrice.InexactFloat64(),
		"mortgage_assumptions": map[string]any{
			"rate":             0.0695,
			"term_years":       30,
			"down_payment_pct": downPct,
			"disclaimer":       "Rate is an estimate (6.95% 30yr fixed). Verify with lender.",
		},
	}

	recommendation := fmt.Sprintf(
		"Your %s portfolio could fund a %.0f%% down payment on homes up to %s.",
		moneyfmt.Dollars(value, 0), downPct, moneyfmt.Dollars(maxHomePrice.InexactFloat64(), 0))

	if targetPrice > 0 {
		price := decimal.NewFromFloat(targetPrice)
		requiredDown := price.Mul(downFrac).Round(2)
		principal := price.Sub(requiredDown)
		// 月供含税费保险估算（×1.25）
		piti := amortizedPayment(principal).Mul(decimal.NewFromFloat(1.25)).Round(0)
		canFull := full.GreaterThanOrEqual(requiredDown)
		payload["target"] = map[string]any{
			"price":                    targetPrice,
			"required_down":            requiredDown.InexactFloat64(),
			"can_afford_full":          canFull,
			"can_afford_conservative":  conservative.GreaterThanOrEqual(requiredDown),
			"can_afford_safe":          safe.GreaterThanOrEqual(requiredDown),
			"monthly_payment_estimate": piti.InexactFloat64(),
		}
		if canFull {
			recommendation += fmt.Sprintf(
				" A %s home needs %s down — within reach.",
				moneyfmt.Dollars(targetPrice, 0), moneyfmt.Dollars(requiredDown.InexactFloat64(), 0))
		} else {
			recommendation += fmt.Sprintf(
				" A %s home needs %s down — above your current portfolio value.",
				moneyfmt.Dollars(targetPrice, 0), moneyfmt.Dollars(requiredDown.InexactFloat64(), 0))
		}
	}
	payload["recommendation"] = recommendation

	return tool.Success(t.Name(), payload)
}
