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
	"time"

	"github.com/shopspring/decimal"

	"advisor-platform/internal/tool"
)

// 资本利得估算参数
var (
	shortTermRate = decimal.NewFromFloat(0.22)
	longTermRate  = decimal.NewFromFloat(0.15)
)

const (
	longTermHoldingDays = 365 // 持有满一年按长期税率
	washSaleWindowDays  = 30  // 亏损卖出前后 30 天内回购触发 wash sale
)

// TaxEstimateTool 从卖出记录估算资本利得税，纯本地计算。
// 短期（持有 <365 天）按 22%，长期按 15%；检测潜在 wash sale。
// 输出永远带"仅为估算"免责声明。
type TaxEstimateTool struct{}

// NewTaxEstimateTool 创建税务估算工具
func NewTaxEstimateTool() *TaxEstimateTool { return &TaxEstimateTool{} }

// Name 实现 tool.Tool
func (t *TaxEstimateTool) Name() string { return "tax_estimate" }

// Description 实现 tool.Tool
func (t *TaxEstimateTool) Description() string {
	return "从卖出记录估算资本利得税（短期 22% / 长期 15%），检测潜在 wash sale。"
}

// Schema 实现 tool.Tool
func (t *TaxEstimateTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "税务估算参数",
		Properties: map[string]tool.SchemaProperty{
			"activities": {Type: "array", Description: "transaction_query 返回的活动列表"},
		},
		Required: []string{"activities"},
	}
}

// Execute 实现 tool.Tool
func (t *TaxEstimateTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	activities := asMaps(args["activities"])
	today := time.Now().UTC()

	var sells, buys []map[string]any
	for _, a := range activities {
		switch toString(a["type"]) {
		case "SELL":
			sells = append(sells, a)
		case "BUY":
			buys = append(buys, a)
		}
	}

	shortGains := decimal.Zero
	longGains := decimal.Zero
	washWarnings := make([]map[string]any, 0)
	breakdown := make([]map[string]any, 0, len(sells))

	for _, sell := range sells {
		symbol := toString(sell["symbol"])
		if symbol == "" {
			symbol = "UNKNOWN"
		}
		sellDate := parseActivityDate(toString(sell["date"]), today)
		sellPrice := decimal.NewFromFloat(toFloat(sell["unit_price"]))
		quantity := decimal.NewFromFloat(toFloat(sell["quantity"]))

		// 成本价取同代码的首笔买入，没有就按卖价（零收益）
		costBasis := sellPrice
		buyDate := sellDate
		for _, b := range buys {
			if toString(b["symbol"]) == symbol {
				costBasis = decimal.NewFromFloat(toFloat(b["unit_price"]))
				buyDate = parseActivityDate(toString(b["date"]), today)
				break
			}
		}

		gain := sellPrice.Sub(costBasis).Mul(quantity)
		holdingDays := int(sellDate.Sub(buyDate).Hours() / 24)
		if holdingDays < 0 {
			holdingDays = 0
		}

		term := "short-term"
		if holdingDays >= longTermHoldingDays {
			term = "long-term"
			longGains = longGains.Add(gain)
		} else {
			shortGains = shortGains.Add(gain)
		}

		if gain.IsNegative() {
			for _, b := range buys {
				if toString(b["symbol"]) != symbol {
					continue
				}
				bd := parseActivityDate(toString(b["date"]), today)
				days := int(bd.Sub(sellDate).Hours() / 24)
				if days < 0 {
					days = -days
				}
				if days <= washSaleWindowDays {
					washWarnings = append(washWarnings, map[string]any{
						"symbol": symbol,
						"warning": "Possible wash sale — bought " + symbol +
							" within 30 days of selling at a loss. This loss may be disallowed by IRS rules.",
					})
					break
				}
			}
		}

		breakdown = append(breakdown, map[string]any{
			"symbol":       symbol,
			"gain_loss":    gain.Round(2).InexactFloat64(),
			"holding_days": holdingDays,
			"term":         term,
		})
	}

	shortTax := decimal.Max(decimal.Zero, shortGains).Mul(shortTermRate)
	longTax := decimal.Max(decimal.Zero, longGains).Mul(longTermRate)
	totalTax := shortTax.Add(longTax)

	return tool.Success(t.Name(), map[string]any{
		"disclaimer":                 "ESTIMATE ONLY — not tax advice. Consult a qualified tax professional.",
		"sell_transactions_analyzed": len(sells),
		"short_term_gains":           shortGains.Round(2).InexactFloat64(),
		"long_term_gains":            longGains.Round(2).InexactFloat64(),
		"short_term_tax_estimated":   shortTax.Round(2).InexactFloat64(),
		"long_term_tax_estimated":    longTax.Round(2).InexactFloat64(),
		"total_estimated_tax":        totalTax.Round(2).InexactFloat64(),
		"wash_sale_warnings":         washWarnings,
		"breakdown":                  breakdown,
		"rates_used":                 map[string]any{"short_term": "22%", "long_term": "15%"},
		"note": "Short-term = held <365 days (22% rate). Long-term = held >=365 days (15% rate). " +
			"Does not account for state taxes, AMT, or tax-loss offsets.",
	})
}

// parseActivityDate 解析 YYYY-MM-DD 开头的日期，解析不了就按今天
func parseActivityDate(s string, fallback time.Time) time.Time {
	if len(s) >= 10 {
		if d, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return d
		}
	}
	return fallback
}
