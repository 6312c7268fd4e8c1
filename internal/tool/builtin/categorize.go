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
	"sort"

	"advisor-platform/internal/tool"
)

// CategorizeTool 把活动列表归类为交易模式：
// 按类型计数、按代码汇总、交易最频繁 top5、模式标记
// （buy-and-hold、有无分红、费用占比过高）。
type CategorizeTool struct{}

// NewCategorizeTool 创建交易模式归类工具
func NewCategorizeTool() *CategorizeTool { return &CategorizeTool{} }

// Name 实现 tool.Tool
func (t *CategorizeTool) Name() string { return "transaction_categorize" }

// Description 实现 tool.Tool
func (t *CategorizeTool) Description() string {
	return "把交易历史归类为模式：类型计数、按代码汇总、最常交易 top5、风格标记。"
}

// Schema 实现 tool.Tool
func (t *CategorizeTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "归类参数",
		Properties: map[string]tool.SchemaProperty{
			"activities": {Type: "array", Description: "transaction_query 返回的活动列表"},
		},
		Required: []string{"activities"},
	}
}

type symbolStats struct {
	buyCount      int
	sellCount     int
	dividendCount int
	totalInvested float64
}

// Execute 实现 tool.Tool
func (t *CategorizeTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	activities := asMaps(args["activities"])

	typeCounts := map[string]int{}
	var totalInvested, totalFees float64
	bySymbol := map[string]*symbolStats{}
	symbolOrder := []string{} // map 遍历无序，按首次出现顺序记录

	for _, a := range activities {
		atype := toString(a["type"])
		if atype == "" {
			atype = "BUY"
		}
		symbol := toString(a["symbol"])
		if symbol == "" {
			symbol = "UNKNOWN"
		}
		quantity := toFloat(a["quantity"])
		unitPrice := toFloat(a["unit_price"])
		value := quantity * unitPrice
		totalFees += toFloat(a["fee"])
		typeCounts[atype]++

		stats, ok := bySymbol[symbol]
		if !ok {
			stats = &symbolStats{}
			bySymbol[symbol] = stats
			symbolOrder = append(symbolOrder, symbol)
		}
		switch atype {
		case "BUY":
			totalInvested += value
			stats.buyCount++
			stats.totalInvested += value
		case "SELL":
			stats.sellCount++
		case "DIVIDEND":
			stats.dividendCount++
		}
	}

	sort.SliceStable(symbolOrder, func(i, j int) bool {
		return bySymbol[symbolOrder[i]].buyCount > bySymbol[symbolOrder[j]].buyCount
	})

	bySymbolOut := map[string]any{}
	mostTraded := make([]map[string]any, 0, 5)
	for i, sym := range symbolOrder {
		stats := bySymbol[sym]
		entry := map[string]any{
			"buy_count":      stats.buyCount,
			"sell_count":     stats.sellCount,
			"dividend_count": stats.dividendCount,
			"total_invested": round2(stats.totalInvested),
		}
		bySymbolOut[sym] = entry
		if i < 5 {
			withSym := map[string]any{"symbol": sym}
			for k, v := range entry {
				withSym[k] = v
			}
			mostTraded = append(mostTraded, withSym)
		}
	}

	feeBase := totalInvested
	if feeBase < 1 {
		feeBase = 1
	}
	return tool.Success(t.Name(), map[string]any{
		"summary": map[string]any{
			"total_transactions": len(activities),
			"total_invested_usd": round2(totalInvested),
			"total_fees_usd":     round2(totalFees),
			"buy_count":          typeCounts["BUY"],
			"sell_count":         typeCounts["SELL"],
			"dividend_count":     typeCounts["DIVIDEND"],
		},
		"by_symbol":   bySymbolOut,
		"most_traded": mostTraded,
		"patterns": map[string]any{
			"is_buy_and_hold": typeCounts["SELL"] == 0,
			"has_dividends":   typeCounts["DIVIDEND"] > 0,
			"high_fee_ratio":  totalFees/feeBase > 0.01,
		},
	})
}
