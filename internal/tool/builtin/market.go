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
	"strings"

	"advisor-platform/internal/tool"
)

// MarketDataTool 单个代码的实时行情
type MarketDataTool struct {
	quotes        *QuoteService
	defaultSymbol string
}

// NewMarketDataTool 创建行情工具。defaultSymbol 在调用方没给代码时兜底，
// 为空则没给代码直接报参数错误。
func NewMarketDataTool(quotes *QuoteService, defaultSymbol string) *MarketDataTool {
	return &MarketDataTool{
		quotes:        quotes,
		defaultSymbol: strings.ToUpper(strings.TrimSpace(defaultSymbol)),
	}
}

// Name 实现 tool.Tool
func (t *MarketDataTool) Name() string { return "market_data" }

// Description 实现 tool.Tool
func (t *MarketDataTool) Description() string {
	return "查询单个代码的当前价格、涨跌幅、交易所信息。"
}

// Schema 实现 tool.Tool
func (t *MarketDataTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "行情查询参数",
		Properties: map[string]tool.SchemaProperty{
			"symbol": {Type: "string", Description: "股票/ETF 代码"},
		},
		Required: []string{"symbol"},
	}
}

// Execute 实现 tool.Tool
func (t *MarketDataTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	symbol := strings.ToUpper(strings.TrimSpace(toString(args["symbol"])))
	if symbol == "" {
		symbol = t.defaultSymbol
	}
	if symbol == "" {
		return tool.Failure(t.Name(), tool.CodeBadInput, "symbol is required")
	}

	q, err := t.quotes.Quote(ctx, symbol)
	if err != nil {
		if isTimeout(err) {
			return tool.Failure(t.Name(), tool.CodeTimeout,
				fmt.Sprintf("Market data feed timed out fetching %s. Try again in a moment.", symbol))
		}
		return tool.Failure(t.Name(), tool.CodeNoData,
			fmt.Sprintf("No market data found for symbol '%s'. Check the ticker is valid.", symbol))
	}

	return tool.Success(t.Name(), map[string]any{
		"symbol":          symbol,
		"current_price":   q.Price,
		"previous_close":  q.PreviousClose,
		"change_pct":      q.ChangePct,
		"currency":        q.Currency,
		"exchange":        q.Exchange,
		"instrument_type": q.InstrumentType,
	})
}
