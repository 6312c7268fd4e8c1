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
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"advisor-platform/internal/tool"
)

// defaultActivityLimit 单次最多返回的活动条数
const defaultActivityLimit = 50

// ghostActivity 组合服务 /api/v1/order 的单条活动
type ghostActivity struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	Fee           float64 `json:"fee"`
	Currency      string  `json:"currency"`
	Date          string  `json:"date"`
	Value         float64 `json:"valueInBaseCurrency"`
	SymbolProfile struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"SymbolProfile"`
}

// TransactionQueryTool 查询交易/活动历史，可按代码过滤。
type TransactionQueryTool struct {
	client  *resty.Client
	timeout time.Duration
}

// NewTransactionQueryTool 创建活动查询工具
func NewTransactionQueryTool(baseURL string, timeout time.Duration) *TransactionQueryTool {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &TransactionQueryTool{client: client, timeout: timeout}
}

// Name 实现 tool.Tool
func (t *TransactionQueryTool) Name() string { return "transaction_query" }

// Description 实现 tool.Tool
func (t *TransactionQueryTool) Description() string {
	return "查询交易与活动历史（买卖/分红/费用），可按代码过滤，默认最近 50 条。"
}

// Schema 实现 tool.Tool
func (t *TransactionQueryTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "活动查询参数",
		Properties: map[string]tool.SchemaProperty{
			"symbol": {Type: "string", Description: "按代码过滤（可选）"},
			"limit":  {Type: "integer", Description: "最多返回条数，默认 50"},
			"token":  {Type: "string", Description: "组合服务 bearer token"},
		},
	}
}

// Execute 实现 tool.Tool
func (t *TransactionQueryTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	symbol := strings.ToUpper(strings.TrimSpace(toString(args["symbol"])))
	limit := toInt(args["limit"])
	if limit <= 0 || limit > defaultActivityLimit {
		limit = defaultActivityLimit
	}
	token := toString(args["token"])

	var body struct {
		Activities []ghostActivity `json:"activities"`
	}
	req := t.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&body)
	if symbol != "" {
		req.SetQueryParam("symbol", symbol)
	}
	resp, err := req.Get("/api/v1/order")
	if err != nil {
		if isTimeout(err) {
			return tool.Failure(t.Name(), tool.CodeTimeout,
				fmt.Sprintf("Portfolio service API timed out after %d seconds.", int(t.timeout.Seconds())))
		}
		return tool.Failure(t.Name(), tool.CodeAPIError, "Failed to fetch transactions: "+err.Error())
	}
	if resp.IsError() {
		return tool.Failure(t.Name(), tool.CodeAPIError,
			fmt.Sprintf("Failed to fetch transactions: HTTP %s", resp.Status()))
	}

	activities := body.Activities
	if symbol != "" {
		filtered := activities[:0]
		for _, a := range activities {
			if strings.EqualFold(a.SymbolProfile.Symbol, symbol) {
				filtered = append(filtered, a)
			}
		}
		activities = filtered
	}

	simplified := make([]map[string]any, 0, len(activities))
	for _, a := range activities {
		date := a.Date
		if len(date) > 10 {
			date = date[:10]
		}
		simplified = append(simplified, map[string]any{
			"type":       a.Type,
			"symbol":     a.SymbolProfile.Symbol,
			"name":       a.SymbolProfile.Name,
			"quantity":   a.Quantity,
			"unit_price": a.UnitPrice,
			"fee":        a.Fee,
			"currency":   a.Currency,
			"date":       date,
			"value":      a.Value,
			"id":         a.ID,
		})
	}
	// 新的在前，再截断，保证"最近"类问题拿到的是最新数据
	sort.SliceStable(simplified, func(i, j int) bool {
		return toString(simplified[i]["date"]) > toString(simplified[j]["date"])
	})
	if len(simplified) > limit {
		simplified = simplified[:limit]
	}

	payload := map[string]any{
		"activities": simplified,
		"count":      len(simplified),
	}
	if symbol != "" {
		payload["filter_symbol"] = symbol
	}
	return tool.Success(t.Name(), payload)
}
