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
	"time"

	"github.com/go-resty/resty/v2"

	"advisor-platform/internal/tool"
	"advisor-platform/pkg/metrics"
)

// importActivity 组合服务 /api/v1/import 的单条活动（外部契约，字段名保持 camelCase）
type importActivity struct {
	Currency   string  `json:"currency"`
	DataSource string  `json:"dataSource"`
	Date       string  `json:"date"`
	Fee        float64 `json:"fee"`
	Quantity   float64 `json:"quantity"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	UnitPrice  float64 `json:"unitPrice"`
}

// importer 写工具共用的导入客户端。四个写工具永远不会被直接调度，
// 只有确认门放行后才会走到这里。
type importer struct {
	client *resty.Client
}

func newImporter(baseURL string, timeout time.Duration) *importer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &importer{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
	}
}

// record POST 一条活动并折叠成工具结果。失败时明确告知交易未入账。
func (im *importer) record(ctx context.Context, toolName, token string, act importActivity) tool.Result {
	resp, err := im.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"activities": []importActivity{act}}).
		Post("/api/v1/import")
	if err != nil {
		metrics.WriteOpsTotal.WithLabelValues(toolName, "failure").Inc()
		if isTimeout(err) {
			return tool.Failure(toolName, tool.CodeTimeout,
				"The portfolio service API timed out. Transaction was NOT recorded.")
		}
		return tool.Failure(toolName, tool.CodeAPIError, "Failed to record transaction: "+err.Error())
	}
	if resp.IsError() {
		metrics.WriteOpsTotal.WithLabelValues(toolName, "failure").Inc()
		body := string(resp.Body())
		if len(body) > 300 {
			body = body[:300]
		}
		return tool.Failure(toolName, tool.CodeAPIError,
			fmt.Sprintf("The portfolio service rejected the transaction: %d — %s", resp.StatusCode(), body))
	}

	metrics.WriteOpsTotal.WithLabelValues(toolName, "success").Inc()
	return tool.Success(toolName, map[string]any{
		"status":     "recorded",
		"type":       act.Type,
		"symbol":     act.Symbol,
		"quantity":   act.Quantity,
		"unit_price": act.UnitPrice,
		"date":       act.Date[:10],
		"fee":        act.Fee,
		"currency":   act.Currency,
	})
}

// writeDate 取 YYYY-MM-DD 前缀，解析不了就用今天（UTC）
func writeDate(s string) string {
	if len(s) >= 10 {
		if _, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return s[:10]
		}
	}
	return time.Now().UTC().Format("2006-01-02")
}

// TradeTool 记录 BUY / SELL 交易，两个方向共用一套实现
type TradeTool struct {
	im   *importer
	side string // BUY | SELL
}

// NewBuyTool 创建买入记录工具
func NewBuyTool(baseURL string, timeout time.Duration) *TradeTool {
	return &TradeTool{im: newImporter(baseURL, timeout), side: "BUY"}
}

// NewSellTool 创建卖出记录工具
func NewSellTool(baseURL string, timeout time.Duration) *TradeTool {
	return &TradeTool{im: newImporter(baseURL, timeout), side: "SELL"}
}

// Name 实现 tool.Tool
func (t *TradeTool) Name() string {
	if t.side == "SELL" {
		return "record_sell"
	}
	return "record_buy"
}

// Description 实现 tool.Tool
func (t *TradeTool) Description() string {
	if t.side == "SELL" {
		return "在组合中记录一笔卖出交易，仅在用户确认后调用。"
	}
	return "在组合中记录一笔买入交易，仅在用户确认后调用。"
}

// Schema 实现 tool.Tool
func (t *TradeTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "交易记录参数",
		Properties: map[string]tool.SchemaProperty{
			"symbol":     {Type: "string", Description: "股票代码"},
			"quantity":   {Type: "number", Description: "股数"},
			"unit_price": {Type: "number", Description: "成交单价（USD）"},
			"date":       {Type: "string", Description: "成交日期 YYYY-MM-DD，默认今天"},
			"fee":        {Type: "number", Description: "手续费，默认 0"},
			"token":      {Type: "string", Description: "组合服务 bearer token"},
		},
		Required: []string{"symbol", "quantity", "unit_price"},
	}
}

// Execute 实现 tool.Tool
func (t *TradeTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	symbol := strings.ToUpper(strings.TrimSpace(toString(args["symbol"])))
	quantity := toFloat(args["quantity"])
	price := toFloat(args["unit_price"])
	if symbol == "" {
		return tool.Failure(t.Name(), tool.CodeBadInput, "symbol is required")
	}
	if quantity <= 0 {
		return tool.Failure(t.Name(), tool.CodeBadInput, "quantity must be positive")
	}
	if price <= 0 {
		return tool.Failure(t.Name(), tool.CodeBadInput, "unit price must be positive")
	}
	return t.im.record(ctx, t.Name(), toString(args["token"]), importActivity{
		Currency:   "USD",
		DataSource: "YAHOO",
		Date:       writeDate(toString(args["date"])) + "T00:00:00.000Z",
		Fee:        toFloat(args["fee"]),
		Quantity:   quantity,
		Symbol:     symbol,
		Type:       t.side,
		UnitPrice:  price,
	})
}

// DividendTool 记录股息入账：quantity 固定为 1，unitPrice 即股息总额
type DividendTool struct {
	im *importer
}

// NewDividendTool 创建股息记录工具
func NewDividendTool(baseURL string, timeout time.Duration) *DividendTool {
	return &DividendTool{im: newImporter(baseURL, timeout)}
}

// Name 实现 tool.Tool
func (t *DividendTool) Name() string { return "record_dividend" }

// Description 实现 tool.Tool
func (t *DividendTool) Description() string {
	return "在组合中记录一笔股息收入，仅在用户确认后调用。"
}

// Schema 实现 tool.Tool
func (t *DividendTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "股息记录参数",
		Properties: map[string]tool.SchemaProperty{
			"symbol": {Type: "string", Description: "派息股票代码"},
			"amount": {Type: "number", Description: "股息总额（USD）"},
			"date":   {Type: "string", Description: "入账日期 YYYY-MM-DD，默认今天"},
			"fee":    {Type: "number", Description: "手续费，默认 0"},
			"token":  {Type: "string", Description: "组合服务 bearer token"},
		},
		Required: []string{"symbol", "amount"},
	}
}

// Execute 实现 tool.Tool
func (t *DividendTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	symbol := strings.ToUpper(strings.TrimSpace(toString(args["symbol"])))
	amount := toFloat(args["amount"])
	if symbol == "" {
		return tool.Failure(t.Name(), tool.CodeBadInput, "symbol is required")
	}
	if amount <= 0 {
		return tool.Failure(t.Name(), tool.CodeBadInput, "dividend amount must be positive")
	}
	return t.im.record(ctx, t.Name(), toString(args["token"]), importActivity{
		Currency:   "USD",
		DataSource: "MANUAL",
		Date:       writeDate(toString(args["date"])) + "T00:00:00.000Z",
		Fee:        toFloat(args["fee"]),
		Quantity:   1,
		Symbol:     symbol,
		Type:       "DIVIDEND",
		UnitPrice:  amount,
	})
}

// CashTool 记录现金存入：在 CASH 标的上记一笔 INTEREST，单价恒为 1。
// 组合服务的导入接口不支持指定账户，现金进默认账户。
type CashTool struct {
	im *importer
}

// NewCashTool 创建现金记录工具
func NewCashTool(baseURL string, timeout time.Duration) *CashTool {
	return &CashTool{im: newImporter(baseURL, timeout)}
}

// Name 实现 tool.Tool
func (t *CashTool) Name() string { return "record_cash" }

// Description 实现 tool.Tool
func (t *CashTool) Description() string {
	return "在组合中记录一笔现金存入，仅在用户确认后调用。"
}

// Schema 实现 tool.Tool
func (t *CashTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "现金记录参数",
		Properties: map[string]tool.SchemaProperty{
			"amount":   {Type: "number", Description: "存入金额"},
			"currency": {Type: "string", Description: "币种，默认 USD"},
			"token":    {Type: "string", Description: "组合服务 bearer token"},
		},
		Required: []string{"amount"},
	}
}

// Execute 实现 tool.Tool
func (t *CashTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	amount := toFloat(args["amount"])
	if amount <= 0 {
		return tool.Failure(t.Name(), tool.CodeBadInput, "cash amount must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(toString(args["currency"])))
	if currency == "" {
		currency = "USD"
	}
	return t.im.record(ctx, t.Name(), toString(args["token"]), importActivity{
		Currency:   currency,
		DataSource: "MANUAL",
		Date:       time.Now().UTC().Format("2006-01-02") + "T00:00:00.000Z",
		Fee:        0,
		Quantity:   amount,
		Symbol:     "CASH",
		Type:       "INTEREST",
		UnitPrice:  1,
	})
}
