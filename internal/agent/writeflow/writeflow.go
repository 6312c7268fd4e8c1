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

// Package writeflow 两段式写入协议。Prepare 解析写意图并生成确认文案，
// 不落账；Execute 只在用户明确回复 yes 之后执行。任何一轮对话都
// 不会静默写入组合数据。
package writeflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"advisor-platform/internal/agent/classify"
	"advisor-platform/internal/agent/extract"
	"advisor-platform/internal/runtime/cache"
	"advisor-platform/internal/tool"
	"advisor-platform/internal/tool/builtin"
	"advisor-platform/internal/tool/registry"
	"advisor-platform/pkg/moneyfmt"
)

// largeOrderShares 超过该股数的订单在确认文案里附加复核提醒
const largeOrderShares = 100_000

// PendingWrite 等待用户确认的写操作。Operation 即将调用的写工具名。
// 分红与现金没有数量概念，金额放在 Price 里。ConfirmationMessage
// 是 Prepare 生成的确认文案，随响应下发、随下一次请求原样回传，
// 用户在确认期间答非所问时直接重放，不重新生成。
type PendingWrite struct {
	Operation           string  `json:"operation"`
	Symbol              string  `json:"symbol,omitempty"`
	Quantity            float64 `json:"quantity,omitempty"`
	Price               float64 `json:"price,omitempty"`
	Date                string  `json:"date,omitempty"`
	Fee                 float64 `json:"fee,omitempty"`
	ConfirmationMessage string  `json:"confirmation_message,omitempty"`
}

// Outcome Prepare 的结果。Pending 非空表示进入待确认状态，
// Message 是确认文案；否则 Message 是缺字段的澄清提问。
type Outcome struct {
	Message string
	Pending *PendingWrite
	Missing []string
}

// Awaiting 报告是否在等待用户的 yes/no 回复
func (o Outcome) Awaiting() bool { return o.Pending != nil }

// Flow 写入流程。行情服务用于买卖缺价时取市价，store 用于写入
// 成功后让组合缓存失效。
type Flow struct {
	reg    *registry.Registry
	quotes *builtin.QuoteService
	store  cache.Cache
}

// New 创建写入流程
func New(reg *registry.Registry, quotes *builtin.QuoteService, store cache.Cache) *Flow {
	return &Flow{reg: reg, quotes: quotes, store: store}
}

// Prepare 按写意图类型解析查询并生成确认文案。字段不全时返回
// 澄清提问，不产生 PendingWrite。
func (f *Flow) Prepare(ctx context.Context, qt classify.QueryType, query string) Outcome {
	switch qt {
	case classify.Cash:
		return prepareCash(query)
	case classify.Dividend:
		return prepareDividend(query)
	case classify.Transaction:
		return prepareTransaction(query)
	case classify.Buy:
		return f.prepareTrade(ctx, "BUY", query)
	case classify.Sell:
		return f.prepareTrade(ctx, "SELL", query)
	}
	return Outcome{}
}

func prepareCash(query string) Outcome {
	amount, ok := extract.Amount(query)
	if !ok {
		return Outcome{
			Message: "How much cash would you like to add? Please specify an amount, e.g. 'add $500 cash'.",
			Missing: []string{"amount"},
		}
	}
	today := todayStr()
	msg := fmt.Sprintf("I am about to record: **CASH DEPOSIT %s USD** on %s.\n\nConfirm? (yes / no)",
		moneyfmt.Dollars(amount, 2), today)
	return Outcome{
		Message: msg,
		Pending: &PendingWrite{Operation: "record_cash", Price: amount, Date: today, ConfirmationMessage: msg},
	}
}

func prepareDividend(query string) Outcome {
	symbol := extract.Ticker(query)
	amount, ok := extract.DividendAmount(query)
	if !ok {
		amount, ok = extract.Price(query)
	}
	date := dateOrToday(query)

	var missing []string
	if symbol == "" {
		missing = append(missing, "symbol")
	}
	if !ok {
		missing = append(missing, "dividend amount")
	}
	if len(missing) > 0 {
		return Outcome{
			Message: fmt.Sprintf("To record a dividend, I need: %s. Please provide them, e.g. 'record a $50 dividend from AAPL'.",
				strings.Join(missing, ", ")),
			Missing: missing,
		}
	}

	msg := fmt.Sprintf("I am about to record: **DIVIDEND %s from %s** on %s.\n\nConfirm? (yes / no)",
		moneyfmt.Dollars(amount, 2), symbol, date)
	return Outcome{
		Message: msg,
		Pending: &PendingWrite{Operation: "record_dividend", Symbol: symbol, Price: amount, Date: date, ConfirmationMessage: msg},
	}
}

// prepareTransaction 泛写意图（"log a trade" 之类）：三要素齐全才继续，
// 按买入记账
func prepareTransaction(query string) Outcome {
	symbol := extract.Ticker(query)
	quantity, haveQty := extract.Quantity(query)
	price, havePrice := extract.Price(query)
	date := dateOrToday(query)
	fee := extract.Fee(query)

	var missing []string
	if symbol == "" {
		missing = append(missing, "symbol")
	}
	if !haveQty {
		missing = append(missing, "quantity")
	}
	if !havePrice {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return Outcome{
			Message: fmt.Sprintf("To record a transaction, I still need: %s. Please specify them and try again.",
				strings.Join(missing, ", ")),
			Missing: missing,
		}
	}

	msg := fmt.Sprintf("I am about to record: **BUY %s %s at %s** on %s%s.\n\nConfirm? (yes / no)",
		moneyfmt.Format(quantity, 0), symbol, moneyfmt.Dollars(price, 2), date, feeSuffix(fee))
	return Outcome{
		Message: msg,
		Pending: &PendingWrite{Operation: "record_buy", Symbol: symbol, Quantity: quantity, Price: price, Date: date, Fee: fee, ConfirmationMessage: msg},
	}
}

func (f *Flow) prepareTrade(ctx context.Context, side, query string) Outcome {
	verb := strings.ToLower(side)
	symbol := extract.Ticker(query)
	quantity, haveQty := extract.Quantity(query)
	price, havePrice := extract.Price(query)
	date := dateOrToday(query)
	fee := extract.Fee(query)

	if symbol == "" {
		return Outcome{
			Message: fmt.Sprintf("Which stock would you like to %s? Please include a ticker symbol, e.g. 'buy 5 shares of AAPL'.", verb),
			Missing: []string{"symbol"},
		}
	}
	if !haveQty {
		return Outcome{
			Message: fmt.Sprintf("How many shares of %s would you like to %s? Please specify a quantity, e.g. '5 shares'.", symbol, verb),
			Missing: []string{"quantity"},
		}
	}

	// 未给价格时取实时市价，并在确认文案里注明来源
	priceNote := ""
	if !havePrice {
		live, err := f.livePrice(ctx, symbol)
		if err != nil || live <= 0 {
			return Outcome{
				Message: fmt.Sprintf("I couldn't fetch the current price for %s. Please specify a price, e.g. '%s %s %s at $150'.",
					symbol, verb, moneyfmt.Format(quantity, 0), symbol),
				Missing: []string{"price"},
			}
		}
		price = live
		priceNote = " (current market price from Yahoo Finance)"
	}

	warning := ""
	if quantity >= largeOrderShares {
		warning = fmt.Sprintf("\n\n⚠️ **Note:** %s shares is an unusually large order. Please double-check the quantity before confirming.",
			moneyfmt.Format(quantity, 0))
	}

	op := "record_buy"
	if side == "SELL" {
		op = "record_sell"
	}
	msg := fmt.Sprintf("I am about to record: **%s %s %s at %s%s** on %s%s.%s\n\nConfirm? (yes / no)",
		side, moneyfmt.Format(quantity, 0), symbol, moneyfmt.Dollars(price, 2), priceNote, date, feeSuffix(fee), warning)
	return Outcome{
		Message: msg,
		Pending: &PendingWrite{Operation: op, Symbol: symbol, Quantity: quantity, Price: price, Date: date, Fee: fee, ConfirmationMessage: msg},
	}
}

// Execute 执行已确认的写操作。成功后先让组合缓存失效再重拉组合
// 分析，让最终回答反映写入后的新状态；失败时只返回写操作结果。
func (f *Flow) Execute(ctx context.Context, pw *PendingWrite, token string) []tool.Result {
	if pw == nil {
		return []tool.Result{tool.Failure("write", tool.CodeUnknownOperation, "no pending write operation")}
	}

	var args map[string]any
	switch pw.Operation {
	case "record_buy", "record_sell":
		args = map[string]any{
			"symbol":     pw.Symbol,
			"quantity":   pw.Quantity,
			"unit_price": pw.Price,
			"date":       pw.Date,
			"fee":        pw.Fee,
			"token":      token,
		}
	case "record_dividend":
		args = map[string]any{
			"symbol": pw.Symbol,
			"amount": pw.Price,
			"date":   pw.Date,
			"token":  token,
		}
	case "record_cash":
		args = map[string]any{
			"amount":   pw.Price,
			"currency": "USD",
			"token":    token,
		}
	default:
		return []tool.Result{tool.Failure(pw.Operation, tool.CodeUnknownOperation,
			fmt.Sprintf("unknown write operation: %q", pw.Operation))}
	}

	results := []tool.Result{f.reg.Call(ctx, pw.Operation, args)}
	if results[0].Success {
		if f.store != nil {
			f.store.Delete(ctx, builtin.PortfolioCacheKey(token))
		}
		results = append(results, f.reg.Call(ctx, "portfolio_analysis", map[string]any{"token": token}))
	}
	return results
}

func (f *Flow) livePrice(ctx context.Context, symbol string) (float64, error) {
	if f.quotes == nil {
		return 0, fmt.Errorf("no market data source configured")
	}
	q, err := f.quotes.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

func feeSuffix(fee float64) string {
	if fee <= 0 {
		return ""
	}
	return fmt.Sprintf(" (fee: $%.2f)", fee)
}

func todayStr() string {
	return time.Now().UTC().Format("2006-01-02")
}

func dateOrToday(query string) string {
	if d, ok := extract.Date(query); ok {
		return d
	}
	return todayStr()
}
