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
	"sync"

	"advisor-platform/internal/tool"
)

// overviewTickers "今天市场怎么样"这类模糊问题展示的大盘与权重股
var overviewTickers = []string{"SPY", "QQQ", "AAPL", "MSFT", "NVDA", "AMZN", "GOOGL"}

// MarketOverviewTool 大盘快照：主要指数与权重科技股并发取价
type MarketOverviewTool struct {
	quotes  *QuoteService
	tickers []string
}

// NewMarketOverviewTool 创建大盘快照工具，tickers 为空时用默认
func NewMarketOverviewTool(quotes *QuoteService, tickers []string) *MarketOverviewTool {
	if len(tickers) == 0 {
		tickers = overviewTickers
	}
	return &MarketOverviewTool{quotes: quotes, tickers: tickers}
}

// Name 实现 tool.Tool
func (t *MarketOverviewTool) Name() string { return "market_overview" }

// Description 实现 tool.Tool
func (t *MarketOverviewTool) Description() string {
	return "大盘快照：主要指数与权重股的价格、涨跌幅、涨跌家数。"
}

// Schema 实现 tool.Tool
func (t *MarketOverviewTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "无参数",
		Properties:  map[string]tool.SchemaProperty{},
	}
}

// Execute 实现 tool.Tool
func (t *MarketOverviewTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	type entry struct {
		q  *Quote
		ok bool
	}
	entries := make([]entry, len(t.tickers))
	var wg sync.WaitGroup
	for i, sym := range t.tickers {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			if q, err := t.quotes.Quote(ctx, sym); err == nil && q.Price > 0 {
				entries[i] = entry{q: q, ok: true}
			}
		}(i, sym)
	}
	wg.Wait()

	overview := make([]map[string]any, 0, len(entries))
	advancers, decliners := 0, 0
	for i, e := range entries {
		if !e.ok {
			continue
		}
		currency := e.q.Currency
		if currency == "" {
			currency = "USD"
		}
		overview = append(overview, map[string]any{
			"symbol":     t.tickers[i],
			"price":      e.q.Price,
			"change_pct": e.q.ChangePct,
			"currency":   currency,
		})
		if e.q.ChangePct > 0 {
			advancers++
		} else if e.q.ChangePct < 0 {
			decliners++
		}
	}

	if len(overview) == 0 {
		return tool.Failure(t.Name(), tool.CodeNoData,
			"Could not fetch market overview data. The market data feed may be temporarily unavailable.")
	}

	return tool.Success(t.Name(), map[string]any{
		"overview":  overview,
		"advancers": advancers,
		"decliners": decliners,
	})
}
