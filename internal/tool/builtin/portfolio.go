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
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"advisor-platform/internal/runtime/cache"
	"advisor-platform/internal/tool"
	"advisor-platform/pkg/metrics"
)

// ghostHolding 组合服务 /api/v1/portfolio/holdings 的单条持仓
type ghostHolding struct {
	Symbol                 string  `json:"symbol"`
	Name                   string  `json:"name"`
	Quantity               float64 `json:"quantity"`
	ValueInBaseCurrency    float64 `json:"valueInBaseCurrency"`
	AllocationInPercentage float64 `json:"allocationInPercentage"`
	Currency               string  `json:"currency"`
	AssetClass             string  `json:"assetClass"`
}

// PortfolioTool 拉取持仓并用实时行情计算真实收益。
// 组合服务本地部署时自带的 performance 接口经常返回全零，
// 这里直接拿行情源价格重算绕开它。结果按 token 缓存 60 秒，
// 多步会话里不重复打组合服务。
type PortfolioTool struct {
	client *resty.Client
	quotes *QuoteService
	store  cache.Cache
	ttl    time.Duration
}

// NewPortfolioTool 创建组合分析工具
func NewPortfolioTool(baseURL string, timeout time.Duration, quotes *QuoteService, store cache.Cache, ttl time.Duration) *PortfolioTool {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &PortfolioTool{client: client, quotes: quotes, store: store, ttl: ttl}
}

// Name 实现 tool.Tool
func (t *PortfolioTool) Name() string { return "portfolio_analysis" }

// Description 实现 tool.Tool
func (t *PortfolioTool) Description() string {
	return "拉取全部持仓，按实时行情计算总收益与 YTD 收益、各持仓占比。"
}

// Schema 实现 tool.Tool
func (t *PortfolioTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "组合分析参数",
		Properties: map[string]tool.SchemaProperty{
			"date_range": {Type: "string", Description: "统计区间，默认 max"},
			"token":      {Type: "string", Description: "组合服务 bearer token"},
		},
	}
}

// PortfolioCacheKey 组合分析缓存键。写入成功后由写入流程删除该键，
// 下一次组合查询必定回源
func PortfolioCacheKey(token string) string {
	return "portfolio:" + tokenDigest(token)
}

// Execute 实现 tool.Tool
func (t *PortfolioTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	token := toString(args["token"])
	dateRange := toString(args["date_range"])
	if dateRange == "" {
		dateRange = "max"
	}

	cacheKey := PortfolioCacheKey(token)
	if t.store != nil {
		if raw, ok := t.store.Get(ctx, cacheKey); ok {
			var payload map[string]any
			if json.Unmarshal(raw, &payload) == nil {
				metrics.CacheHitTotal.WithLabelValues("portfolio", "hit").Inc()
				payload["from_cache"] = true
				// Result ID 每次都要新生成，引用标注才能区分轮次
				return tool.Success(t.Name(), payload)
			}
		}
		metrics.CacheHitTotal.WithLabelValues("portfolio", "miss").Inc()
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get("/api/v1/portfolio/holdings")
	if err != nil {
		if isTimeout(err) {
			return tool.Failure(t.Name(), tool.CodeTimeout, "Portfolio API timed out. Try again shortly.")
		}
		return tool.Failure(t.Name(), tool.CodeAPIError, "Failed to fetch portfolio data: "+err.Error())
	}
	if resp.IsError() {
		return tool.Failure(t.Name(), tool.CodeAPIError,
			fmt.Sprintf("Failed to fetch portfolio data: HTTP %s", resp.Status()))
	}

	holdings, err := parseHoldings(resp.Body())
	if err != nil {
		return tool.Failure(t.Name(), tool.CodeAPIError, "Failed to fetch portfolio data: "+err.Error())
	}

	payload := t.buildPayload(ctx, holdings, dateRange)

	if t.store != nil {
		if raw, err := json.Marshal(payload); err == nil {
			t.store.Set(ctx, cacheKey, raw, t.ttl)
		}
	}
	return tool.Success(t.Name(), payload)
}

// parseHoldings 兼容裸数组和 {"holdings": [...]} 两种响应形态
func parseHoldings(body []byte) ([]ghostHolding, error) {
	var list []ghostHolding
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Holdings []ghostHolding `json:"holdings"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected holdings response: %w", err)
	}
	return wrapped.Holdings, nil
}

type holdingPrices struct {
	current   float64
	yearStart float64
	hasLive   bool
	hasStart  bool
}

// buildPayload 并发拉价后逐条富化持仓，再汇总
func (t *PortfolioTool) buildPayload(ctx context.Context, holdings []ghostHolding, dateRange string) map[string]any {
	prices := make([]holdingPrices, len(holdings))
	var wg sync.WaitGroup
	for i := range holdings {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			if q, err := t.quotes.Quote(ctx, symbol); err == nil && q.Price > 0 {
				prices[i].current = q.Price
				prices[i].hasLive = true
			}
			if p, err := t.quotes.YearStartPrice(ctx, symbol); err == nil && p > 0 {
				prices[i].yearStart = p
				prices[i].hasStart = true
			}
		}(i, holdings[i].Symbol)
	}
	wg.Wait()

	enriched := make([]map[string]any, 0, len(holdings))
	var totalCost, totalValue float64
	var ytdCost, ytdValue float64
	pricesFetched := 0

	for i, h := range holdings {
		costBasis := h.ValueInBaseCurrency
		allocationPct := round2(h.AllocationInPercentage * 100)

		var currentValue, gainUSD, gainPct float64
		var currentPrice any
		if prices[i].hasLive {
			currentPrice = prices[i].current
			currentValue = round2(h.Quantity * prices[i].current)
			gainUSD = round2(currentValue - costBasis)
			if costBasis > 0 {
				gainPct = round2(gainUSD / costBasis * 100)
			}
			pricesFetched++
		} else {
			currentValue = costBasis
		}

		var yearStartPrice, ytdGainUSD, ytdGainPct any
		if prices[i].hasStart && prices[i].hasLive {
			startValue := round2(h.Quantity * prices[i].yearStart)
			gain := round2(currentValue - startValue)
			yearStartPrice = prices[i].yearStart
			ytdGainUSD = gain
			if startValue != 0 {
				ytdGainPct = round2(gain / startValue * 100)
			} else {
				ytdGainPct = 0.0
			}
			ytdCost += startValue
			ytdValue += currentValue
		}

		totalCost += costBasis
		totalValue += currentValue

		name := h.Name
		if name == "" {
			name = h.Symbol
		}
		currency := h.Currency
		if currency == "" {
			currency = "USD"
		}
		enriched = append(enriched, map[string]any{
			"symbol":              h.Symbol,
			"name":                name,
			"quantity":            h.Quantity,
			"cost_basis_usd":      costBasis,
			"current_price_usd":   currentPrice,
			"ytd_start_price_usd": yearStartPrice,
			"current_value_usd":   currentValue,
			"gain_usd":            gainUSD,
			"gain_pct":            gainPct,
			"ytd_gain_usd":        ytdGainUSD,
			"ytd_gain_pct":        ytdGainPct,
			"allocation_pct":      allocationPct,
			"currency":            currency,
			"asset_class":         h.AssetClass,
		})
	}

	sort.Slice(enriched, func(i, j int) bool {
		return toFloat(enriched[i]["current_value_usd"]) > toFloat(enriched[j]["current_value_usd"])
	})

	totalGain := round2(totalValue - totalCost)
	var totalGainPct float64
	if totalCost > 0 {
		totalGainPct = round2(totalGain / totalCost * 100)
	}
	var ytdTotalGain, ytdTotalPct any
	if ytdCost != 0 {
		g := round2(ytdValue - ytdCost)
		ytdTotalGain = g
		ytdTotalPct = round2(g / ytdCost * 100)
	}

	year := time.Now().UTC().Year()
	return map[string]any{
		"summary": map[string]any{
			"total_cost_basis_usd":    round2(totalCost),
			"total_current_value_usd": round2(totalValue),
			"total_gain_usd":          totalGain,
			"total_gain_pct":          totalGainPct,
			"ytd_gain_usd":            ytdTotalGain,
			"ytd_gain_pct":            ytdTotalPct,
			"holdings_count":          len(enriched),
			"live_prices_fetched":     pricesFetched,
			"date_range":              dateRange,
			"note": fmt.Sprintf(
				"Performance uses live market prices. YTD = first trading day of %d to today. Total return = purchase date to today.",
				year),
		},
		"holdings": enriched,
	}
}
