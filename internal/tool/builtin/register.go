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
	"time"

	"advisor-platform/internal/runtime/cache"
	"advisor-platform/internal/tool/registry"
	"advisor-platform/pkg/config"
)

// parseTimeout 解析形如 "10s" 的超时配置，空或非法时用默认值
func parseTimeout(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

// RegisterAll 注册全部内置工具：九个读工具加四个写工具。
// 返回共用的行情服务，确认流程补全缺失价格时直接复用同一份缓存。
func RegisterAll(r *registry.Registry, cfg config.ToolsConfig, cacheCfg config.CacheConfig, store cache.Cache) *QuoteService {
	portfolioTimeout := parseTimeout(cfg.Portfolio.Timeout, 10*time.Second)
	quoteTTL := parseTimeout(cacheCfg.QuoteTTL, 30*time.Minute)
	portfolioTTL := parseTimeout(cacheCfg.PortfolioTTL, 60*time.Second)
	baseURL := cfg.Portfolio.BaseURL

	quotes := NewQuoteService(store, quoteTTL)
	quotes.fetchTimeout = parseTimeout(cfg.Market.Timeout, 8*time.Second)

	overview := overviewTickers
	if n := cfg.Market.OverviewLimit; n > 0 && n < len(overview) {
		overview = overview[:n]
	}

	r.Register(NewPortfolioTool(baseURL, portfolioTimeout, quotes, store, portfolioTTL))
	r.Register(NewTransactionQueryTool(baseURL, portfolioTimeout))
	r.Register(NewMarketDataTool(quotes, cfg.Market.DefaultSymbol))
	r.Register(NewMarketOverviewTool(quotes, overview))
	r.Register(NewComplianceTool())
	r.Register(NewTaxEstimateTool())
	r.Register(NewCategorizeTool())
	r.Register(NewEquityAdvisorTool())
	r.Register(NewAffordabilityTool())

	r.Register(NewBuyTool(baseURL, portfolioTimeout))
	r.Register(NewSellTool(baseURL, portfolioTimeout))
	r.Register(NewDividendTool(baseURL, portfolioTimeout))
	r.Register(NewCashTool(baseURL, portfolioTimeout))

	return quotes
}
