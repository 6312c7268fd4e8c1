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

// Package dispatch 把查询类型映射到固定的工具执行计划并并发执行。
// 计划是每个类型写死的表，不是 LLM 规划：同样的查询类型永远产生
// 同样的工具组合，结果顺序与声明顺序一致。
package dispatch

import (
	"encoding/json"

	"advisor-platform/internal/agent/classify"
	"advisor-platform/internal/agent/extract"
)

// Step 一次主批次工具调用
type Step struct {
	Tool string
	Args map[string]any
}

// Followup 依赖主批次结果的后续调用。依赖成功且 When 成立才执行；
// 依赖失败时默认跳过，OnFailure 非 nil 则改用它作参数继续执行。
type Followup struct {
	Tool      string
	DependsOn string
	When      func(payload map[string]any) bool
	Args      func(payload map[string]any) map[string]any
	OnFailure map[string]any
}

// Plan 一次请求的完整工具计划：主批次并发执行，后续批次在汇合后执行
type Plan struct {
	Primary []Step
	Then    []Followup
}

// Empty 报告计划是否不含任何调用
func (p Plan) Empty() bool {
	return len(p.Primary) == 0 && len(p.Then) == 0
}

// PlanFor 按查询类型生成固定计划。query 用于抽取代码/金额参数，
// token 透传给需要访问组合服务的工具。
func PlanFor(qt classify.QueryType, query, token string) Plan {
	switch qt {
	case classify.Performance:
		return Plan{
			Primary: []Step{portfolioStep(token)},
			Then:    []Followup{complianceOnLosses()},
		}

	case classify.Activity:
		return Plan{Primary: []Step{transactionStep(token, extract.Ticker(query))}}

	case classify.Categorize:
		return Plan{
			Primary: []Step{transactionStep(token, "")},
			Then:    []Followup{categorizeFollowup()},
		}

	case classify.Tax:
		return Plan{
			Primary: []Step{portfolioStep(token), transactionStep(token, "")},
			Then:    []Followup{taxFollowup()},
		}

	case classify.Compliance:
		return Plan{
			Primary: []Step{portfolioStep(token)},
			Then:    []Followup{complianceAlways()},
		}

	case classify.Market:
		return Plan{Primary: []Step{marketStep(extract.TickerOr(query, "SPY"))}}

	case classify.MarketOverview:
		return Plan{Primary: []Step{{Tool: "market_overview"}}}

	case classify.PerformanceMarket:
		return Plan{
			Primary: []Step{portfolioStep(token), marketStep(extract.TickerOr(query, "SPY"))},
		}

	case classify.ActivityMarket:
		return Plan{
			Primary: []Step{
				transactionStep(token, extract.Ticker(query)),
				marketStep(extract.TickerOr(query, "SPY")),
			},
		}

	case classify.ActivityCompliance:
		return Plan{
			Primary: []Step{transactionStep(token, ""), portfolioStep(token)},
			Then:    []Followup{complianceAlways()},
		}

	case classify.ComplianceTax:
		return Plan{
			Primary: []Step{portfolioStep(token), transactionStep(token, "")},
			Then:    []Followup{complianceAlways(), taxFollowup()},
		}

	case classify.PerformanceComplianceActivity:
		symbol := extract.Ticker(query)
		primary := []Step{}
		// 提到具体代码时顺带拉实时行情，结果排最前
		if symbol != "" {
			primary = append(primary, marketStep(symbol))
		}
		primary = append(primary, portfolioStep(token), transactionStep(token, symbol))
		return Plan{Primary: primary, Then: []Followup{complianceAlways()}}

	case classify.Property:
		homeValue, mortgage := propertyFigures(query)
		return Plan{Primary: []Step{{
			Tool: "equity_advisor",
			Args: map[string]any{"home_value": homeValue, "mortgage_balance": mortgage},
		}}}

	case classify.Affordability:
		plan := Plan{
			Primary: []Step{portfolioStep(token)},
			Then:    []Followup{affordabilityFollowup(query)},
		}
		// 查询里带了房价与按揭时，净值测算作为补充视角一起跑
		if homeValue, mortgage := propertyFigures(query); homeValue > 0 && mortgage > 0 {
			plan.Primary = append(plan.Primary, Step{
				Tool: "equity_advisor",
				Args: map[string]any{"home_value": homeValue, "mortgage_balance": mortgage},
			})
		}
		return plan
	}

	// context_followup 与写控制类型不走工具
	return Plan{}
}

func portfolioStep(token string) Step {
	return Step{Tool: "portfolio_analysis", Args: map[string]any{"token": token}}
}

func transactionStep(token, symbol string) Step {
	args := map[string]any{"token": token}
	if symbol != "" {
		args["symbol"] = symbol
	}
	return Step{Tool: "transaction_query", Args: args}
}

func marketStep(symbol string) Step {
	return Step{Tool: "market_data", Args: map[string]any{"symbol": symbol}}
}

// complianceOnLosses 任一持仓浮亏超过 5% 时自动追加合规检查
func complianceOnLosses() Followup {
	return Followup{
		Tool:      "compliance_check",
		DependsOn: "portfolio_analysis",
		When: func(payload map[string]any) bool {
			for _, h := range payloadMaps(payload["holdings"]) {
				if floatOf(h["gain_pct"]) < -5 {
					return true
				}
			}
			return false
		},
		Args: func(payload map[string]any) map[string]any {
			return map[string]any{"portfolio": payload}
		},
	}
}

// complianceAlways 合规类查询必出合规结论：组合拉取失败也照跑，
// 空组合会得到分散度告警而不是沉默
func complianceAlways() Followup {
	return Followup{
		Tool:      "compliance_check",
		DependsOn: "portfolio_analysis",
		Args: func(payload map[string]any) map[string]any {
			return map[string]any{"portfolio": payload}
		},
		OnFailure: map[string]any{"portfolio": map[string]any{}},
	}
}

func taxFollowup() Followup {
	return Followup{
		Tool:      "tax_estimate",
		DependsOn: "transaction_query",
		Args: func(payload map[string]any) map[string]any {
			return map[string]any{"activities": payload["activities"]}
		},
	}
}

func categorizeFollowup() Followup {
	return Followup{
		Tool:      "transaction_categorize",
		DependsOn: "transaction_query",
		Args: func(payload map[string]any) map[string]any {
			return map[string]any{"activities": payload["activities"]}
		},
	}
}

// affordabilityFollowup 用组合市值做购房能力测算；查询里明确提到的
// 大额数字（≥ $25k）当作目标房价
func affordabilityFollowup(query string) Followup {
	var target float64
	for _, m := range extract.MoneyRe.FindAllStringSubmatch(query, -1) {
		if v := extract.Money(m[1]); v >= 25000 {
			target = v
			break
		}
	}
	return Followup{
		Tool:      "affordability_check",
		DependsOn: "portfolio_analysis",
		Args: func(payload map[string]any) map[string]any {
			args := map[string]any{"portfolio_value": summaryValue(payload)}
			if target > 0 {
				args["target_price"] = target
			}
			return args
		},
	}
}

// propertyFigures 取查询里前两个金额：第一个当房价，第二个当按揭余额。
// 低于 1000 的数字（年限、利率）不算金额。
func propertyFigures(query string) (homeValue, mortgage float64) {
	for _, m := range extract.MoneyRe.FindAllStringSubmatch(query, -1) {
		v := extract.Money(m[1])
		if v < 1000 {
			continue
		}
		if homeValue == 0 {
			homeValue = v
			continue
		}
		mortgage = v
		break
	}
	return
}

func summaryValue(payload map[string]any) float64 {
	summary, _ := payload["summary"].(map[string]any)
	if summary == nil {
		return 0
	}
	return floatOf(summary["total_current_value_usd"])
}

func payloadMaps(v any) []map[string]any {
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func floatOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
