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

	"advisor-platform/internal/tool"
)

// 合规规则阈值
const (
	concentrationThresholdPct = 20.0  // 单一持仓占比上限
	significantLossPct        = -15.0 // 单一持仓浮亏告警线
	minHoldingsForDiversity   = 5     // 低于此持仓数提示分散度不足
)

// ComplianceTool 本地规则引擎，对组合数据跑合规检查，不调外部接口。
// 输入是 portfolio_analysis 的结果载荷。
type ComplianceTool struct{}

// NewComplianceTool 创建合规检查工具
func NewComplianceTool() *ComplianceTool { return &ComplianceTool{} }

// Name 实现 tool.Tool
func (t *ComplianceTool) Name() string { return "compliance_check" }

// Description 实现 tool.Tool
func (t *ComplianceTool) Description() string {
	return "对持仓跑合规规则：集中度超 20%、单一持仓浮亏超 15%、持仓数不足 5。"
}

// Schema 实现 tool.Tool
func (t *ComplianceTool) Schema() tool.Schema {
	return tool.Schema{
		Type:        "object",
		Description: "合规检查参数",
		Properties: map[string]tool.SchemaProperty{
			"portfolio": {Type: "object", Description: "portfolio_analysis 的结果载荷"},
		},
		Required: []string{"portfolio"},
	}
}

// Execute 实现 tool.Tool
func (t *ComplianceTool) Execute(ctx context.Context, args map[string]any) tool.Result {
	portfolio, _ := args["portfolio"].(map[string]any)
	if portfolio == nil {
		return tool.Failure(t.Name(), tool.CodeBadInput, "compliance check needs portfolio data")
	}
	holdings := asMaps(portfolio["holdings"])

	warnings := make([]map[string]any, 0)
	for _, h := range holdings {
		symbol := toString(h["symbol"])
		if symbol == "" {
			symbol = "UNKNOWN"
		}
		// allocation_pct 与 gain_pct 已经是百分比数值（45.2 表示 45.2%）
		alloc := toFloat(h["allocation_pct"])
		gainPct := toFloat(h["gain_pct"])

		if alloc > concentrationThresholdPct {
			warnings = append(warnings, map[string]any{
				"type":       "CONCENTRATION_RISK",
				"severity":   "HIGH",
				"symbol":     symbol,
				"allocation": fmt.Sprintf("%.1f%%", alloc),
				"message": fmt.Sprintf(
					"%s represents %.1f%% of your portfolio — exceeds the %.0f%% concentration threshold.",
					symbol, alloc, concentrationThresholdPct),
			})
		}
		if gainPct < significantLossPct {
			warnings = append(warnings, map[string]any{
				"type":     "SIGNIFICANT_LOSS",
				"severity": "MEDIUM",
				"symbol":   symbol,
				"loss_pct": fmt.Sprintf("%.1f%%", gainPct),
				"message": fmt.Sprintf(
					"%s is down %.1f%% — consider reviewing for tax-loss harvesting opportunities.",
					symbol, -gainPct),
			})
		}
	}
	if len(holdings) < minHoldingsForDiversity {
		warnings = append(warnings, map[string]any{
			"type":          "LOW_DIVERSIFICATION",
			"severity":      "LOW",
			"holding_count": len(holdings),
			"message": fmt.Sprintf(
				"Portfolio has only %d holding(s). Consider diversifying across more positions and asset classes.",
				len(holdings)),
		})
	}

	status := "CLEAR"
	if len(warnings) > 0 {
		status = "FLAGGED"
	}
	return tool.Success(t.Name(), map[string]any{
		"warnings":          warnings,
		"warning_count":     len(warnings),
		"overall_status":    status,
		"holdings_analyzed": len(holdings),
	})
}
