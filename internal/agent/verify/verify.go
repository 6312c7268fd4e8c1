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

// Package verify 对工具结果做结构化置信度评估。
// 不核查语义，只看结构信号：调了几个工具、几个失败、有多少数值点。
package verify

import (
	"encoding/json"
	"regexp"
	"strings"

	"advisor-platform/internal/tool"
)

// Outcome 评估结论
type Outcome string

const (
	Pass     Outcome = "pass"
	Flag     Outcome = "flag"
	Escalate Outcome = "escalate"
)

// Report 单次交叉核对的完整结果，随响应返回供排查。
type Report struct {
	Verified             bool     `json:"verified"`
	ToolCount            int      `json:"tool_count"`
	FailedTools          []string `json:"failed_tools"`
	SuccessfulTools      []string `json:"successful_tools"`
	ConfidenceAdjustment float64  `json:"confidence_adjustment"`
	BaseConfidence       float64  `json:"base_confidence"`
	Outcome              Outcome  `json:"outcome"`
	NumericDataPoints    int      `json:"numeric_data_points"`
}

var numberRe = regexp.MustCompile(`\$?[\d,]+\.?\d*%?`)

// Check 交叉核对工具结果，统计成功/失败与数值数据点。
// 每个失败的工具扣减 0.15 置信度。
func Check(results []tool.Result) Report {
	rep := Report{
		ToolCount:       len(results),
		FailedTools:     []string{},
		SuccessfulTools: []string{},
	}
	for _, r := range results {
		if r.Success {
			rep.SuccessfulTools = append(rep.SuccessfulTools, r.ToolName)
		} else {
			rep.FailedTools = append(rep.FailedTools, r.ToolName)
		}
	}
	failed := len(rep.FailedTools)
	rep.Verified = failed == 0
	rep.ConfidenceAdjustment = -0.15 * float64(failed)

	switch {
	case failed == 0:
		rep.BaseConfidence = 0.9
		rep.Outcome = Pass
	case failed < rep.ToolCount:
		rep.BaseConfidence = maxf(0.4, 0.9+rep.ConfidenceAdjustment)
		rep.Outcome = Flag
	default:
		rep.BaseConfidence = 0.1
		rep.Outcome = Escalate
	}

	if raw, err := json.Marshal(results); err == nil {
		rep.NumericDataPoints = len(numberRe.FindAll(raw, -1))
	}
	return rep
}

// Score 计算本轮的最终置信度与结论。
// 没有任何工具结果时给 0.5 并标记 flag；全部成功给 0.9；
// 否则每个失败扣 0.15，下限 0.1。阈值：>=0.7 pass，>=0.4 flag，其余 escalate。
func Score(results []tool.Result) (float64, Outcome) {
	if len(results) == 0 {
		return 0.5, Flag
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed == 0 {
		return 0.9, Pass
	}
	confidence := maxf(0.1, 0.9-float64(failed)*0.15)
	switch {
	case confidence >= 0.7:
		return confidence, Pass
	case confidence >= 0.4:
		return confidence, Flag
	default:
		return confidence, Escalate
	}
}

// advisoryPhrases 买卖决策类问题。评估阶段标记后，合成阶段在回答末尾附加免责段。
var advisoryPhrases = []string{
	"should i sell", "should i buy", "should i invest", "should i trade",
}

// AdvisoryQuery 是否为买卖决策类问题
func AdvisoryQuery(query string) bool {
	q := strings.ToLower(query)
	for _, p := range advisoryPhrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
