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

package synthesize

import (
	"fmt"
	"regexp"
	"strings"

	"advisor-platform/internal/tool"
	"advisor-platform/pkg/moneyfmt"
)

const advisoryFooter = "\n\n---\n" +
	"⚠️ **This question involves a potential investment decision.** " +
	"I've presented the relevant data above, but I cannot advise on buy/sell decisions. " +
	"Any action you take is entirely your own decision. " +
	"Would you like me to show you any additional data to help you think this through?"

var (
	fencedJSONRe  = regexp.MustCompile("```(?:json|JSON)?\\s*\\{")
	fencedBlockRe = regexp.MustCompile("```(?:json|JSON)?[\\s\\S]*?```")
)

// stripJSONBlocks 提示词守不住时的最后防线：LLM 仍吐出 JSON 代码块
// 就整段剥掉，剥完没剩下像样内容则换成完整的兜底文案
func stripJSONBlocks(answer string) string {
	if !fencedJSONRe.MatchString(answer) {
		return answer
	}
	stripped := strings.TrimSpace(fencedBlockRe.ReplaceAllString(answer, ""))
	if len(stripped) < 80 {
		return "I can only share portfolio data in conversational format, not as raw JSON. " +
			"Please ask me a specific question about your portfolio — for example: " +
			"'What is my total return?' or 'Am I over-concentrated?'"
	}
	return "I can only share portfolio data in conversational format, not as raw JSON. " +
		"Here's a summary instead:\n\n" + stripped
}

// writeBanner 写入成功的回答置顶确认横幅
func writeBanner(results []tool.Result) string {
	for _, r := range results {
		if !r.Success || !strings.HasPrefix(r.ToolName, "record_") || r.Payload == nil {
			continue
		}
		if r.Payload["status"] != "recorded" {
			continue
		}
		txType := textOr(r.Payload["type"], "Transaction")
		symbol := textOr(r.Payload["symbol"], "")
		banner := fmt.Sprintf("✅ **Transaction recorded**: %s %s %s",
			txType, moneyfmt.Format(numOf(r.Payload["quantity"]), 0), symbol)
		if price := numOf(r.Payload["unit_price"]); price > 0 {
			banner += " at " + moneyfmt.Dollars(price, 2)
		}
		return banner + "\n\n"
	}
	return ""
}

func textOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func numOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
