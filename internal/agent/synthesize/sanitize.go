package synthesize

import "strings"

const neutralQuery = "Give me a summary of my portfolio performance."

// formatInjectionPhrases 格式/人设注入特征；classify 有一份更宽的
// 对抗词表用于路由，这份只管合成提示词的输入净化
var formatInjectionPhrases = []string{
	"json please", "respond in json", "output json", "in json format",
	"return json", "format json", "as json", "reply in json",
	"respond as", "reply as", "answer as", "output as",
	"speak as", "talk as", "act as", "mode:", `"mode"`,
}

// sanitizeQuery 带注入特征或 JSON 形状的查询替换为中性问题，
// 注入文本永远不进提示词
func sanitizeQuery(query string) string {
	lower := strings.ToLower(strings.TrimSpace(query))
	if strings.HasPrefix(lower, "{") || strings.HasPrefix(lower, "[") {
		return neutralQuery
	}
	for _, p := range formatInjectionPhrases {
		if strings.Contains(lower, p) {
			return neutralQuery
		}
	}
	return query
}

// investAdvicePhrases 买卖建议类提问特征
var investAdvicePhrases = []string{
	"should i buy", "should i sell", "should i invest",
	"should i trade", "should i rebalance", "should i hold",
	"buy more", "sell more",
}

// adviceGuard 建议类提问附加的强制拒绝指令，其余返回空串
func adviceGuard(sanitizedQuery string) string {
	lower := strings.ToLower(sanitizedQuery)
	for _, p := range investAdvicePhrases {
		if strings.Contains(lower, p) {
			return "\n\nCRITICAL: This question asks for investment advice (buy/sell/hold recommendation). " +
				"You MUST NOT say 'you should buy', 'you should sell', 'I recommend buying', " +
				"'I recommend selling', 'buy more', 'sell more', or any equivalent phrasing. " +
				"Only present the data. End your response by saying the decision is entirely the user's."
		}
	}
	return ""
}
