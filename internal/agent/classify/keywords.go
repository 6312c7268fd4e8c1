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

package classify

import "regexp"

// 确认 / 取消回复。仅在存在待确认写操作时生效，精确匹配整句。
var (
	confirmReplies = map[string]bool{
		"yes": true, "y": true, "confirm": true, "ok": true,
		"yes please": true, "sure": true, "proceed": true,
	}
	cancelReplies = map[string]bool{
		"no": true, "n": true, "cancel": true, "abort": true,
		"stop": true, "never mind": true, "nevermind": true,
	}
)

// adversarialPhrases 越狱与格式注入措辞。命中后按普通绩效问题处理，
// 由合成层用固定口径回应，而不是拒绝服务。
var adversarialPhrases = []string{
	"ignore your rules", "ignore your instructions", "pretend you have no rules",
	"you are now", "act as if", "forget your guidelines", "disregard your",
	"override your", "bypass your", "tell me to buy", "tell me to sell",
	"force you to", "make you", "new persona", "unrestricted ai",
	"json please", "respond in json", "output json", "in json format",
	"return json", "format json", "as json", "reply in json",
	"respond as", "reply as", "answer as", "output as",
	"speak as", "talk as", "act as", "mode:", "\"mode\":",
}

// destructiveRe 删除类请求一律拒绝。用词边界避免误伤 "dropped"、"removed" 等。
var destructiveRe = regexp.MustCompile(`\b(?:delete|remove|wipe|erase|clear all|drop)\b`)

// 写意图匹配。"buy" 同时出现在 activity 关键词里，必须先区分
// 记账意图和查历史意图：动词后跟短代码词 → 记账。
var (
	buyWriteRe  = regexp.MustCompile(`(?i)\b(?:buy|purchase|bought)\b.{0,40}\b[a-z]{1,5}\b`)
	sellWriteRe = regexp.MustCompile(`(?i)\b(?:sell|sold)\b.{0,40}\b[a-z]{1,5}\b`)
	shouldRe    = regexp.MustCompile(`\bshould\b`)

	// 假设、反驳、纠错措辞说明用户不是在下指令
	nonCommandRes = []*regexp.Regexp{
		regexp.MustCompile(`\bwhat\s+if\b`),
		regexp.MustCompile(`\bif\s+i\b`),
		regexp.MustCompile(`\bif\s+only\b`),
		regexp.MustCompile(`\bi\s+think\s+you\b`),
		regexp.MustCompile(`\byou\s+are\s+wrong\b`),
		regexp.MustCompile(`\byou'?re\s+wrong\b`),
		regexp.MustCompile(`\bwrong\b`),
		regexp.MustCompile(`\bactually\b`),
		regexp.MustCompile(`\bi\s+was\b`),
		regexp.MustCompile(`\bthat'?s\s+not\b`),
		regexp.MustCompile(`\bthat\s+is\s+not\b`),
	}

	readGuardRe = regexp.MustCompile(`\b(?:show|history|my|how|past|previous)\b`)

	dividendWriteRe    = regexp.MustCompile(`\b(?:record|add|log)\b.{0,60}\b(?:dividend|interest)\b`)
	dividendOfRe       = regexp.MustCompile(`\bdividend\s+of\s+\$?\d+`)
	cashWriteRe        = regexp.MustCompile(`\b(?:add|deposit)\b.{0,30}\b(?:cash|dollar|usd|\$\d)`)
	transactionWriteRe = regexp.MustCompile(`\b(?:add|record|log)\s+(?:a\s+)?(?:transaction|trade|order)\b`)
)

// advicePhrases 投资建议类问题。给真实数据但拒绝给建议，走合规路径。
// 必须先于 activity 关键词命中 "sell"/"buy"。
var advicePhrases = []string{
	"should i sell", "should i buy", "should i invest",
	"should i trade", "should i rebalance", "should i hold",
}

// followupPhrases 指代上一轮结果的追问，只在有历史时生效。
var followupPhrases = []string{
	"how much of my portfolio is that",
	"what percentage is that",
	"what percent is that",
	"how much is that",
	"what is that as a",
	"show me more about it",
	"tell me more about that",
	"and what about that",
	"how does that compare",
}

// fullPositionPhrases 单一持仓的全面分析，需要同时解析出代码。
var fullPositionPhrases = []string{
	"everything about", "full analysis", "full position", "tell me everything",
}

var categorizeKeywords = []string{
	"categorize", "pattern", "breakdown", "how often",
	"trading style", "categorisation", "categorization",
}

// equityUnlockKeywords 房屋净值咨询
var equityUnlockKeywords = []string{
	"home equity", "refinance", "cash out",
	"equity options", "what should i do with my equity",
	"what to do with my equity", "rental property from equity",
}

// affordabilityKeywords 组合购房能力测算
var affordabilityKeywords = []string{
	"can my portfolio buy", "can i afford", "down payment",
	"afford a house", "afford a home", "buy a house with my portfolio",
	"portfolio down payment", "how much house can i afford",
}

// 读路径关键词族
var (
	performanceKeywords = []string{
		"return", "performance", "gain", "loss", "ytd", "portfolio",
		"value", "how am i doing", "worth", "1y", "1-year", "max",
		"best", "worst", "unrealized", "summary", "overview",
	}
	activityKeywords = []string{
		"trade", "transaction", "buy", "sell", "history", "activity",
		"show me", "recent", "order", "purchase", "bought", "sold",
		"dividend", "fee",
	}
	taxKeywords = []string{
		"tax", "capital gain", "harvest", "owe", "liability",
		"1099", "realized", "loss harvest",
	}
	complianceKeywords = []string{
		"concentrated", "concentration", "diversif", "risk", "allocation",
		"compliance", "overweight", "balanced", "spread", "alert", "warning",
	}
	marketKeywords = []string{
		"price", "current price", "today", "market", "stock price",
		"trading at", "trading", "quote",
	}
	overviewKeywords = []string{
		"what's hot", "whats hot", "hot today", "market overview",
		"market today", "trending", "top movers", "biggest movers",
		"market news", "how is the market", "how are markets",
		"market doing", "market conditions",
	}
)
