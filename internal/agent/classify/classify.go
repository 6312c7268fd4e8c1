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

// Package classify 把自由文本查询映射为查询类型。
//
// 分类器是一张按顺序求值的 (谓词, 查询类型) 规则表，命中即返回。
// 规则顺序承载语义：破坏性请求先于写意图，写意图先于建议类请求，
// 关键词矩阵兜底。分类器是纯函数，不做任何 I/O。
package classify

import (
	"regexp"
	"strings"

	"advisor-platform/internal/agent/extract"
)

// Input 分类器的完整输入。除查询文本外还需要会话侧的两个标志：
// 是否存在待确认的写操作、是否存在历史轮次。
type Input struct {
	Query           string
	HasPendingWrite bool
	HasHistory      bool
}

// Classify 按规则表顺序求值，返回第一条命中规则的查询类型。
// 空查询由引擎在进入分类器之前短路处理。
func Classify(in Input) QueryType {
	f := newFeatures(in)
	for _, r := range rules {
		if r.match(f) {
			return r.qtype
		}
	}
	return Performance
}

// rule 规则表的一行。name 仅用于测试与排查。
type rule struct {
	name  string
	match func(*features) bool
	qtype QueryType
}

// rules 按优先级排列。前面的规则命中后不再看后面的。
var rules = []rule{
	{"confirm_reply", func(f *features) bool { return f.in.HasPendingWrite && confirmReplies[f.query] }, WriteConfirmed},
	{"cancel_reply", func(f *features) bool { return f.in.HasPendingWrite && cancelReplies[f.query] }, WriteCancelled},
	{"adversarial", func(f *features) bool { return containsAny(f.query, adversarialPhrases) }, Performance},
	{"json_shaped", func(f *features) bool { return jsonShaped(f.query) }, Performance},
	{"destructive", func(f *features) bool { return destructiveRe.MatchString(f.query) }, WriteRefused},
	{"buy_write", func(f *features) bool { return f.buyWrite }, Buy},
	{"sell_write", func(f *features) bool { return f.sellWrite }, Sell},
	{"dividend_write", func(f *features) bool { return f.dividendWrite }, Dividend},
	{"cash_write", func(f *features) bool { return f.cashWrite }, Cash},
	{"transaction_write", func(f *features) bool { return f.transactionWrite }, Transaction},
	{"investment_advice", func(f *features) bool { return containsAny(f.query, advicePhrases) }, Compliance},
	{"context_followup", func(f *features) bool { return f.in.HasHistory && containsAny(f.query, followupPhrases) }, ContextFollowup},
	{"full_position", func(f *features) bool {
		return containsAny(f.query, fullPositionPhrases) && extract.Ticker(f.in.Query) != ""
	}, PerformanceComplianceActivity},
	{"categorize", func(f *features) bool { return containsAny(f.query, categorizeKeywords) }, Categorize},
	{"home_equity", func(f *features) bool { return containsAny(f.query, equityUnlockKeywords) }, Property},
	{"affordability", func(f *features) bool { return containsAny(f.query, affordabilityKeywords) }, Affordability},
	{"tax_with_compliance", func(f *features) bool { return f.tax && f.compliance }, ComplianceTax},
	{"tax", func(f *features) bool { return f.tax }, Tax},
	{"market_overview", func(f *features) bool { return containsAny(f.query, overviewKeywords) }, MarketOverview},
	{"broad_portfolio", func(f *features) bool {
		return f.categories() >= 3 || (f.performance && f.compliance && f.activity)
	}, PerformanceComplianceActivity},
	{"performance_market", func(f *features) bool { return f.performance && f.market }, PerformanceMarket},
	{"activity_market", func(f *features) bool { return f.activity && f.market }, ActivityMarket},
	{"activity_compliance", func(f *features) bool { return f.activity && f.compliance }, ActivityCompliance},
	{"compliance", func(f *features) bool { return f.compliance }, Compliance},
	{"market", func(f *features) bool { return f.market }, Market},
	{"activity", func(f *features) bool { return f.activity }, Activity},
	{"performance", func(f *features) bool { return f.performance }, Performance},
	{"default", func(f *features) bool { return true }, Performance},
}

// features 对一次查询预计算所有规则共享的判定结果。
type features struct {
	in    Input
	query string // 小写、去首尾空白

	performance bool
	activity    bool
	compliance  bool
	market      bool
	tax         bool

	buyWrite         bool
	sellWrite        bool
	dividendWrite    bool
	cashWrite        bool
	transactionWrite bool
}

func newFeatures(in Input) *features {
	f := &features{
		in:    in,
		query: strings.ToLower(strings.TrimSpace(in.Query)),
	}
	f.performance = containsAny(f.query, performanceKeywords)
	f.activity = containsAny(f.query, activityKeywords)
	f.compliance = containsAny(f.query, complianceKeywords)
	f.market = containsAny(f.query, marketKeywords)
	f.tax = containsAny(f.query, taxKeywords)

	// 买/卖意图要求动词后 40 个字符内出现疑似代码的短词，
	// 且整句不能是咨询（should）、假设、反驳或读类措辞。
	// 其余写意图（分红/现金/通用交易）不受这组守卫影响。
	command := !shouldRe.MatchString(f.query) && !anyMatch(nonCommandRes, f.query)
	readLike := readGuardRe.MatchString(f.query)
	if command && !readLike {
		f.buyWrite = buyWriteRe.MatchString(f.query)
		f.sellWrite = sellWriteRe.MatchString(f.query)
	}
	f.dividendWrite = dividendWriteRe.MatchString(f.query) || dividendOfRe.MatchString(f.query)
	f.cashWrite = cashWriteRe.MatchString(f.query)
	f.transactionWrite = transactionWriteRe.MatchString(f.query)
	return f
}

// categories 统计命中的读类关键词族数量（税务不计入矩阵）。
func (f *features) categories() int {
	n := 0
	for _, hit := range []bool{f.performance, f.activity, f.compliance, f.market} {
		if hit {
			n++
		}
	}
	return n
}

// jsonShaped 结构化载荷伪装成自然语言查询时按性能问题兜底
func jsonShaped(query string) bool {
	return strings.HasPrefix(query, "{") || strings.HasPrefix(query, "[")
}

func containsAny(query string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(query, p) {
			return true
		}
	}
	return false
}

func anyMatch(res []*regexp.Regexp, query string) bool {
	for _, re := range res {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}
