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

// Package extract 从自由文本查询中抽取结构化字段（代码、数量、价格、日期、
// 费用、金额）。全部基于确定性正则与词表，不做任何 I/O。
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// knownTickers 高频标的白名单，优先于启发式匹配
var knownTickers = map[string]bool{
	"AAPL": true, "MSFT": true, "NVDA": true, "TSLA": true, "GOOGL": true,
	"GOOG": true, "AMZN": true, "META": true, "NFLX": true, "SPY": true,
	"QQQ": true, "BRK": true, "BRKB": true,
}

// tickerStopwords 形如 ticker 但不是 ticker 的常见英文词
var tickerStopwords = map[string]bool{
	// 冠词、代词、介词
	"I": true, "A": true, "MY": true, "AM": true, "IS": true, "IN": true,
	"OF": true, "DO": true, "THE": true, "FOR": true, "AND": true, "OR": true,
	"AT": true, "IT": true, "ME": true, "HOW": true, "WHAT": true,
	"SHOW": true, "GET": true, "CAN": true, "TO": true, "ON": true,
	"BE": true, "BY": true, "US": true, "UP": true, "AN": true,
	// 动作词
	"BUY": true, "SELL": true, "ADD": true, "YES": true, "NO": true,
	"TELL": true,
	// 易误判的常见英文词
	"IF": true, "THINK": true, "HALF": true, "THAT": true, "ONLY": true,
	"WRONG": true, "JUST": true, "SOLD": true, "BOUGHT": true, "WERE": true,
	"WAS": true, "HAD": true, "HAS": true, "NOT": true, "BUT": true,
	"SO": true, "ALL": true, "WHEN": true, "THEN": true, "EACH": true,
	"ANY": true, "BOTH": true, "ALSO": true, "INTO": true, "OVER": true,
	"OUT": true, "BACK": true, "EVEN": true, "SAME": true, "SUCH": true,
	"AFTER": true, "SAID": true, "THAN": true, "THEM": true, "THEY": true,
	"THIS": true, "WITH": true, "YOUR": true, "FROM": true, "BEEN": true,
	"HAVE": true, "WILL": true, "ABOUT": true, "WHICH": true, "THEIR": true,
	"THERE": true, "WHERE": true, "THESE": true, "WOULD": true, "DOING": true,
	"COULD": true, "SHOULD": true, "MIGHT": true, "SHALL": true,
	"SINCE": true, "WHILE": true, "STILL": true, "AGAIN": true, "THOSE": true,
	"OTHER": true,
}

var (
	quantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s+shares?`),
		regexp.MustCompile(`(?i)(?:buy|sell|purchase|record)\s+(\d+(?:,\d{3})*(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s+(?:units?|stocks?)`),
	}

	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$(\d+(?:,\d{3})*(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)(?:at|@|price(?:\s+of)?|for)\s+\$?(\d+(?:,\d{3})*(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s+(?:per\s+share|each)`),
	}

	isoDateRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	usDateRe  = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)

	feeRe = regexp.MustCompile(`(?i)fee\s+(?:of\s+)?\$?(\d+(?:\.\d+)?)`)

	dollarAmountRe = regexp.MustCompile(`\$(\d+(?:,\d{3})*(?:\.\d+)?)`)
	wordAmountRe   = regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s*(?:dollars?|usd|cash)`)

	dividendOfRe     = regexp.MustCompile(`(?i)dividend\s+of\s+\$?(\d+(?:\.\d+)?)`)
	dollarDividendRe = regexp.MustCompile(`(?i)\$(\d+(?:\.\d+)?)\s+dividend`)

	nonUpperRe = regexp.MustCompile(`[^A-Z]`)
)

// Ticker 从查询中抽取最可能的股票代码（1-5 个大写字母）。
// 优先匹配白名单，再做启发式过滤；找不到返回空串。
func Ticker(query string) string {
	words := strings.Fields(strings.ToUpper(query))

	for _, word := range words {
		clean := nonUpperRe.ReplaceAllString(word, "")
		if knownTickers[clean] {
			return clean
		}
	}

	for _, word := range words {
		clean := nonUpperRe.ReplaceAllString(word, "")
		if len(clean) >= 1 && len(clean) <= 5 && !tickerStopwords[clean] {
			return clean
		}
	}

	return ""
}

// TickerOr 同 Ticker，找不到时返回 fallback（行情类查询传 "SPY"）
func TickerOr(query, fallback string) string {
	if t := Ticker(query); t != "" {
		return t
	}
	return fallback
}

// Quantity 抽取股数/份数
func Quantity(query string) (float64, bool) {
	return firstNumber(query, quantityPatterns)
}

// Price 抽取显式价格
func Price(query string) (float64, bool) {
	return firstNumber(query, pricePatterns)
}

// Date 抽取显式日期，统一为 YYYY-MM-DD；支持 ISO 与 MM/DD/YYYY 两种写法
func Date(query string) (string, bool) {
	if m := isoDateRe.FindStringSubmatch(query); m != nil {
		return m[1], true
	}
	if m := usDateRe.FindStringSubmatch(query); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return m[3] + "-" + pad2(month) + "-" + pad2(day), true
	}
	return "", false
}

// Fee 抽取手续费，未提及时为 0
func Fee(query string) float64 {
	if m := feeRe.FindStringSubmatch(query); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// Amount 抽取现金金额（入金等场景）
func Amount(query string) (float64, bool) {
	if m := dollarAmountRe.FindStringSubmatch(query); m != nil {
		return parseNumber(m[1])
	}
	if m := wordAmountRe.FindStringSubmatch(query); m != nil {
		return parseNumber(m[1])
	}
	return 0, false
}

// DividendAmount 抽取分红金额
func DividendAmount(query string) (float64, bool) {
	if m := dividendOfRe.FindStringSubmatch(query); m != nil {
		return parseNumber(m[1])
	}
	if m := dollarDividendRe.FindStringSubmatch(query); m != nil {
		return parseNumber(m[1])
	}
	return 0, false
}

// Money 解析带单位缩写的金额："450k" → 450000，"1.2m" → 1200000，
// "450,000" → 450000。解析失败返回 0。
func Money(raw string) float64 {
	raw = strings.ReplaceAll(raw, ",", "")
	multiplier := 1.0
	if len(raw) > 0 {
		switch raw[len(raw)-1] {
		case 'k', 'K':
			multiplier = 1_000
			raw = raw[:len(raw)-1]
		case 'm', 'M':
			multiplier = 1_000_000
			raw = raw[:len(raw)-1]
		}
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return amount * multiplier
}

// MoneyRe 匹配带可选 $ 前缀与 k/m 后缀的金额，供房产类查询复用
var MoneyRe = regexp.MustCompile(`(?i)\$?([\d,]+(?:\.\d+)?[km]?)`)

func firstNumber(query string, patterns []*regexp.Regexp) (float64, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(query); m != nil {
			return parseNumber(m[1])
		}
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
