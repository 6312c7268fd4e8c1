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
	"math"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"advisor-platform/internal/runtime/cache"
	"advisor-platform/pkg/metrics"
)

// Quote 行情快照。行情源字段很多，这里只保留工具层用得到的。
type Quote struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name,omitempty"`
	Price          float64 `json:"price"`
	PreviousClose  float64 `json:"previous_close"`
	ChangePct      float64 `json:"change_pct"`
	Currency       string  `json:"currency"`
	Exchange       string  `json:"exchange,omitempty"`
	InstrumentType string  `json:"instrument_type,omitempty"`
}

// QuoteFunc 行情获取函数，测试时注入假实现
type QuoteFunc func(symbol string) (*Quote, error)

// YearStartFunc 年初首个交易日收盘价获取函数
type YearStartFunc func(symbol string) (float64, error)

// QuoteService 带读穿缓存的行情服务。默认走 Yahoo Finance，
// 行情源比组合服务慢，缓存 TTL 要长一些。
type QuoteService struct {
	quoteFn      QuoteFunc
	yearStartFn  YearStartFunc
	store        cache.Cache
	ttl          time.Duration
	fetchTimeout time.Duration
}

// NewQuoteService 创建行情服务。ttl<=0 时默认 30 分钟，单次取数默认 8 秒超时。
func NewQuoteService(store cache.Cache, ttl time.Duration) *QuoteService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &QuoteService{
		quoteFn:      yahooQuote,
		yearStartFn:  yahooYearStart,
		store:        store,
		ttl:          ttl,
		fetchTimeout: 8 * time.Second,
	}
}

// NewQuoteServiceWithFuncs 注入行情函数，测试用
func NewQuoteServiceWithFuncs(store cache.Cache, ttl time.Duration, q QuoteFunc, y YearStartFunc) *QuoteService {
	s := NewQuoteService(store, ttl)
	if q != nil {
		s.quoteFn = q
	}
	if y != nil {
		s.yearStartFn = y
	}
	return s
}

// Quote 获取单个代码的当前行情，命中缓存直接返回。
func (s *QuoteService) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is empty")
	}
	key := "quote:" + symbol
	if s.store != nil {
		if raw, ok := s.store.Get(ctx, key); ok {
			var q Quote
			if json.Unmarshal(raw, &q) == nil {
				metrics.CacheHitTotal.WithLabelValues("quotes", "hit").Inc()
				return &q, nil
			}
		}
		metrics.CacheHitTotal.WithLabelValues("quotes", "miss").Inc()
	}
	q, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if raw, err := json.Marshal(q); err == nil {
			s.store.Set(ctx, key, raw, s.ttl)
		}
	}
	return q, nil
}

// YearStartPrice 获取年初首个交易日收盘价，用于 YTD 口径。
func (s *QuoteService) YearStartPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	key := "ytdstart:" + symbol
	if s.store != nil {
		if raw, ok := s.store.Get(ctx, key); ok {
			var p float64
			if json.Unmarshal(raw, &p) == nil {
				metrics.CacheHitTotal.WithLabelValues("quotes", "hit").Inc()
				return p, nil
			}
		}
		metrics.CacheHitTotal.WithLabelValues("quotes", "miss").Inc()
	}
	p, err := s.fetchYearStart(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if s.store != nil {
		if raw, err := json.Marshal(p); err == nil {
			s.store.Set(ctx, key, raw, s.ttl)
		}
	}
	return p, nil
}

// fetchQuote 行情客户端不接收 context，超时只能在外层兜：
// 后台取数，超时或取消就放弃等待，慢请求不能拖住整个并发批次。
func (s *QuoteService) fetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	type result struct {
		q   *Quote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		q, err := s.quoteFn(symbol)
		ch <- result{q, err}
	}()
	timer := time.NewTimer(s.fetchTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.q, r.err
	case <-timer.C:
		return nil, fmt.Errorf("quote for %s: %w", symbol, context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchYearStart 同 fetchQuote，对历史收盘价查询兜超时
func (s *QuoteService) fetchYearStart(ctx context.Context, symbol string) (float64, error) {
	type result struct {
		p   float64
		err error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := s.yearStartFn(symbol)
		ch <- result{p, err}
	}()
	timer := time.NewTimer(s.fetchTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.p, r.err
	case <-timer.C:
		return 0, fmt.Errorf("year-start price for %s: %w", symbol, context.DeadlineExceeded)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// yahooQuote Yahoo Finance 实时行情
func yahooQuote(symbol string) (*Quote, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	if q == nil || q.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}
	out := &Quote{
		Symbol:         symbol,
		Name:           q.ShortName,
		Price:          q.RegularMarketPrice,
		PreviousClose:  q.RegularMarketPreviousClose,
		Currency:       q.CurrencyID,
		Exchange:       q.FullExchangeName,
		InstrumentType: string(q.QuoteType),
	}
	if out.PreviousClose != 0 {
		out.ChangePct = round2((out.Price - out.PreviousClose) / out.PreviousClose * 100)
	}
	return out, nil
}

// yahooYearStart 取当年 1 月前两周内的首个收盘价
func yahooYearStart(symbol string) (float64, error) {
	start := time.Date(time.Now().UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 14)
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})
	for iter.Next() {
		bar := iter.Bar()
		if c, _ := bar.Close.Float64(); c > 0 {
			return c, nil
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("fetch year-start price for %s: %w", symbol, err)
	}
	return 0, fmt.Errorf("no year-start close for %s", symbol)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
