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

package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LLMLimitConfig LLM Provider 限流配置
type LLMLimitConfig struct {
	TokensPerMinute   int     `yaml:"tokens_per_minute"`   // 每分钟 token 配额
	RequestsPerMinute float64 `yaml:"requests_per_minute"` // 每分钟请求数
	MaxConcurrent     int     `yaml:"max_concurrent"`      // 最大并发请求数
}

// ProviderStats 单个 provider 的用量与限流统计，/api/v1/costs 直接返回
type ProviderStats struct {
	Provider          string  `json:"provider"`
	RequestsTotal     int64   `json:"requests_total"`
	TokensTotal       int64   `json:"tokens_total"`
	TokensUsedMinute  int     `json:"tokens_used_minute"`
	TokensPerMinute   int     `json:"tokens_per_minute"`
	RequestsPerMinute float64 `json:"requests_per_minute"`
	MaxConcurrent     int     `json:"max_concurrent"`
	CurrentConcurrent int     `json:"current_concurrent"`
}

// LLMRateLimiter LLM Provider 维度的限流器，token budget + RPS + 并发三层控制，
// 并累计用量供成本统计
type LLMRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*llmLimiter // provider -> limiter
	defaults *LLMLimitConfig
}

type llmLimiter struct {
	requestLimiter *rate.Limiter // RPS 限流器
	tokenLimiter   *rate.Limiter // Token 限流器
	semaphore      chan struct{} // 并发控制
	config         LLMLimitConfig

	// 用量统计
	mu               sync.Mutex
	requestsTotal    int64
	tokensTotal      int64
	tokensUsedMinute int
	minuteStart      time.Time
}

// NewLLMRateLimiter 创建 LLM 限流器
func NewLLMRateLimiter(configs map[string]LLMLimitConfig, defaults *LLMLimitConfig) *LLMRateLimiter {
	if defaults == nil {
		defaults = &LLMLimitConfig{
			TokensPerMinute:   90000, // 默认每分钟 90K tokens
			RequestsPerMinute: 3500,  // 默认每分钟 3500 次请求
			MaxConcurrent:     50,    // 默认最大并发 50
		}
	}

	limiter := &LLMRateLimiter{
		limiters: make(map[string]*llmLimiter),
		defaults: defaults,
	}

	for provider, config := range configs {
		limiter.addProviderLimiter(provider, config)
	}

	return limiter
}

// addProviderLimiter 添加 provider 限流器
func (l *LLMRateLimiter) addProviderLimiter(provider string, config LLMLimitConfig) {
	limiter := &llmLimiter{
		config:      config,
		minuteStart: time.Now(),
	}

	// RPS 限流器（转换为每秒，burst = 2 秒的配额）
	if config.RequestsPerMinute > 0 {
		rps := config.RequestsPerMinute / 60.0
		burst := int(rps * 2)
		if burst < 1 {
			burst = 1
		}
		limiter.requestLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	// Token 限流器（转换为每秒，burst = 2 秒的配额）
	if config.TokensPerMinute > 0 {
		tps := float64(config.TokensPerMinute) / 60.0
		burst := config.TokensPerMinute / 60 * 2
		if burst < 1 {
			burst = 1
		}
		limiter.tokenLimiter = rate.NewLimiter(rate.Limit(tps), burst)
	}

	// 并发控制
	if config.MaxConcurrent > 0 {
		limiter.semaphore = make(chan struct{}, config.MaxConcurrent)
	}

	l.mu.Lock()
	l.limiters[provider] = limiter
	l.mu.Unlock()
}

func (l *LLMRateLimiter) limiterFor(provider string) *llmLimiter {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()
	if exists {
		return limiter
	}
	// 未配置的 provider 用默认配置补建
	l.addProviderLimiter(provider, *l.defaults)
	l.mu.RLock()
	limiter = l.limiters[provider]
	l.mu.RUnlock()
	return limiter
}

// Wait 等待获取执行许可（阻塞直到可以执行）
func (l *LLMRateLimiter) Wait(ctx context.Context, provider string, estimatedTokens int) error {
	limiter := l.limiterFor(provider)

	// Request 限流
	if limiter.requestLimiter != nil {
		if err := limiter.requestLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit wait failed: %w", err)
		}
	}

	// Token budget 限流（预扣 tokens）
	if limiter.tokenLimiter != nil && estimatedTokens > 0 {
		if err := limiter.tokenLimiter.WaitN(ctx, estimatedTokens); err != nil {
			return fmt.Errorf("token budget wait failed: %w", err)
		}
	}

	// 并发限流
	if limiter.semaphore != nil {
		select {
		case limiter.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	limiter.mu.Lock()
	limiter.requestsTotal++
	now := time.Now()
	if now.Sub(limiter.minuteStart) > time.Minute {
		limiter.tokensUsedMinute = estimatedTokens
		limiter.minuteStart = now
	} else {
		limiter.tokensUsedMinute += estimatedTokens
	}
	limiter.mu.Unlock()

	return nil
}

// Release 释放并发 slot（在 LLM 调用完成后调用）
func (l *LLMRateLimiter) Release(provider string) {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if exists && limiter.semaphore != nil {
		select {
		case <-limiter.semaphore:
		default:
			// semaphore 已空，无需释放
		}
	}
}

// RecordTokenUsage 记录实际使用的 tokens（累计进成本统计）
func (l *LLMRateLimiter) RecordTokenUsage(provider string, actualTokens int) {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if !exists || actualTokens <= 0 {
		return
	}

	limiter.mu.Lock()
	limiter.tokensTotal += int64(actualTokens)
	limiter.mu.Unlock()
}

// Stats 获取单个 provider 的限流与用量统计
func (l *LLMRateLimiter) Stats(provider string) (ProviderStats, bool) {
	l.mu.RLock()
	limiter, exists := l.limiters[provider]
	l.mu.RUnlock()

	if !exists {
		return ProviderStats{}, false
	}

	limiter.mu.Lock()
	stats := ProviderStats{
		Provider:          provider,
		RequestsTotal:     limiter.requestsTotal,
		TokensTotal:       limiter.tokensTotal,
		TokensUsedMinute:  limiter.tokensUsedMinute,
		TokensPerMinute:   limiter.config.TokensPerMinute,
		RequestsPerMinute: limiter.config.RequestsPerMinute,
		MaxConcurrent:     limiter.config.MaxConcurrent,
	}
	limiter.mu.Unlock()

	if limiter.semaphore != nil {
		stats.CurrentConcurrent = len(limiter.semaphore)
	}
	return stats, true
}

// AllStats 获取全部 provider 的统计，按 provider 名稳定排序由调用方处理
func (l *LLMRateLimiter) AllStats() []ProviderStats {
	l.mu.RLock()
	providers := make([]string, 0, len(l.limiters))
	for p := range l.limiters {
		providers = append(providers, p)
	}
	l.mu.RUnlock()

	out := make([]ProviderStats, 0, len(providers))
	for _, p := range providers {
		if s, ok := l.Stats(p); ok {
			out = append(out, s)
		}
	}
	return out
}
