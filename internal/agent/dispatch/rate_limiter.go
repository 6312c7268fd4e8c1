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

package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"advisor-platform/pkg/config"
)

// ToolRateLimiter 工具维度的限流器：QPS 令牌桶加并发信号量。
// 未配置的工具首次调用时按默认配置生成限流器。
type ToolRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*toolLimiter
	defaults config.ToolRateLimitConfig
}

type toolLimiter struct {
	rateLimiter *rate.Limiter
	semaphore   chan struct{}
	config      config.ToolRateLimitConfig
}

// NewToolRateLimiter 创建工具限流器
func NewToolRateLimiter(configs map[string]config.ToolRateLimitConfig) *ToolRateLimiter {
	l := &ToolRateLimiter{
		limiters: make(map[string]*toolLimiter),
		defaults: config.ToolRateLimitConfig{QPS: 50, MaxConcurrent: 10, Burst: 50},
	}
	for name, cfg := range configs {
		l.add(name, cfg)
	}
	return l
}

func (l *ToolRateLimiter) add(name string, cfg config.ToolRateLimitConfig) {
	if cfg.Burst == 0 {
		cfg.Burst = int(cfg.QPS)
	}
	tl := &toolLimiter{config: cfg}
	if cfg.QPS > 0 {
		tl.rateLimiter = rate.NewLimiter(rate.Limit(cfg.QPS), cfg.Burst)
	}
	if cfg.MaxConcurrent > 0 {
		tl.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	l.mu.Lock()
	l.limiters[name] = tl
	l.mu.Unlock()
}

func (l *ToolRateLimiter) get(name string) *toolLimiter {
	l.mu.RLock()
	tl, ok := l.limiters[name]
	l.mu.RUnlock()
	if !ok {
		l.add(name, l.defaults)
		l.mu.RLock()
		tl = l.limiters[name]
		l.mu.RUnlock()
	}
	return tl
}

// Wait 阻塞到拿到执行许可；ctx 取消时返回错误
func (l *ToolRateLimiter) Wait(ctx context.Context, name string) error {
	tl := l.get(name)

	if tl.rateLimiter != nil {
		if err := tl.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	if tl.semaphore != nil {
		select {
		case tl.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 归还并发槽位，工具执行完成后调用
func (l *ToolRateLimiter) Release(name string) {
	l.mu.RLock()
	tl, ok := l.limiters[name]
	l.mu.RUnlock()
	if ok && tl.semaphore != nil {
		select {
		case <-tl.semaphore:
		default:
		}
	}
}

// ToolStats 单个工具的限流统计
type ToolStats struct {
	Tool              string  `json:"tool"`
	QPS               float64 `json:"qps"`
	MaxConcurrent     int     `json:"max_concurrent"`
	CurrentConcurrent int     `json:"current_concurrent"`
}

// AllStats 全部工具的限流快照，按工具名排序
func (l *ToolRateLimiter) AllStats() []ToolStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats := make([]ToolStats, 0, len(l.limiters))
	for name, tl := range l.limiters {
		s := ToolStats{
			Tool:          name,
			QPS:           tl.config.QPS,
			MaxConcurrent: tl.config.MaxConcurrent,
		}
		if tl.semaphore != nil {
			s.CurrentConcurrent = len(tl.semaphore)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Tool < stats[j].Tool })
	return stats
}
