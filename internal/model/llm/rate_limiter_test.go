// Copyright 2026 fanjia1024
// Tests for the LLM rate limiter

package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMRateLimiter_ConcurrencyLimit(t *testing.T) {
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"openai": {MaxConcurrent: 1},
	}, nil)

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx, "openai", 10))

	// 并发槽已满，第二次 Wait 应阻塞直到超时
	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := limiter.Wait(timeoutCtx, "openai", 10)
	require.Error(t, err)

	limiter.Release("openai")
	require.NoError(t, limiter.Wait(ctx, "openai", 10))
	limiter.Release("openai")
}

func TestLLMRateLimiter_UnconfiguredProviderUsesDefaults(t *testing.T) {
	limiter := NewLLMRateLimiter(nil, &LLMLimitConfig{
		TokensPerMinute:   6000,
		RequestsPerMinute: 600,
		MaxConcurrent:     5,
	})

	require.NoError(t, limiter.Wait(context.Background(), "deepseek", 10))
	limiter.Release("deepseek")

	stats, ok := limiter.Stats("deepseek")
	require.True(t, ok)
	assert.Equal(t, 6000, stats.TokensPerMinute)
	assert.Equal(t, int64(1), stats.RequestsTotal)
}

func TestLLMRateLimiter_RecordTokenUsage(t *testing.T) {
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"openai": {MaxConcurrent: 2},
	}, nil)

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx, "openai", 100))
	limiter.RecordTokenUsage("openai", 120)
	limiter.Release("openai")

	require.NoError(t, limiter.Wait(ctx, "openai", 50))
	limiter.RecordTokenUsage("openai", 60)
	limiter.Release("openai")

	stats, ok := limiter.Stats("openai")
	require.True(t, ok)
	assert.Equal(t, int64(2), stats.RequestsTotal)
	assert.Equal(t, int64(180), stats.TokensTotal)
}

func TestLLMRateLimiter_AllStats(t *testing.T) {
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"openai":   {MaxConcurrent: 1},
		"deepseek": {MaxConcurrent: 1},
	}, nil)

	all := limiter.AllStats()
	assert.Len(t, all, 2)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, estimateTokens("", 0))
	assert.Equal(t, 25, estimateTokens(make4CharString(100), 0))
	assert.Equal(t, 125, estimateTokens(make4CharString(100), 100))
}

func make4CharString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
