// Copyright 2026 fanjia1024
// Tests for the OpenAI-compatible client

package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req["model"])

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIClient_Generate(t *testing.T) {
	server := newChatCompletionServer(t, "hello from model")
	defer server.Close()

	client, err := NewOpenAIClientWithBaseURL("gpt-4o-mini", "test-key", server.URL)
	require.NoError(t, err)

	got, err := client.Generate("hi", GenerateOptions{Temperature: 0.3, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "hello from model", got)
}

func TestOpenAIClient_Chat(t *testing.T) {
	server := newChatCompletionServer(t, "chat reply")
	defer server.Close()

	client, err := NewOpenAIClientWithBaseURL("gpt-4o-mini", "test-key", server.URL)
	require.NoError(t, err)

	got, err := client.Chat([]Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	}, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "chat reply", got)
}

func TestOpenAIClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"upstream broke"}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClientWithBaseURL("gpt-4o-mini", "test-key", server.URL)
	require.NoError(t, err)
	client.client.SetRetryCount(0)

	_, err = client.Generate("hi", GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "返回错误")
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClientWithBaseURL("gpt-4o-mini", "test-key", server.URL)
	require.NoError(t, err)

	_, err = client.Generate("hi", GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "没有返回结果")
}

func TestNewClient_ProviderSwitch(t *testing.T) {
	openaiClient, err := NewClient("openai", "", "key", "")
	require.NoError(t, err)
	assert.Equal(t, "openai", openaiClient.Provider())
	assert.Equal(t, "gpt-4o-mini", openaiClient.Model())

	qwenClient, err := NewClient("qwen", "", "key", "")
	require.NoError(t, err)
	assert.Equal(t, "qwen", qwenClient.Provider())
	assert.Equal(t, "qwen-plus", qwenClient.Model())
}

func TestRateLimitedClient_PassThrough(t *testing.T) {
	server := newChatCompletionServer(t, "limited reply")
	defer server.Close()

	inner, err := NewOpenAIClientWithBaseURL("gpt-4o-mini", "test-key", server.URL)
	require.NoError(t, err)

	limited := NewRateLimitedClient(inner, NewLLMRateLimiter(nil, nil))
	got, err := limited.Generate("hi", GenerateOptions{MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "limited reply", got)

	stats, ok := limited.rateLimiter.Stats("openai")
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.RequestsTotal)
	assert.Greater(t, stats.TokensTotal, int64(0))
}
