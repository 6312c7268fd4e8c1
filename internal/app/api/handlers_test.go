// Copyright 2026 fanjia1024
// Tests for the HTTP handlers and middleware

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-platform/internal/agent/dispatch"
	"advisor-platform/internal/agent/engine"
	"advisor-platform/internal/agent/synthesize"
	"advisor-platform/internal/agent/verify"
	"advisor-platform/internal/agent/writeflow"
	"advisor-platform/internal/model/llm"
	"advisor-platform/internal/runtime/feedback"
	"advisor-platform/internal/tool"
	"advisor-platform/internal/tool/registry"
	"advisor-platform/pkg/config"
)

// stubTool 记录调用参数的工具桩
type stubTool struct {
	name    string
	payload map[string]any

	mu   sync.Mutex
	args map[string]any
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Schema() tool.Schema { return tool.Schema{Type: "object"} }

func (s *stubTool) Execute(_ context.Context, args map[string]any) tool.Result {
	s.mu.Lock()
	s.args = args
	s.mu.Unlock()
	payload := s.payload
	if payload == nil {
		payload = map[string]any{"ok": true}
	}
	return tool.Success(s.name, payload)
}

func (s *stubTool) lastArgs() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.args
}

// stubLLM 固定回答的模型桩
type stubLLM struct{ answer string }

func (s *stubLLM) Generate(string, llm.GenerateOptions) (string, error) { return s.answer, nil }

func (s *stubLLM) GenerateWithContext(context.Context, string, llm.GenerateOptions) (string, error) {
	return s.answer, nil
}

func (s *stubLLM) Chat([]llm.Message, llm.GenerateOptions) (string, error) { return s.answer, nil }

func (s *stubLLM) ChatWithContext(context.Context, []llm.Message, llm.GenerateOptions) (string, error) {
	return s.answer, nil
}

func (s *stubLLM) Model() string    { return "stub" }
func (s *stubLLM) Provider() string { return "stub" }
func (s *stubLLM) SetModel(string)  {}
func (s *stubLLM) SetAPIKey(string) {}

// newTestHandler 装配带桩工具与桩模型的 Handler
func newTestHandler(model llm.Client, tools ...tool.Tool) *Handler {
	reg := registry.New()
	for _, tl := range tools {
		reg.Register(tl)
	}
	agentCfg := config.AgentConfig{ToolTimeout: "2s", DispatchTimeout: "5s"}
	eng := engine.New(
		dispatch.New(reg, nil, agentCfg),
		writeflow.New(reg, nil, nil),
		synthesize.New(model),
		agentCfg,
	)
	return NewHandler(eng, reg, feedback.NewMemory(),
		llm.NewLLMRateLimiter(nil, nil), dispatch.NewToolRateLimiter(nil))
}

func healthyPortfolio() map[string]any {
	return map[string]any{
		"summary":  map[string]any{"total_current_value_usd": 50000.0},
		"holdings": []any{map[string]any{"symbol": "AAPL", "gain_pct": 5.0}},
	}
}

func TestChatReturnsOrchestratedResponse(t *testing.T) {
	portfolio := &stubTool{name: "portfolio_analysis", payload: healthyPortfolio()}
	h := newTestHandler(&stubLLM{answer: "Your YTD return is 12.4%."}, portfolio)
	s := server.Default(server.WithHostPorts(":0"))
	s.POST("/api/v1/chat", h.Chat)

	body := []byte(`{"query":"what is my ytd return"}`)
	w := ut.PerformRequest(s.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Authorization", Value: "Bearer tok-1"})
	require.Equal(t, 200, w.Result().StatusCode())

	var resp engine.Response
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	assert.Contains(t, resp.Answer, "12.4%")
	assert.Equal(t, verify.Pass, resp.Outcome)
	assert.InDelta(t, 0.9, resp.Confidence, 1e-9)
	assert.Equal(t, []string{"portfolio_analysis"}, resp.ToolsUsed)
	assert.Len(t, resp.Citations, 1)

	// Authorization 头剥掉 Bearer 前缀后透传给工具
	assert.Equal(t, "tok-1", portfolio.lastArgs()["token"])
}

func TestChatRejectsMalformedBody(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	s := server.Default(server.WithHostPorts(":0"))
	s.POST("/api/v1/chat", h.Chat)

	body := []byte(`{"query":`)
	w := ut.PerformRequest(s.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)})
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "invalid request body")
}

func TestChatStreamRejectsMalformedBody(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	s := server.Default(server.WithHostPorts(":0"))
	s.POST("/api/v1/chat/stream", h.ChatStream)

	body := []byte(`not json`)
	w := ut.PerformRequest(s.Engine, "POST", "/api/v1/chat/stream",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)})
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestSSEEventEncoding(t *testing.T) {
	out, err := sseEvent(engine.Event{Type: engine.EventStep, Stage: "classify", Status: engine.StatusStarted})
	require.NoError(t, err)
	assert.Equal(t, engine.EventStep, out.Event)
	assert.JSONEq(t, `{"type":"step","stage":"classify","status":"started"}`, string(out.Data))

	out, err = sseEvent(engine.Event{Type: engine.EventToken, Chunk: "hello "})
	require.NoError(t, err)
	assert.Equal(t, engine.EventToken, out.Event)
	assert.JSONEq(t, `{"type":"token","chunk":"hello "}`, string(out.Data))
}

func TestFeedbackPersistsEntry(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	s := server.Default(server.WithHostPorts(":0"))
	s.POST("/api/v1/feedback", h.Feedback)

	body := []byte(`{"query":"what is my return","response":"12.4%","helpful":true,"comment":"spot on"}`)
	w := ut.PerformRequest(s.Engine, "POST", "/api/v1/feedback",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)})
	require.Equal(t, 200, w.Result().StatusCode())

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out))
	assert.True(t, strings.HasPrefix(out["id"], "fb-"))

	entries, err := h.feedback.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "what is my return", entries[0].Query)
	assert.True(t, entries[0].Helpful)
	assert.Equal(t, "spot on", entries[0].Comment)
}

func TestFeedbackRequiresQueryAndResponse(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	s := server.Default(server.WithHostPorts(":0"))
	s.POST("/api/v1/feedback", h.Feedback)

	body := []byte(`{"query":"  ","response":"r","helpful":false}`)
	w := ut.PerformRequest(s.Engine, "POST", "/api/v1/feedback",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)})
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "required")
}

func TestToolsListsRegisteredSchemas(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"},
		&stubTool{name: "portfolio_analysis"}, &stubTool{name: "record_buy"})
	s := server.Default(server.WithHostPorts(":0"))
	s.GET("/api/v1/tools", h.Tools)

	w := ut.PerformRequest(s.Engine, "GET", "/api/v1/tools",
		&ut.Body{Body: bytes.NewReader(nil), Len: 0})
	require.Equal(t, 200, w.Result().StatusCode())

	var out struct {
		Tools []registry.ToolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out))
	require.Len(t, out.Tools, 2)
	assert.Equal(t, "portfolio_analysis", out.Tools[0].Name)
	assert.Equal(t, "record_buy", out.Tools[1].Name)
}

func TestCostsReportsLimiterStats(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	h.toolLimiter = dispatch.NewToolRateLimiter(map[string]config.ToolRateLimitConfig{
		"market_data": {QPS: 5, MaxConcurrent: 2},
	})
	s := server.Default(server.WithHostPorts(":0"))
	s.GET("/api/v1/costs", h.Costs)

	w := ut.PerformRequest(s.Engine, "GET", "/api/v1/costs",
		&ut.Body{Body: bytes.NewReader(nil), Len: 0})
	require.Equal(t, 200, w.Result().StatusCode())

	var out struct {
		LLM    []llm.ProviderStats  `json:"llm"`
		Models []string             `json:"models"`
		Tools  []dispatch.ToolStats `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out))
	assert.Empty(t, out.LLM)
	assert.Empty(t, out.Models)
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "market_data", out.Tools[0].Tool)
	assert.InDelta(t, 5, out.Tools[0].QPS, 1e-9)
}

func TestHealthReportsStatusAndVersion(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	s := server.Default(server.WithHostPorts(":0"))
	s.GET("/api/health", h.Health)

	w := ut.PerformRequest(s.Engine, "GET", "/api/health",
		&ut.Body{Body: bytes.NewReader(nil), Len: 0})
	require.Equal(t, 200, w.Result().StatusCode())

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, Version, out["version"])
}

func TestMetricsServesPrometheusText(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	s := server.Default(server.WithHostPorts(":0"))
	s.GET("/metrics", h.Metrics)

	w := ut.PerformRequest(s.Engine, "GET", "/metrics",
		&ut.Body{Body: bytes.NewReader(nil), Len: 0})
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, w.Result().Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(w.Result().Body()), "advisor_confidence_score")
}

func TestBearerAuthGuardsGroup(t *testing.T) {
	portfolio := &stubTool{name: "portfolio_analysis", payload: healthyPortfolio()}
	h := newTestHandler(&stubLLM{answer: "ok"}, portfolio)
	s := server.Default(server.WithHostPorts(":0"))
	v1 := s.Group("/api/v1")
	v1.Use(BearerAuth())
	v1.POST("/chat", h.Chat)

	body := []byte(`{"query":"what is my ytd return"}`)
	w := ut.PerformRequest(s.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)})
	assert.Equal(t, 401, w.Result().StatusCode())

	w = ut.PerformRequest(s.Engine, "POST", "/api/v1/chat",
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Authorization", Value: "Bearer tok-2"})
	assert.Equal(t, 200, w.Result().StatusCode())
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	s := server.Default(server.WithHostPorts(":0"))
	s.Use(CORS([]string{"https://app.example.com"}))
	s.POST("/api/v1/chat", h.Chat)

	w := ut.PerformRequest(s.Engine, "OPTIONS", "/api/v1/chat",
		&ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 204, w.Result().StatusCode())
	assert.Equal(t, "https://app.example.com", w.Result().Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimitCapsBurst(t *testing.T) {
	h := newTestHandler(&stubLLM{answer: "ok"})
	s := server.Default(server.WithHostPorts(":0"))
	s.Use(RateLimit(1))
	s.GET("/api/health", h.Health)

	w := ut.PerformRequest(s.Engine, "GET", "/api/health",
		&ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 200, w.Result().StatusCode())

	w = ut.PerformRequest(s.Engine, "GET", "/api/health",
		&ut.Body{Body: bytes.NewReader(nil), Len: 0})
	assert.Equal(t, 429, w.Result().StatusCode())
}

func TestBearerTokenExtraction(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer tok-1", "tok-1"},
		{"Bearer  padded ", "padded"},
		{"Bearer ", ""},
		{"Token tok-1", ""},
		{"", ""},
	}
	for _, tc := range cases {
		ctx := &app.RequestContext{}
		if tc.header != "" {
			ctx.Request.Header.Set("Authorization", tc.header)
		}
		assert.Equal(t, tc.want, bearerToken(ctx), "header %q", tc.header)
	}
}
