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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/sse"

	"advisor-platform/internal/agent/dispatch"
	"advisor-platform/internal/agent/engine"
	"advisor-platform/internal/model"
	"advisor-platform/internal/model/llm"
	"advisor-platform/internal/runtime/feedback"
	"advisor-platform/internal/tool/registry"
	"advisor-platform/pkg/metrics"
)

// Version 服务版本，/api/health 返回，CLI version 子命令亦展示
const Version = "1.0.0"

// Handler 各端点的依赖集合
type Handler struct {
	engine      *engine.Engine
	registry    *registry.Registry
	feedback    feedback.Store
	llmLimiter  *llm.LLMRateLimiter
	toolLimiter *dispatch.ToolRateLimiter
}

// NewHandler 创建 Handler
func NewHandler(eng *engine.Engine, reg *registry.Registry, fb feedback.Store,
	llmLimiter *llm.LLMRateLimiter, toolLimiter *dispatch.ToolRateLimiter) *Handler {
	return &Handler{
		engine:      eng,
		registry:    reg,
		feedback:    fb,
		llmLimiter:  llmLimiter,
		toolLimiter: toolLimiter,
	}
}

// Chat 执行一轮对话。会话状态（history、pending_write）由调用方随请求
// 回传，服务端不保存任何会话数据
// POST /api/v1/chat
func (h *Handler) Chat(c context.Context, ctx *app.RequestContext) {
	var req engine.Request
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	req.BearerToken = bearerToken(ctx)
	ctx.JSON(consts.StatusOK, h.engine.Run(c, req))
}

// ChatStream 流式执行一轮对话，SSE 推送 step / token / done 事件。
// 输入与 /chat 相同，done 事件携带完整响应
// POST /api/v1/chat/stream
func (h *Handler) ChatStream(c context.Context, ctx *app.RequestContext) {
	var req engine.Request
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	req.BearerToken = bearerToken(ctx)

	ctx.SetStatusCode(consts.StatusOK)
	stream := sse.NewStream(ctx)
	h.engine.RunStream(c, req, func(ev engine.Event) {
		out, err := sseEvent(ev)
		if err != nil {
			hlog.CtxErrorf(c, "encode stream event: %v", err)
			return
		}
		if err := stream.Publish(out); err != nil {
			hlog.CtxWarnf(c, "publish stream event: %v", err)
		}
	})
}

// sseEvent 将引擎事件编码为 SSE 事件，SSE 事件名即引擎事件类型
func sseEvent(ev engine.Event) (*sse.Event, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &sse.Event{Event: ev.Type, Data: data}, nil
}

// feedbackRequest POST /api/v1/feedback 请求体
type feedbackRequest struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	Helpful  bool   `json:"helpful"`
	Comment  string `json:"comment"`
}

// Feedback 记录一条用户反馈
// POST /api/v1/feedback
func (h *Handler) Feedback(c context.Context, ctx *app.RequestContext) {
	var req feedbackRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.Response) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "query and response are required",
		})
		return
	}
	entry, err := h.feedback.Save(c, feedback.Entry{
		Query:    req.Query,
		Response: req.Response,
		Helpful:  req.Helpful,
		Comment:  req.Comment,
	})
	if err != nil {
		hlog.CtxErrorf(c, "save feedback: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "failed to save feedback",
		})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"id": entry.ID})
}

// Costs 用量与限流统计（LLM provider 维度 + 工具维度）
// GET /api/v1/costs
func (h *Handler) Costs(c context.Context, ctx *app.RequestContext) {
	llmStats := []llm.ProviderStats{}
	if h.llmLimiter != nil {
		llmStats = h.llmLimiter.AllStats()
		sort.Slice(llmStats, func(i, j int) bool { return llmStats[i].Provider < llmStats[j].Provider })
	}
	toolStats := []dispatch.ToolStats{}
	if h.toolLimiter != nil {
		toolStats = h.toolLimiter.AllStats()
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"llm":    llmStats,
		"models": model.ListLLM(),
		"tools":  toolStats,
	})
}

// Tools 已注册工具列表（name, description, parameters）
// GET /api/v1/tools
func (h *Handler) Tools(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"tools": h.registry.Schemas()})
}

// Health 健康检查
// GET /api/health
func (h *Handler) Health(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok", "version": Version})
}

// Metrics Prometheus 文本格式指标
// GET /metrics
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		hlog.CtxErrorf(c, "gather metrics: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "failed to gather metrics",
		})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
