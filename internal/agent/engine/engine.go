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

// Package engine 把一轮自由文本提问编排成最终回答：意图分类 →
// 工具分发或写入流程 → 置信度评估 → 回答合成。引擎本身无状态，
// 会话上下文全部来自请求并随响应返回。
package engine

import (
	"context"
	"strings"
	"time"

	"advisor-platform/internal/agent/classify"
	"advisor-platform/internal/agent/dispatch"
	"advisor-platform/internal/agent/synthesize"
	"advisor-platform/internal/agent/verify"
	"advisor-platform/internal/agent/writeflow"
	"advisor-platform/internal/model/llm"
	"advisor-platform/internal/tool"
	"advisor-platform/pkg/config"
	"advisor-platform/pkg/metrics"
	"advisor-platform/pkg/tracing"
)

const (
	defaultDispatchTimeout = 20 * time.Second
	defaultHistoryLimit    = 20
)

const emptyQueryResponse = "I didn't receive a question. Please ask me something about your portfolio — " +
	"for example: 'What is my YTD return?' or 'Show my recent transactions.'"

// Engine 对话编排引擎
type Engine struct {
	dispatcher *dispatch.Dispatcher
	flow       *writeflow.Flow
	synth      *synthesize.Synthesizer

	dispatchTimeout time.Duration
	historyLimit    int
}

// New 创建引擎。分发总超时与历史窗口取自配置，空值用默认。
func New(d *dispatch.Dispatcher, f *writeflow.Flow, s *synthesize.Synthesizer, cfg config.AgentConfig) *Engine {
	timeout := defaultDispatchTimeout
	if t, err := time.ParseDuration(cfg.DispatchTimeout); err == nil && t > 0 {
		timeout = t
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &Engine{
		dispatcher:      d,
		flow:            f,
		synth:           s,
		dispatchTimeout: timeout,
		historyLimit:    limit,
	}
}

// Run 执行一轮对话
func (e *Engine) Run(ctx context.Context, req Request) Response {
	return e.run(ctx, req, nil)
}

func (e *Engine) run(ctx context.Context, req Request, sink EventSink) Response {
	start := time.Now()
	ctx, span := tracing.StartTurnSpan(ctx)
	defer span.End()
	st := e.newState(req)

	e.stage(ctx, sink, stageClassify, func(context.Context) { e.classifyStage(st) })
	e.stage(ctx, sink, stageTools, func(ctx context.Context) { e.routeStage(ctx, st) })
	e.stage(ctx, sink, stageVerify, func(context.Context) { verifyStage(st) })
	e.stage(ctx, sink, stageSynthesize, func(ctx context.Context) { e.synthesizeStage(ctx, st) })

	tracing.AnnotateTurn(ctx, string(st.QueryType), string(st.Outcome))
	e.finish(st, start)
	resp := st.response()
	emitAnswer(sink, resp)
	return resp
}

func (e *Engine) newState(req Request) *State {
	return &State{
		Query:        strings.TrimSpace(req.Query),
		History:      lastN(req.History, e.historyLimit),
		BearerToken:  req.BearerToken,
		PendingWrite: req.PendingWrite,
	}
}

// classifyStage 意图分类。空查询在这里短路，不进规则表。
func (e *Engine) classifyStage(st *State) {
	if st.Query == "" {
		st.QueryType = classify.Performance
		st.FinalResponse = emptyQueryResponse
		return
	}
	st.QueryType = classify.Classify(classify.Input{
		Query:           st.Query,
		HasPendingWrite: st.PendingWrite != nil,
		HasHistory:      len(st.History) > 0,
	})
}

// routeStage 按查询类型走写入流程或并发分发。短路分支（拒绝、
// 取消、确认文案、澄清提问）不经评估，直接预置满置信度。
func (e *Engine) routeStage(ctx context.Context, st *State) {
	if st.Query == "" {
		return
	}

	switch {
	case st.QueryType == classify.WriteRefused:
		// 拒绝优先于一切；已有的待确认操作保留，下一轮仍可确认
		presetPass(st)

	case st.QueryType == classify.WriteConfirmed:
		st.ToolResults = e.flow.Execute(ctx, st.PendingWrite, st.BearerToken)
		st.PendingWrite = nil
		st.AwaitingConfirmation = false

	case st.QueryType == classify.WriteCancelled:
		st.PendingWrite = nil
		presetPass(st)

	case st.QueryType.IsWriteIntent():
		e.prepareWrite(ctx, st)
		presetPass(st)

	case st.PendingWrite != nil:
		// 确认期间答非所问：重放确认文案，不浪费一次工具分发
		st.FinalResponse = st.PendingWrite.ConfirmationMessage
		st.AwaitingConfirmation = true
		presetPass(st)

	default:
		e.dispatchTools(ctx, st)
	}
}

// prepareWrite 写意图进入确认流程。解析成功时新的待确认操作整体
// 替换旧的；缺字段的澄清提问不动旧操作，用户仍可先回 yes 确认它。
func (e *Engine) prepareWrite(ctx context.Context, st *State) {
	out := e.flow.Prepare(ctx, st.QueryType, st.Query)
	if out.Awaiting() {
		st.PendingWrite = out.Pending
		st.ConfirmationMessage = out.Message
		st.AwaitingConfirmation = true
	} else {
		st.MissingFields = out.Missing
	}
	st.FinalResponse = out.Message
}

func (e *Engine) dispatchTools(ctx context.Context, st *State) {
	plan := dispatch.PlanFor(st.QueryType, st.Query, st.BearerToken)
	if plan.Empty() {
		return
	}
	dctx, cancel := context.WithTimeout(ctx, e.dispatchTimeout)
	defer cancel()
	st.ToolResults = e.dispatcher.Run(dctx, plan)
}

// verifyStage 给分发与写执行两类回合评分。其余回合在路由阶段已
// 预置结论，这里不再覆盖。
func verifyStage(st *State) {
	if st.Outcome != "" {
		return
	}
	st.Confidence, st.Outcome = verify.Score(st.ToolResults)
}

func (e *Engine) synthesizeStage(ctx context.Context, st *State) {
	out := e.synth.Respond(ctx, synthesize.Input{
		Query:      st.Query,
		QueryType:  st.QueryType,
		Results:    st.ToolResults,
		Confidence: st.Confidence,
		Advisory:   verify.AdvisoryQuery(st.Query),
		History:    st.History,
		Prebuilt:   st.FinalResponse,
	})
	st.FinalResponse = out.Answer
	st.Citations = out.Citations
}

func (e *Engine) finish(st *State, start time.Time) {
	st.ToolsUsed = toolNames(st.ToolResults)
	st.LatencySeconds = time.Since(start).Seconds()

	metrics.RequestDuration.WithLabelValues(string(st.QueryType)).Observe(st.LatencySeconds)
	metrics.RequestTotal.WithLabelValues(string(st.Outcome)).Inc()
	metrics.ConfidenceScore.Observe(st.Confidence)
}

func presetPass(st *State) {
	st.Confidence = 1.0
	st.Outcome = verify.Pass
}

func lastN(msgs []llm.Message, n int) []llm.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// toolNames 调用过的工具名，按出现顺序去重
func toolNames(results []tool.Result) []string {
	if len(results) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(results))
	names := make([]string, 0, len(results))
	for _, r := range results {
		if seen[r.ToolName] {
			continue
		}
		seen[r.ToolName] = true
		names = append(names, r.ToolName)
	}
	return names
}
