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

package engine

import (
	"context"
	"strings"

	"advisor-platform/pkg/tracing"
)

// 事件类型。step 标记阶段边界，token 携带回答分片，done 携带完整响应。
const (
	EventStep  = "step"
	EventToken = "token"
	EventDone  = "done"
)

const (
	StatusStarted  = "started"
	StatusFinished = "finished"
)

// 阶段名，step 事件按此顺序成对出现
const (
	stageClassify   = "classify"
	stageTools      = "tools"
	stageVerify     = "verify"
	stageSynthesize = "synthesize"
)

// Event 流式执行过程中的一条事件
type Event struct {
	Type     string    `json:"type"`
	Stage    string    `json:"stage,omitempty"`
	Status   string    `json:"status,omitempty"`
	Chunk    string    `json:"chunk,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// EventSink 接收流式事件的回调。回调在编排 goroutine 里同步执行，
// 不得阻塞。
type EventSink func(Event)

// RunStream 执行一轮对话并向 sink 推送过程事件：每个阶段的
// started/finished、按词切分的回答分片、最后一条 done 带完整响应。
// 返回值与 Run 相同。
func (e *Engine) RunStream(ctx context.Context, req Request, sink EventSink) Response {
	return e.run(ctx, req, sink)
}

// stage 在 sink 上成对发出阶段事件并包一层阶段 span，sink 为空时
// 只执行阶段本身
func (e *Engine) stage(ctx context.Context, sink EventSink, name string, fn func(context.Context)) {
	sctx, span := tracing.StartStageSpan(ctx, name)
	emit(sink, Event{Type: EventStep, Stage: name, Status: StatusStarted})
	fn(sctx)
	span.End()
	emit(sink, Event{Type: EventStep, Stage: name, Status: StatusFinished})
}

func emit(sink EventSink, ev Event) {
	if sink != nil {
		sink(ev)
	}
}

// emitAnswer 回答按词推送，空格留在分片尾部，客户端直接拼接即可
func emitAnswer(sink EventSink, resp Response) {
	if sink == nil {
		return
	}
	for _, chunk := range strings.SplitAfter(resp.Answer, " ") {
		if chunk == "" {
			continue
		}
		sink(Event{Type: EventToken, Chunk: chunk})
	}
	sink(Event{Type: EventDone, Response: &resp})
}
