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
	"advisor-platform/internal/agent/classify"
	"advisor-platform/internal/agent/verify"
	"advisor-platform/internal/agent/writeflow"
	"advisor-platform/internal/model/llm"
	"advisor-platform/internal/tool"
)

// Request 一轮对话的完整输入。服务端不保存任何会话状态：历史与
// 待确认写操作由调用方随每次请求原样回传。BearerToken 来自
// Authorization 头，不进请求体。
type Request struct {
	Query        string                  `json:"query"`
	History      []llm.Message           `json:"history,omitempty"`
	PendingWrite *writeflow.PendingWrite `json:"pending_write,omitempty"`
	BearerToken  string                  `json:"-"`
}

// Response 一轮对话的最终输出，字段名即对外 API 的线格式。
// PendingWrite 非空时调用方必须在下一次请求回传。
type Response struct {
	Answer               string                  `json:"response"`
	QueryType            classify.QueryType      `json:"query_type"`
	Confidence           float64                 `json:"confidence_score"`
	Outcome              verify.Outcome          `json:"verification_outcome"`
	AwaitingConfirmation bool                    `json:"awaiting_confirmation"`
	PendingWrite         *writeflow.PendingWrite `json:"pending_write,omitempty"`
	MissingFields        []string                `json:"missing_fields,omitempty"`
	ToolsUsed            []string                `json:"tools_used,omitempty"`
	Citations            []string                `json:"citations,omitempty"`
	LatencySeconds       float64                 `json:"latency_seconds"`
}

// State 单轮编排的工作集，各阶段依次填充。请求进来即构建，
// 响应发出即丢弃。
type State struct {
	Query       string
	History     []llm.Message
	BearerToken string

	QueryType    classify.QueryType
	PendingWrite *writeflow.PendingWrite
	ToolResults  []tool.Result

	Confidence float64
	Outcome    verify.Outcome

	AwaitingConfirmation bool
	ConfirmationMessage  string
	MissingFields        []string

	FinalResponse  string
	Citations      []string
	ToolsUsed      []string
	LatencySeconds float64
}

func (st *State) response() Response {
	return Response{
		Answer:               st.FinalResponse,
		QueryType:            st.QueryType,
		Confidence:           st.Confidence,
		Outcome:              st.Outcome,
		AwaitingConfirmation: st.AwaitingConfirmation,
		PendingWrite:         st.PendingWrite,
		MissingFields:        st.MissingFields,
		ToolsUsed:            st.ToolsUsed,
		Citations:            st.Citations,
		LatencySeconds:       st.LatencySeconds,
	}
}
