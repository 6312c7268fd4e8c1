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

// Package synthesize 把工具结果合成为带引用的对话式回答。
// 回答里的每个数字都必须出自工具结果并附结果 ID 引用；写控制、
// 确认回显、空结果等情况在调 LLM 之前就短路返回固定文案。
package synthesize

import (
	"context"
	"fmt"
	"time"

	"advisor-platform/internal/agent/classify"
	"advisor-platform/internal/model/llm"
	"advisor-platform/internal/tool"
)

const (
	answerMaxTokens = 800
	answerTimeout   = 25 * time.Second
)

// Input 合成一轮回答所需的全部上下文
type Input struct {
	Query      string
	QueryType  classify.QueryType
	Results    []tool.Result
	Confidence float64
	// Advisory 投资决策类提问，回答末尾附免责尾注
	Advisory bool
	History  []llm.Message
	// Prebuilt 写入流程已生成的确认/澄清文案，非空时直接回显
	Prebuilt string
}

// Output 最终回答与引用的结果 ID 列表
type Output struct {
	Answer    string
	Citations []string
}

// Synthesizer 回答合成器
type Synthesizer struct {
	client    llm.Client
	maxTokens int
	timeout   time.Duration
}

// New 创建合成器
func New(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client, maxTokens: answerMaxTokens, timeout: answerTimeout}
}

// Respond 生成一轮回答。短路顺序：删除类拒绝 → 确认/澄清回显 →
// 取消 → 无结果，剩下的才进入 LLM 合成。
func (s *Synthesizer) Respond(ctx context.Context, in Input) Output {
	if in.QueryType == classify.WriteRefused {
		return Output{Answer: "I'm not able to delete or remove transactions or portfolio data. " +
			"The portfolio service's web interface supports editing individual activities " +
			"if you need to remove or correct an entry."}
	}

	if in.Prebuilt != "" {
		return Output{Answer: in.Prebuilt}
	}

	if in.QueryType == classify.WriteCancelled {
		return Output{Answer: "Transaction cancelled. No changes were made to your portfolio."}
	}

	if len(in.Results) == 0 {
		if in.QueryType == classify.ContextFollowup {
			return s.followupFromHistory(ctx, in)
		}
		return Output{Answer: "I wasn't able to retrieve any portfolio data for your query. " +
			"Please try rephrasing your question."}
	}

	banner := writeBanner(in.Results)
	sanitized := sanitizeQuery(in.Query)
	instruction := userInstruction(toolContext(in.Results), sanitized, adviceGuard(sanitized))

	messages := make([]llm.Message, 0, len(in.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, in.History...)
	messages = append(messages, llm.Message{Role: "user", Content: instruction})

	answer, err := s.chat(ctx, messages)
	if err != nil {
		answer = fmt.Sprintf("I encountered an error generating your response: %v. Please try again.", err)
	}

	answer = stripJSONBlocks(answer)
	if in.Confidence < 0.6 {
		answer = fmt.Sprintf("⚠️ Low confidence (%.0f%%) — some data may be incomplete or unavailable.\n\n%s",
			in.Confidence*100, answer)
	}
	if in.Advisory {
		answer += advisoryFooter
	}

	citations := make([]string, 0, len(in.Results))
	for _, r := range in.Results {
		if r.Success && r.ResultID != "" {
			citations = append(citations, r.ResultID)
		}
	}
	return Output{Answer: banner + answer, Citations: citations}
}

// followupFromHistory 上下文追问：不调工具，仅凭对话历史回答
func (s *Synthesizer) followupFromHistory(ctx context.Context, in Input) Output {
	if len(in.History) == 0 {
		return Output{Answer: "I don't have enough context to answer that. Could you rephrase your question?"}
	}

	messages := make([]llm.Message, 0, len(in.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, in.History...)
	messages = append(messages, llm.Message{Role: "user", Content: fmt.Sprintf(
		"USER FOLLOW-UP QUESTION: %s\n\n"+
			"Answer using only the information already present in the conversation above. "+
			"Do not invent any new numbers. Cite data from prior assistant messages.", in.Query)})

	answer, err := s.chat(ctx, messages)
	if err != nil {
		return Output{Answer: fmt.Sprintf("I encountered an error: %v", err)}
	}
	return Output{Answer: answer}
}

func (s *Synthesizer) chat(ctx context.Context, messages []llm.Message) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("no LLM client configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.ChatWithContext(ctx, messages, llm.GenerateOptions{MaxTokens: s.maxTokens})
}
