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

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
)

// EinoClient 基于 Eino ChatModel 组件的客户端，deepseek、eino-openai 两个 provider 共用
type EinoClient struct {
	provider  string
	model     string
	chatModel einomodel.ToolCallingChatModel
}

// NewDeepSeekClient 创建 DeepSeek 客户端
func NewDeepSeekClient(model, apiKey string) (*EinoClient, error) {
	if model == "" {
		model = "deepseek-chat"
	}
	chatModel, err := deepseek.NewChatModel(context.Background(), &deepseek.ChatModelConfig{
		APIKey:    apiKey,
		Model:     model,
		MaxTokens: 2000,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 DeepSeek ChatModel failed: %w", err)
	}
	return &EinoClient{provider: "deepseek", model: model, chatModel: chatModel}, nil
}

// NewEinoOpenAIClient 创建走 Eino 组件的 OpenAI 客户端（需要 tool calling 能力时使用）
func NewEinoOpenAIClient(model, apiKey, baseURL string) (*EinoClient, error) {
	if model == "" {
		model = "gpt-4o-mini"
	}
	cfg := &openai.ChatModelConfig{
		Model:  model,
		APIKey: apiKey,
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	chatModel, err := openai.NewChatModel(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}
	return &EinoClient{provider: "eino-openai", model: model, chatModel: chatModel}, nil
}

// Generate 生成文本
func (c *EinoClient) Generate(prompt string, options GenerateOptions) (string, error) {
	return c.GenerateWithContext(context.Background(), prompt, options)
}

// GenerateWithContext 使用上下文生成文本
func (c *EinoClient) GenerateWithContext(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	return c.ChatWithContext(ctx, []Message{{Role: "user", Content: prompt}}, options)
}

// Chat 聊天
func (c *EinoClient) Chat(messages []Message, options GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, options)
}

// ChatWithContext 使用上下文聊天
func (c *EinoClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	in := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			in = append(in, schema.SystemMessage(msg.Content))
		case "assistant":
			in = append(in, schema.AssistantMessage(msg.Content, nil))
		default:
			in = append(in, schema.UserMessage(msg.Content))
		}
	}

	// 模型名走请求级选项，让 SetModel 在不重建 ChatModel 的情况下生效
	opts := []einomodel.Option{einomodel.WithModel(c.model)}
	if options.Temperature > 0 {
		opts = append(opts, einomodel.WithTemperature(float32(options.Temperature)))
	}
	if options.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(options.MaxTokens))
	}

	out, err := c.chatModel.Generate(ctx, in, opts...)
	if err != nil {
		return "", fmt.Errorf("调用 %s ChatModel failed: %w", c.provider, err)
	}
	return out.Content, nil
}

// Model 返回模型名称
func (c *EinoClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *EinoClient) Provider() string {
	return c.provider
}

// SetModel 设置模型，下次调用经 WithModel 选项生效
func (c *EinoClient) SetModel(model string) {
	if model != "" {
		c.model = model
	}
}

// SetAPIKey Eino ChatModel 的 APIKey 在构建时绑定，运行期不可变更
func (c *EinoClient) SetAPIKey(apiKey string) {}
