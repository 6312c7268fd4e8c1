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

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"advisor-platform/internal/tool"
	"advisor-platform/pkg/metrics"
	"advisor-platform/pkg/tracing"
)

// Registry 工具注册表：注册、发现、执行边界
type Registry struct {
	mu    sync.RWMutex
	tools map[string]tool.Tool
}

// New 创建新的 Registry
func New() *Registry {
	return &Registry{
		tools: make(map[string]tool.Tool),
	}
}

// Register 注册工具
func (r *Registry) Register(t tool.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get 按名称获取工具
func (r *Registry) Get(name string) (tool.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List 返回所有已注册工具，按名称排序
func (r *Registry) List() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tool.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// Call 执行一次工具调用。panic、未注册工具都折叠为失败 Result，
// 调用方拿到的永远是成功或失败两种形态之一，不会有 error 或 panic 穿透。
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (res tool.Result) {
	t, ok := r.Get(name)
	if !ok {
		metrics.ToolFailTotal.WithLabelValues(name, tool.CodeInternal).Inc()
		return tool.Failure(name, tool.CodeInternal, "tool not registered: "+name)
	}

	ctx, span := tracing.StartToolSpan(ctx, name)
	defer span.End()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			res = tool.Failure(name, tool.CodeInternal, fmt.Sprintf("tool panic: %v", rec))
		}
		metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if !res.Success {
			metrics.ToolFailTotal.WithLabelValues(name, res.Error.Code).Inc()
		}
	}()

	if args == nil {
		args = make(map[string]any)
	}
	return t.Execute(ctx, args)
}

// ToolInfo 单个工具的对外描述（name, description, parameters）
type ToolInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  tool.Schema `json:"parameters"`
}

// Schemas 返回所有工具的描述列表，供 /api/v1/tools 与 LLM 使用
func (r *Registry) Schemas() []ToolInfo {
	list := r.List()
	infos := make([]ToolInfo, 0, len(list))
	for _, t := range list {
		infos = append(infos, ToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return infos
}

// SchemasJSON 返回 JSON 序列化的工具描述列表
func (r *Registry) SchemasJSON() ([]byte, error) {
	return json.Marshal(r.Schemas())
}
