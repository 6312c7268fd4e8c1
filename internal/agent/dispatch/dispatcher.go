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

package dispatch

import (
	"context"
	"sync"
	"time"

	"advisor-platform/internal/tool"
	"advisor-platform/internal/tool/registry"
	"advisor-platform/pkg/config"
	"advisor-platform/pkg/log"
	"advisor-platform/pkg/metrics"
)

const defaultToolTimeout = 8 * time.Second

// Dispatcher 并发执行工具计划。失败隔离：单个调用失败不中断其余调用，
// 失败以失败 Result 的形态留在结果列表里。
type Dispatcher struct {
	reg         *registry.Registry
	limiter     *ToolRateLimiter
	toolTimeout time.Duration
}

// New 创建调度器，单工具超时取自配置，空则默认 8s
func New(reg *registry.Registry, limiter *ToolRateLimiter, cfg config.AgentConfig) *Dispatcher {
	timeout := defaultToolTimeout
	if d, err := time.ParseDuration(cfg.ToolTimeout); err == nil && d > 0 {
		timeout = d
	}
	return &Dispatcher{reg: reg, limiter: limiter, toolTimeout: timeout}
}

// Run 执行计划：主批次并发跑完汇合，再并发跑后续批次。
// 结果顺序与计划声明顺序一致，与各调用完成先后无关。
func (d *Dispatcher) Run(ctx context.Context, plan Plan) []tool.Result {
	results := d.runBatch(ctx, plan.Primary)

	if len(plan.Then) == 0 {
		return results
	}

	steps := make([]Step, 0, len(plan.Then))
	for _, f := range plan.Then {
		dep, found := findByTool(results, f.DependsOn)
		switch {
		case found && dep.Success:
			if f.When != nil && !f.When(dep.Payload) {
				continue
			}
			var args map[string]any
			if f.Args != nil {
				args = f.Args(dep.Payload)
			}
			steps = append(steps, Step{Tool: f.Tool, Args: args})
		case f.OnFailure != nil:
			steps = append(steps, Step{Tool: f.Tool, Args: f.OnFailure})
		default:
			log.L().Debug("followup skipped, dependency failed",
				"tool", f.Tool, "depends_on", f.DependsOn)
		}
	}
	return append(results, d.runBatch(ctx, steps)...)
}

// runBatch 一个 goroutine 一次调用，索引槽位收集保证声明顺序
func (d *Dispatcher) runBatch(ctx context.Context, steps []Step) []tool.Result {
	if len(steps) == 0 {
		return nil
	}
	results := make([]tool.Result, len(steps))
	var wg sync.WaitGroup
	for i, step := range steps {
		wg.Add(1)
		go func(i int, step Step) {
			defer wg.Done()
			results[i] = d.call(ctx, step)
		}(i, step)
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) call(ctx context.Context, step Step) tool.Result {
	if d.limiter != nil {
		start := time.Now()
		if err := d.limiter.Wait(ctx, step.Tool); err != nil {
			return tool.Failure(step.Tool, tool.CodeTimeout, "rate limit wait aborted: "+err.Error())
		}
		metrics.RateLimitWaitSeconds.WithLabelValues("tool", step.Tool).Observe(time.Since(start).Seconds())
		defer d.limiter.Release(step.Tool)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.toolTimeout)
	defer cancel()
	return d.reg.Call(callCtx, step.Tool, step.Args)
}

func findByTool(results []tool.Result, name string) (tool.Result, bool) {
	for _, r := range results {
		if r.ToolName == name {
			return r, true
		}
	}
	return tool.Result{}, false
}
