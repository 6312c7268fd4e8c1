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

// Package api 装配对话服务的 HTTP 层：从配置构建缓存、反馈存储、
// LLM 客户端、工具注册表与编排引擎，并在 Hertz 上暴露 /api/v1
// 的对话、反馈、成本、工具端点与 /metrics。
package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"advisor-platform/internal/agent/dispatch"
	"advisor-platform/internal/agent/engine"
	"advisor-platform/internal/agent/synthesize"
	"advisor-platform/internal/agent/writeflow"
	"advisor-platform/internal/model"
	"advisor-platform/internal/model/llm"
	"advisor-platform/internal/runtime/cache"
	"advisor-platform/internal/runtime/feedback"
	"advisor-platform/internal/tool/builtin"
	"advisor-platform/internal/tool/registry"
	"advisor-platform/pkg/config"
	"advisor-platform/pkg/log"
	"advisor-platform/pkg/secrets"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配 Engine、工具注册表、反馈存储与 Hertz 服务）
type App struct {
	cfg          *config.Config
	engine       *engine.Engine
	registry     *registry.Registry
	feedback     feedback.Store
	llmLimiter   *llm.LLMRateLimiter
	toolLimiter  *dispatch.ToolRateLimiter
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 从配置装配 API 应用（由 cmd/api 调用）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置为空")
	}

	if err := log.Init(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	store, err := cache.New(context.Background(), cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存失败: %w", err)
	}
	fbStore, err := feedback.New(context.Background(), cfg.Feedback)
	if err != nil {
		return nil, fmt.Errorf("初始化反馈存储失败: %w", err)
	}

	llmLimiter := llm.NewLLMRateLimiter(llmLimits(cfg.RateLimits.LLM), nil)
	if err := registerConfiguredLLMs(cfg); err != nil {
		return nil, err
	}
	var generator llm.Client
	if cfg.Model.Defaults.LLM == "" {
		log.L().Warn("未配置默认 LLM（model.defaults.llm），回答合成将降级为错误提示")
	} else if client, err := model.GetLLM(cfg.Model.Defaults.LLM); err != nil {
		log.L().Warn("默认 LLM 不可用，回答合成将降级", "key", cfg.Model.Defaults.LLM, "error", err)
	} else {
		generator = llm.NewRateLimitedClient(client, llmLimiter)
	}

	reg := registry.New()
	quotes := builtin.RegisterAll(reg, cfg.Tools, cfg.Cache, store)

	toolLimiter := dispatch.NewToolRateLimiter(cfg.RateLimits.Tools)
	eng := engine.New(
		dispatch.New(reg, toolLimiter, cfg.Agent),
		writeflow.New(reg, quotes, store),
		synthesize.New(generator),
		cfg.Agent,
	)

	return &App{
		cfg:         cfg,
		engine:      eng,
		registry:    reg,
		feedback:    fbStore,
		llmLimiter:  llmLimiter,
		toolLimiter: toolLimiter,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	log.L().Info("对话服务启动", "addr", addr)

	// Hertz 侧日志走 slog 扩展，与 pkg/log 同一套级别与输出配置
	output := os.Stdout
	if a.cfg.Log.File != "" {
		f, err := os.OpenFile(a.cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	switch a.cfg.Log.Level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	opts := []hertzconfig.Option{server.WithHostPorts(addr)}

	// 可选：启用链路追踪（OpenTelemetry）
	var tracerCfg *hertztracing.Config
	if a.cfg.Monitoring.Tracing.Enable {
		serviceName := a.cfg.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "advisor-api"
		}
		exportEndpoint := a.cfg.Monitoring.Tracing.ExportEndpoint
		if exportEndpoint == "" {
			exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if exportEndpoint != "" {
			provOpts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(exportEndpoint),
			}
			if a.cfg.Monitoring.Tracing.Insecure {
				provOpts = append(provOpts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(provOpts...)
			tracerOpt, tcfg := hertztracing.NewServerTracer()
			opts = append(opts, tracerOpt)
			tracerCfg = tcfg
			log.L().Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
		}
	}

	h := server.Default(opts...)
	if tracerCfg != nil {
		h.Use(hertztracing.ServerMiddleware(tracerCfg))
	}
	a.registerRoutes(h)
	a.hertz = h
	return h.Run()
}

// registerRoutes 注册中间件与全部路由
func (a *App) registerRoutes(h *server.Hertz) {
	handler := NewHandler(a.engine, a.registry, a.feedback, a.llmLimiter, a.toolLimiter)

	if a.cfg.API.CORS.Enable {
		h.Use(CORS(a.cfg.API.CORS.AllowOrigins))
	}
	if a.cfg.API.Middleware.RateLimit {
		h.Use(RateLimit(a.cfg.API.Middleware.RateLimitRPS))
	}

	h.GET("/api/health", handler.Health)
	h.GET("/metrics", handler.Metrics)

	v1 := h.Group("/api/v1")
	if a.cfg.API.Middleware.Auth {
		v1.Use(BearerAuth())
	}
	v1.POST("/chat", handler.Chat)
	v1.POST("/chat/stream", handler.ChatStream)
	v1.POST("/feedback", handler.Feedback)
	v1.GET("/costs", handler.Costs)
	v1.GET("/tools", handler.Tools)
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.feedback != nil {
		a.feedback.Close()
	}
	return nil
}

// registerConfiguredLLMs 把配置里的每个 provider.model_key 构建成客户端
// 注册进模型注册表。api_key 支持 ${ENV} 与 vault:path/key 引用，经
// pkg/secrets 解析；解析失败的 provider 整体跳过并告警，不阻断启动。
func registerConfiguredLLMs(cfg *config.Config) error {
	secretStore, err := secrets.NewStore(cfg.Secrets)
	if err != nil {
		return fmt.Errorf("初始化 secret store 失败: %w", err)
	}
	for providerName, pc := range cfg.Model.LLM.Providers {
		if pc.APIKey == "" {
			log.L().Warn("LLM provider 未配置 api_key，跳过", "provider", providerName)
			continue
		}
		apiKey, err := secrets.Resolve(context.Background(), secretStore, pc.APIKey)
		if err != nil {
			log.L().Warn("LLM API key 未解析，跳过 provider", "provider", providerName, "error", err)
			continue
		}
		for modelKey, mi := range pc.Models {
			client, err := llm.NewClient(providerName, mi.Name, apiKey, pc.BaseURL)
			if err != nil {
				return fmt.Errorf("创建 LLM 客户端 %s.%s 失败: %w", providerName, modelKey, err)
			}
			model.RegisterLLM(providerName+"."+modelKey, client)
		}
	}
	return nil
}

// llmLimits 将配置中的 LLM 限流段转换为限流器配置
func llmLimits(in map[string]config.LLMRateLimitConfig) map[string]llm.LLMLimitConfig {
	out := make(map[string]llm.LLMLimitConfig, len(in))
	for name, c := range in {
		out[name] = llm.LLMLimitConfig{
			TokensPerMinute:   c.TokensPerMinute,
			RequestsPerMinute: c.RequestsPerMinute,
			MaxConcurrent:     c.MaxConcurrent,
		}
	}
	return out
}
