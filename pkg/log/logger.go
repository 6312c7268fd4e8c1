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

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger slog 封装，供 internal 各层使用
type Logger struct {
	*slog.Logger
}

// Config 日志配置（与 pkg/config 的 log 段对接）
type Config struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // json | text
	File   string `mapstructure:"file"`   // 输出文件路径，空则 stdout
}

var (
	mu       sync.RWMutex
	defaultL = &Logger{Logger: slog.Default()}
)

// NewLogger 根据配置创建 Logger，cfg 可为 nil 使用默认
func NewLogger(cfg *Config) (*Logger, error) {
	level := slog.LevelInfo
	if cfg != nil && cfg.Level != "" {
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	var w io.Writer = os.Stdout
	if cfg != nil && cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件 %s failed: %w", cfg.File, err)
		}
		w = f
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg != nil && cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(h)}, nil
}

// Init 初始化全局 Logger（App 启动时调用一次）
func Init(cfg *Config) error {
	l, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	defaultL = l
	mu.Unlock()
	slog.SetDefault(l.Logger)
	return nil
}

// L 返回全局 Logger
func L() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultL
}

// With 返回带固定字段的子 Logger
func With(args ...any) *Logger {
	return &Logger{Logger: L().Logger.With(args...)}
}
