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

// Package feedback 用户反馈存储：记录某次回答是否有帮助，
// 供离线评估回答质量与回归排查。
package feedback

import (
	"context"
	"fmt"
	"time"

	"advisor-platform/pkg/config"
)

// Entry 一条用户反馈
type Entry struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Helpful   bool      `json:"helpful"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store 反馈存储接口
type Store interface {
	// Save 保存一条反馈。ID 为空时生成，CreatedAt 为零值时取当前时间，
	// 返回补全后的条目。
	Save(ctx context.Context, e Entry) (Entry, error)
	// List 按时间倒序返回最近的反馈，limit <= 0 时取默认条数
	List(ctx context.Context, limit int) ([]Entry, error)
	// Close 释放底层资源
	Close()
}

const defaultListLimit = 50

// New 按配置创建反馈存储，type 为空时默认 memory
func New(ctx context.Context, cfg config.FeedbackConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported feedback store type: %s", cfg.Type)
	}
}
