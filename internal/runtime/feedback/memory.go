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

package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxMemoryEntries 内存实现的保留上限，超出后丢弃最老的条目
const maxMemoryEntries = 10000

// memoryStore 内存实现，单机部署与测试用
type memoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemory 创建内存版反馈存储
func NewMemory() Store {
	return &memoryStore{}
}

func (s *memoryStore) Save(_ context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = "fb-" + uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.entries = append(s.entries, e)
	if len(s.entries) > maxMemoryEntries {
		s.entries = s.entries[len(s.entries)-maxMemoryEntries:]
	}
	s.mu.Unlock()
	return e, nil
}

func (s *memoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.entries)
	if limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *memoryStore) Close() {}
