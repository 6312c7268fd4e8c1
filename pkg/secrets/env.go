// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type envStore struct{}

// NewEnvStore 创建环境变量 secret store。路径形式的 key（如 llm/openai）
// 会映射为 LLM_OPENAI 环境变量名，provider=env 即可在本地直接替代
// vault 引用。
func NewEnvStore() Store {
	return &envStore{}
}

func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	name := envName(key)
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("environment variable not set: %s", name)
	}
	return v, nil
}

func (e *envStore) Set(ctx context.Context, key string, value string) error {
	return os.Setenv(envName(key), value)
}

func (e *envStore) Delete(ctx context.Context, key string) error {
	return os.Unsetenv(envName(key))
}

func (e *envStore) List(ctx context.Context, prefix string) ([]string, error) {
	want := envName(prefix)
	var keys []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(name, want) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}

// envName 把 secret 路径映射为环境变量名：大写，路径分隔符一律换成下划线
func envName(key string) string {
	upper := strings.ToUpper(key)
	return strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(upper)
}
