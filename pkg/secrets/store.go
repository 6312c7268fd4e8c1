// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Store Secret 存储接口
type Store interface {
	// Get 获取 secret 值
	Get(ctx context.Context, key string) (string, error)

	// Set 设置 secret 值
	Set(ctx context.Context, key string, value string) error

	// Delete 删除 secret
	Delete(ctx context.Context, key string) error

	// List 列出指定前缀下的 secret keys
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string      `yaml:"provider" mapstructure:"provider"` // vault | env | memory
	Vault    VaultConfig `yaml:"vault" mapstructure:"vault"`
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %q", config.Provider)
	}
}

// Resolve 解析配置中的 secret 引用：
//   - "vault:path/key" 经 store 读取
//   - "${ENV_VAR}" 读环境变量
//   - 其余按字面值返回
//
// store 为 nil 时仅处理环境变量引用。
func Resolve(ctx context.Context, store Store, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "vault:"):
		if store == nil {
			return "", fmt.Errorf("secret ref %q requires a configured store", ref)
		}
		return store.Get(ctx, strings.TrimPrefix(ref, "vault:"))
	case strings.HasPrefix(ref, "${") && strings.HasSuffix(ref, "}"):
		name := strings.TrimSuffix(strings.TrimPrefix(ref, "${"), "}")
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("environment variable not set: %s", name)
	default:
		return ref, nil
	}
}
