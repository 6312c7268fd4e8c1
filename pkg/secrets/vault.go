// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string `yaml:"address" mapstructure:"address"`         // Vault server address（如 http://vault:8200）
	Token      string `yaml:"token" mapstructure:"token"`             // Vault token
	PathPrefix string `yaml:"path_prefix" mapstructure:"path_prefix"` // Secret path prefix（默认 "secret"）
}

type vaultStore struct {
	client *vault.Client
	prefix string

	// 最近写入的值缓存，避免 KV 后端写入可见性延迟
	mu     sync.RWMutex
	recent map[string]string
}

// NewVaultStore 创建 Vault secret store 并校验连通性
func NewVaultStore(config VaultConfig) (Store, error) {
	cfg := vault.DefaultConfig()
	if config.Address != "" {
		cfg.Address = config.Address
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}
	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("connect to vault: %w", err)
	}

	prefix := config.PathPrefix
	if prefix == "" {
		prefix = "secret"
	}
	return &vaultStore{
		client: client,
		prefix: prefix,
		recent: make(map[string]string),
	}, nil
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	v.mu.RLock()
	if val, ok := v.recent[key]; ok {
		v.mu.RUnlock()
		return val, nil
	}
	v.mu.RUnlock()

	secret, err := v.client.Logical().ReadWithContext(ctx, v.path(key))
	if err != nil {
		return "", fmt.Errorf("read secret from vault: %w", err)
	}
	if secret == nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}

	if val, ok := secret.Data["value"].(string); ok {
		return val, nil
	}
	// 非标准布局时取第一个字符串值
	for _, raw := range secret.Data {
		if s, ok := raw.(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("secret value not found: %s", key)
}

func (v *vaultStore) Set(ctx context.Context, key string, value string) error {
	data := map[string]interface{}{"value": value}
	if _, err := v.client.Logical().WriteWithContext(ctx, v.path(key), data); err != nil {
		return fmt.Errorf("write secret to vault: %w", err)
	}
	v.mu.Lock()
	v.recent[key] = value
	v.mu.Unlock()
	return nil
}

func (v *vaultStore) Delete(ctx context.Context, key string) error {
	if _, err := v.client.Logical().DeleteWithContext(ctx, v.path(key)); err != nil {
		return fmt.Errorf("delete secret from vault: %w", err)
	}
	v.mu.Lock()
	delete(v.recent, key)
	v.mu.Unlock()
	return nil
}

func (v *vaultStore) List(ctx context.Context, prefix string) ([]string, error) {
	searchPath := v.prefix
	if prefix != "" {
		searchPath = v.prefix + "/" + prefix
	}
	secret, err := v.client.Logical().ListWithContext(ctx, searchPath)
	if err != nil {
		return nil, fmt.Errorf("list secrets from vault: %w", err)
	}
	if secret == nil {
		return nil, nil
	}
	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	var keys []string
	for _, k := range raw {
		if s, ok := k.(string); ok {
			if prefix != "" && !strings.HasPrefix(s, prefix) {
				s = prefix + "/" + s
			}
			keys = append(keys, s)
		}
	}
	return keys, nil
}

func (v *vaultStore) path(key string) string {
	return v.prefix + "/" + key
}
