package secrets

import (
	"context"
	"strings"
	"testing"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		wantErr     bool
		errContains string
	}{
		{name: "default is env", provider: "", wantErr: false},
		{name: "memory", provider: "memory", wantErr: false},
		{name: "env", provider: "env", wantErr: false},
		{name: "unknown provider", provider: "consul", wantErr: true, errContains: "unsupported secret provider"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewStore(Config{Provider: tc.provider})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if tc.errContains != "" && !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("error = %q, want contains %q", err.Error(), tc.errContains)
				}
				if store != nil {
					t.Fatalf("store should be nil when error occurs")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store == nil {
				t.Fatalf("store should not be nil")
			}
		})
	}
}

func TestMemoryAndEnvStoreBasicContract(t *testing.T) {
	ctx := context.Background()
	stores := []Store{NewMemoryStore(), NewEnvStore()}

	for _, s := range stores {
		if err := s.Set(ctx, "secret_test_key", "value"); err != nil {
			t.Fatalf("set secret failed: %v", err)
		}
		got, err := s.Get(ctx, "secret_test_key")
		if err != nil {
			t.Fatalf("get secret failed: %v", err)
		}
		if got != "value" {
			t.Fatalf("get secret = %q, want value", got)
		}
		if err := s.Delete(ctx, "secret_test_key"); err != nil {
			t.Fatalf("delete secret failed: %v", err)
		}
		if _, err = s.Get(ctx, "secret_test_key"); err == nil {
			t.Fatalf("expected error after delete")
		}
	}
}

func TestEnvStoreMapsPathKeys(t *testing.T) {
	ctx := context.Background()
	t.Setenv("LLM_OPENAI", "sk-local")

	got, err := NewEnvStore().Get(ctx, "llm/openai")
	if err != nil {
		t.Fatalf("get secret failed: %v", err)
	}
	if got != "sk-local" {
		t.Fatalf("get secret = %q, want sk-local", got)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	if err := mem.Set(ctx, "llm/api_key", "sk-test"); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	t.Setenv("ADVISOR_TEST_SECRET", "from-env")

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "literal", ref: "plain-value", want: "plain-value"},
		{name: "vault ref", ref: "vault:llm/api_key", want: "sk-test"},
		{name: "env ref", ref: "${ADVISOR_TEST_SECRET}", want: "from-env"},
		{name: "env ref unset", ref: "${ADVISOR_TEST_SECRET_MISSING}", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(ctx, mem, tc.ref)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.ref, got, tc.want)
			}
		})
	}
}
