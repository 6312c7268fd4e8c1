// Copyright 2026 fanjia1024
// Tests for model registry

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-platform/internal/model/llm"
)

func TestGetLLM_NotRegistered(t *testing.T) {
	_, err := GetLLM("non-existent-llm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegisterAndGetLLM(t *testing.T) {
	client, err := llm.NewOpenAIClient("gpt-4o-mini", "test-key")
	require.NoError(t, err)

	RegisterLLM("openai.gpt_4o_mini", client)
	got, err := GetLLM("openai.gpt_4o_mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.Model())

	names := ListLLM()
	assert.Contains(t, names, "openai.gpt_4o_mini")
}
