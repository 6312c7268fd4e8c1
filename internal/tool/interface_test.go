// Copyright 2026 fanjia1024
// Tests for the tool result envelope

package tool

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessResult(t *testing.T) {
	res := Success("portfolio", map[string]any{"total_value": 1000.0})

	assert.True(t, res.Success)
	assert.Equal(t, "portfolio", res.ToolName)
	assert.True(t, strings.HasPrefix(res.ResultID, "tr-"))
	assert.False(t, res.Timestamp.IsZero())
	assert.NotNil(t, res.Payload)
	assert.Nil(t, res.Error)
}

func TestFailureResult(t *testing.T) {
	res := Failure("market_data", CodeNoData, "no quote for XYZ")

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.ResultID, "tr-"))
	assert.Nil(t, res.Payload)
	assert.NotNil(t, res.Error)
	assert.Equal(t, CodeNoData, res.Error.Code)
	assert.Equal(t, "no quote for XYZ", res.Error.Message)
	assert.Equal(t, "NO_DATA: no quote for XYZ", res.Error.Error())
}

func TestFailureFromErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: CodeTimeout},
		{name: "cancelled", err: context.Canceled, wantCode: CodeTimeout},
		{name: "wrapped deadline", err: fmt.Errorf("request failed: %w", context.DeadlineExceeded), wantCode: CodeTimeout},
		{name: "other error", err: fmt.Errorf("connection refused"), wantCode: CodeAPIError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FailureFromErr("transaction_query", tt.err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantCode, res.Error.Code)
		})
	}
}

func TestResultIDsAreUnique(t *testing.T) {
	a := Success("portfolio", nil)
	b := Success("portfolio", nil)
	assert.NotEqual(t, a.ResultID, b.ResultID)
}
