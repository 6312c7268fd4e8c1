// Copyright 2026 fanjia1024
// Tests for structural confidence scoring.

package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"advisor-platform/internal/tool"
)

func okResult(name string) tool.Result {
	return tool.Success(name, map[string]any{"value_usd": 1234.56})
}

func failResult(name string) tool.Result {
	return tool.Failure(name, tool.CodeTimeout, "deadline exceeded")
}

func TestScoreNoResults(t *testing.T) {
	conf, outcome := Score(nil)
	assert.Equal(t, 0.5, conf)
	assert.Equal(t, Flag, outcome)
}

func TestScoreAllSuccess(t *testing.T) {
	conf, outcome := Score([]tool.Result{okResult("portfolio"), okResult("market_price")})
	assert.Equal(t, 0.9, conf)
	assert.Equal(t, Pass, outcome)
}

func TestScorePartialFailure(t *testing.T) {
	// One failure: 0.9 - 0.15 = 0.75, still a pass.
	conf, outcome := Score([]tool.Result{okResult("portfolio"), failResult("market_price")})
	assert.InDelta(t, 0.75, conf, 1e-9)
	assert.Equal(t, Pass, outcome)

	// Two failures: 0.60, flagged.
	conf, outcome = Score([]tool.Result{okResult("portfolio"), failResult("market_price"), failResult("compliance_check")})
	assert.InDelta(t, 0.60, conf, 1e-9)
	assert.Equal(t, Flag, outcome)
}

func TestScoreEscalatesAndFloors(t *testing.T) {
	results := []tool.Result{okResult("portfolio")}
	for i := 0; i < 4; i++ {
		results = append(results, failResult("market_price"))
	}
	// Four failures: 0.9 - 0.60 = 0.30 → escalate.
	conf, outcome := Score(results)
	assert.InDelta(t, 0.30, conf, 1e-9)
	assert.Equal(t, Escalate, outcome)

	// Six failures would go negative; floor is 0.1.
	for i := 0; i < 2; i++ {
		results = append(results, failResult("tax_estimate"))
	}
	conf, outcome = Score(results)
	assert.InDelta(t, 0.10, conf, 1e-9)
	assert.Equal(t, Escalate, outcome)
}

func TestCheckReport(t *testing.T) {
	rep := Check([]tool.Result{okResult("portfolio"), failResult("market_price")})
	assert.False(t, rep.Verified)
	assert.Equal(t, 2, rep.ToolCount)
	assert.Equal(t, []string{"market_price"}, rep.FailedTools)
	assert.Equal(t, []string{"portfolio"}, rep.SuccessfulTools)
	assert.InDelta(t, -0.15, rep.ConfidenceAdjustment, 1e-9)
	assert.InDelta(t, 0.75, rep.BaseConfidence, 1e-9)
	assert.Equal(t, Flag, rep.Outcome)
	// 成功 payload 带有 1234.56，至少应数出一个数值点
	assert.Greater(t, rep.NumericDataPoints, 0)
}

func TestCheckAllFailedEscalates(t *testing.T) {
	rep := Check([]tool.Result{failResult("portfolio"), failResult("market_price")})
	assert.Equal(t, Escalate, rep.Outcome)
	assert.InDelta(t, 0.1, rep.BaseConfidence, 1e-9)
}

func TestCheckEmpty(t *testing.T) {
	rep := Check(nil)
	assert.True(t, rep.Verified)
	assert.Equal(t, 0, rep.ToolCount)
	assert.Equal(t, Pass, rep.Outcome)
}

func TestAdvisoryQuery(t *testing.T) {
	assert.True(t, AdvisoryQuery("Should I sell my NVDA position?"))
	assert.True(t, AdvisoryQuery("should i invest more in bonds"))
	assert.False(t, AdvisoryQuery("what is my YTD return"))
	assert.False(t, AdvisoryQuery("should i rebalance")) // advisory footer covers buy/sell/invest/trade only
}
