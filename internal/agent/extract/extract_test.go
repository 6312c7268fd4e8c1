// Copyright 2026 fanjia1024
// Tests for free-text field extraction

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicker(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "known ticker", query: "buy 10 AAPL at $150", want: "AAPL"},
		{name: "known ticker lowercase", query: "how is aapl doing", want: "AAPL"},
		{name: "known ticker with punctuation", query: "what about NVDA?", want: "NVDA"},
		{name: "unknown but plausible", query: "how is PLTR doing", want: "PLTR"},
		{name: "stopwords only", query: "should i sell half", want: ""},
		{name: "no ticker", query: "what should i do", want: ""},
		{name: "read verbs skipped", query: "tell me everything", want: ""},
		{name: "gerund skipped", query: "how is the market doing", want: ""},
		{name: "action words skipped", query: "buy sell add yes no", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ticker(tt.query))
		})
	}
}

func TestTickerOr(t *testing.T) {
	assert.Equal(t, "SPY", TickerOr("how is the market", "SPY"))
	assert.Equal(t, "TSLA", TickerOr("how is TSLA", "SPY"))
}

func TestQuantity(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  float64
		ok    bool
	}{
		{name: "n shares", query: "buy 10 shares of AAPL", want: 10, ok: true},
		{name: "fractional shares", query: "sell 2.5 shares", want: 2.5, ok: true},
		{name: "thousands separator", query: "sell 450,000 shares of TSLA", want: 450_000, ok: true},
		{name: "verb number", query: "buy 100 AAPL", want: 100, ok: true},
		{name: "units", query: "record 20 units", want: 20, ok: true},
		{name: "none", query: "show my portfolio", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Quantity(tt.query)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  float64
		ok    bool
	}{
		{name: "dollar sign", query: "buy 10 AAPL at $150.50", want: 150.50, ok: true},
		{name: "at keyword", query: "bought MSFT at 320", want: 320, ok: true},
		{name: "with thousands separator", query: "buy 1 BRK for $1,200", want: 1200, ok: true},
		{name: "per share", query: "sell at 45 per share", want: 45, ok: true},
		{name: "none", query: "sell 10 AAPL shares", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Price(tt.query)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
		ok    bool
	}{
		{name: "iso", query: "bought on 2024-03-15", want: "2024-03-15", ok: true},
		{name: "us format", query: "bought on 3/5/2024", want: "2024-03-05", ok: true},
		{name: "us format two digit", query: "on 12/31/2023", want: "2023-12-31", ok: true},
		{name: "none", query: "bought yesterday", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.query)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFee(t *testing.T) {
	assert.Equal(t, 4.95, Fee("buy 10 AAPL with fee of $4.95"))
	assert.Equal(t, 10.0, Fee("fee 10"))
	assert.Equal(t, 0.0, Fee("buy 10 AAPL"))
}

func TestAmount(t *testing.T) {
	got, ok := Amount("add $5,000 to my account")
	require.True(t, ok)
	assert.Equal(t, 5000.0, got)

	got, ok = Amount("deposit 2000 dollars")
	require.True(t, ok)
	assert.Equal(t, 2000.0, got)

	_, ok = Amount("add some money")
	assert.False(t, ok)
}

func TestDividendAmount(t *testing.T) {
	got, ok := DividendAmount("record a dividend of $32.50 from AAPL")
	require.True(t, ok)
	assert.Equal(t, 32.50, got)

	got, ok = DividendAmount("got a $15 dividend")
	require.True(t, ok)
	assert.Equal(t, 15.0, got)

	_, ok = DividendAmount("dividends are nice")
	assert.False(t, ok)
}

func TestMoney(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{raw: "450k", want: 450_000},
		{raw: "1.2m", want: 1_200_000},
		{raw: "450,000", want: 450_000},
		{raw: "600K", want: 600_000},
		{raw: "750000", want: 750_000},
		{raw: "abc", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Money(tt.raw))
		})
	}
}
