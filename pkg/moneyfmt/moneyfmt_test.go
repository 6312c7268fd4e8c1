// Copyright 2026 fanjia1024
// Tests for thousands-grouped money formatting.

package moneyfmt

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		v        float64
		decimals int
		want     string
	}{
		{0, 2, "0.00"},
		{500, 0, "500"},
		{999, 2, "999.00"},
		{1000, 0, "1,000"},
		{1234567.891, 2, "1,234,567.89"},
		{100000, 0, "100,000"},
		{-1234.5, 2, "-1,234.50"},
		{1234.567, 0, "1,235"}, // rounds before grouping
	}
	for _, tt := range tests {
		if got := Format(tt.v, tt.decimals); got != tt.want {
			t.Errorf("Format(%v, %d) = %q, want %q", tt.v, tt.decimals, got, tt.want)
		}
	}
}

func TestDollars(t *testing.T) {
	if got := Dollars(1500.5, 2); got != "$1,500.50" {
		t.Errorf("Dollars = %q", got)
	}
	if got := Dollars(-42, 0); got != "-$42" {
		t.Errorf("Dollars negative = %q", got)
	}
}
