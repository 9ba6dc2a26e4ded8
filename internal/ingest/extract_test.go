package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtSignExtractor(t *testing.T) {
	ex := AtSignExtractor{}

	tests := []struct {
		name  string
		text  string
		want  float64
		found bool
	}{
		{"plain", "Target Achieved @105", 105, true},
		{"spaced", "exit @  1520.50", 1520.5, true},
		{"year rejected", "closed @2025", 0, false},
		{"no at sign", "closed at 210", 0, false},
		{"empty", "", 0, false},
		{"zero string", "0", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ex.TryExtract(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordExtractor(t *testing.T) {
	ex := NewKeywordExtractor(DefaultExitKeywords...)

	v, ok := ex.TryExtract("Book profit at 245.5")
	assert.True(t, ok)
	assert.Equal(t, 245.5, v)

	v, ok = ex.TryExtract("sl hit at 98")
	assert.True(t, ok)
	assert.Equal(t, 98.0, v)

	v, ok = ex.TryExtract("EXIT 310")
	assert.True(t, ok)
	assert.Equal(t, 310.0, v)

	_, ok = ex.TryExtract("exit at 2024")
	assert.False(t, ok, "a year after a keyword is not a price")

	_, ok = ex.TryExtract("holding")
	assert.False(t, ok)
}

func TestTokenScanExtractor(t *testing.T) {
	ex := TokenScanExtractor{}

	tests := []struct {
		name  string
		text  string
		want  float64
		found bool
	}{
		{"first plain token", "closed 150 partially", 150, true},
		{"skips option strike", "NIFTY 24500CE closed 120", 120, true},
		{"skips day before month", "closed 25 JAN 130", 130, true},
		{"skips bare year", "closed 2025 at 310", 310, true},
		{"skips number before year", "expiry 26 2025 sold 77", 77, true},
		{"skips price range", "buy at 100-120 exit 130", 130, true},
		{"single digits ignored", "closed 5", 0, false},
		{"nothing usable", "24500PE", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ex.TryExtract(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractExitPriceStrategyOrder(t *testing.T) {
	extractors := DefaultExtractors()

	// the at-sign in the remark outranks a bare number in the description
	v, strategy, ok := ExtractExitPrice(extractors, "closed 150", "exit @ 160")
	assert.True(t, ok)
	assert.Equal(t, 160.0, v)
	assert.Equal(t, "at_sign", strategy)

	v, strategy, ok = ExtractExitPrice(extractors, "closed 150", "")
	assert.True(t, ok)
	assert.Equal(t, 150.0, v)
	assert.Equal(t, "token_scan", strategy)

	// zero is no signal
	_, _, ok = ExtractExitPrice(extractors, "@0", "0")
	assert.False(t, ok)
}
