package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUSDC(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "whole dollars", input: "10", want: 1000},
		{name: "two decimals", input: "9.94", want: 994},
		{name: "one decimal", input: "0.3", want: 30},
		{name: "cents only", input: "0.03", want: 3},
		{name: "leading dot", input: ".50", want: 50},
		{name: "negative", input: "-2.50", want: -250},
		{name: "zero", input: "0", want: 0},
		{name: "surrounding whitespace", input: " 1.00 ", want: 100},
		{name: "three decimals", input: "1.005", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUSDC(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatUSDC(t *testing.T) {
	assert.Equal(t, "9.94", FormatUSDC(994))
	assert.Equal(t, "0.03", FormatUSDC(3))
	assert.Equal(t, "10.00", FormatUSDC(1000))
	assert.Equal(t, "0.00", FormatUSDC(0))
	assert.Equal(t, "-2.50", FormatUSDC(-250))
}

func TestCentsRoundTripIsExact(t *testing.T) {
	// The classic float trap: 9.94 + 0.03 + 0.03 != 10.00 in float64.
	// In cents it is exact.
	a, err := ParseUSDC("9.94")
	require.NoError(t, err)
	b, err := ParseUSDC("0.03")
	require.NoError(t, err)

	assert.Equal(t, "10.00", FormatUSDC(a+b+b))
}
