package safe

import (
	"math"
	"testing"
)

func TestIntToInt32(t *testing.T) {
	tests := []struct {
		name            string
		input           int
		expectedValue   int32
		expectedClamped bool
	}{
		{
			name:            "zero value",
			input:           0,
			expectedValue:   0,
			expectedClamped: false,
		},
		{
			name:            "typical pid",
			input:           12345,
			expectedValue:   12345,
			expectedClamped: false,
		},
		{
			name:            "max int32 value",
			input:           math.MaxInt32,
			expectedValue:   math.MaxInt32,
			expectedClamped: false,
		},
		{
			name:            "max int32 plus one (overflow)",
			input:           math.MaxInt32 + 1,
			expectedValue:   math.MaxInt32,
			expectedClamped: true,
		},
		{
			name:            "min int32 minus one (underflow)",
			input:           math.MinInt32 - 1,
			expectedValue:   math.MinInt32,
			expectedClamped: true,
		},
		{
			name:            "negative value in range",
			input:           -1,
			expectedValue:   -1,
			expectedClamped: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, clamped := IntToInt32(tt.input)
			if value != tt.expectedValue {
				t.Errorf("IntToInt32(%d) value = %d, expected %d", tt.input, value, tt.expectedValue)
			}
			if clamped != tt.expectedClamped {
				t.Errorf("IntToInt32(%d) clamped = %v, expected %v", tt.input, clamped, tt.expectedClamped)
			}
		})
	}
}

func TestInt64ToUint64(t *testing.T) {
	tests := []struct {
		name            string
		input           int64
		expectedValue   uint64
		expectedClamped bool
	}{
		{
			name:            "zero value",
			input:           0,
			expectedValue:   0,
			expectedClamped: false,
		},
		{
			name:            "typical file size",
			input:           1 << 20,
			expectedValue:   1 << 20,
			expectedClamped: false,
		},
		{
			name:            "max int64 value",
			input:           math.MaxInt64,
			expectedValue:   math.MaxInt64,
			expectedClamped: false,
		},
		{
			name:            "negative value (clamped)",
			input:           -42,
			expectedValue:   0,
			expectedClamped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, clamped := Int64ToUint64(tt.input)
			if value != tt.expectedValue {
				t.Errorf("Int64ToUint64(%d) value = %d, expected %d", tt.input, value, tt.expectedValue)
			}
			if clamped != tt.expectedClamped {
				t.Errorf("Int64ToUint64(%d) clamped = %v, expected %v", tt.input, clamped, tt.expectedClamped)
			}
		})
	}
}
