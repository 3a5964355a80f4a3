package tools

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	args := map[string]any{
		"f":   0.5,
		"i":   3,
		"i64": int64(4),
		"js":  json.Number("1.25"),
		"s":   "2",
		"nan": math.NaN(),
	}

	tests := []struct {
		name string
		want float64
		ok   bool
	}{
		{"f", 0.5, true},
		{"i", 3, true},
		{"i64", 4, true},
		{"js", 1.25, true},
		{"s", 0, false},
		{"nan", 0, false},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Number(args, tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestInt(t *testing.T) {
	args := map[string]any{"k": 5.0, "frac": 2.5}

	assert.Equal(t, 5, Int(args, "k", 3))
	assert.Equal(t, 3, Int(args, "frac", 3))
	assert.Equal(t, 3, Int(args, "missing", 3))
}

func TestString(t *testing.T) {
	args := map[string]any{"q": "  parallax  ", "n": 1}

	s, ok := String(args, "q")
	assert.True(t, ok)
	assert.Equal(t, "parallax", s)

	_, ok = String(args, "n")
	assert.False(t, ok)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3.262, Round(3.26156, 3))
	assert.Equal(t, 2.0, Round(2.0000001, 4))
}
