// Package tools holds helpers shared by the built-in tools.
//
// Arguments arrive as decoded JSON, so numbers are usually float64. The tool
// registry has already checked required presence and declared types before
// a tool runs, but the helpers still tolerate other numeric forms.
package tools

import (
	"encoding/json"
	"math"
	"strings"
)

// Number returns a numeric argument.
func Number(args map[string]any, name string) (float64, bool) {
	switch v := args[name].(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns an integral argument, or def when absent or not integral.
func Int(args map[string]any, name string, def int) int {
	f, ok := Number(args, name)
	if !ok || f != math.Trunc(f) {
		return def
	}
	return int(f)
}

// String returns a trimmed string argument.
func String(args map[string]any, name string) (string, bool) {
	s, ok := args[name].(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
