// Package astronomy provides calculation tools for stellar distances and
// magnitudes.
package astronomy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/lumen/internal/core/domain"
	"github.com/custodia-labs/lumen/internal/core/ports/driving"
	"github.com/custodia-labs/lumen/internal/tools"
)

// Tool names.
const (
	ParallaxToDistanceName = "parallax_to_distance"
	DistanceModulusName    = "distance_modulus"
	ConvertDistanceName    = "convert_distance"
)

// LightYearsPerParsec converts parsecs to light-years.
const LightYearsPerParsec = 3.261563777

// kilometresPer maps supported units to their length in kilometres.
var kilometresPer = map[string]float64{
	"km": 1,
	"au": 1.495978707e8,
	"ly": 9.4607304725808e12,
	"pc": 3.0856775814913673e13,
}

// Tools returns all astronomy calculation tools.
func Tools() []driving.Tool {
	return []driving.Tool{
		ParallaxToDistanceTool(),
		DistanceModulusTool(),
		ConvertDistanceTool(),
	}
}

// ParallaxToDistanceTool converts a parallax angle to a distance.
func ParallaxToDistanceTool() driving.Tool {
	return driving.Tool{
		Spec: domain.ToolSpec{
			Name:        ParallaxToDistanceName,
			Description: "Convert a stellar parallax angle in arcseconds to a distance in parsecs and light-years (d = 1/p).",
			Parameters: map[string]domain.ParamSpec{
				"parallax_arcsec": {
					Type:        domain.ParamNumber,
					Description: "Parallax angle in arcseconds. Must be positive.",
					Required:    true,
				},
			},
		},
		Func: ParallaxToDistance,
	}
}

// ParallaxToDistance computes d = 1/p.
func ParallaxToDistance(_ context.Context, args map[string]any) (domain.ToolOutcome, error) {
	p, ok := tools.Number(args, "parallax_arcsec")
	if !ok {
		return domain.ToolError{Message: "parallax_arcsec is required and must be a number"}, nil
	}
	if p <= 0 {
		return domain.ToolError{Message: "parallax_arcsec must be positive"}, nil
	}

	pc := 1 / p
	return domain.ToolOk{Value: map[string]any{
		"parallax_arcsec":      p,
		"distance_parsecs":     tools.Round(pc, 6),
		"distance_light_years": tools.Round(pc*LightYearsPerParsec, 6),
	}}, nil
}

// DistanceModulusTool derives absolute magnitude from apparent magnitude and distance.
func DistanceModulusTool() driving.Tool {
	return driving.Tool{
		Spec: domain.ToolSpec{
			Name:        DistanceModulusName,
			Description: "Compute the absolute magnitude M = m - 5*log10(d/10) and the distance modulus m - M for a star at distance d parsecs.",
			Parameters: map[string]domain.ParamSpec{
				"apparent_magnitude": {
					Type:        domain.ParamNumber,
					Description: "Apparent magnitude m.",
					Required:    true,
				},
				"distance_parsecs": {
					Type:        domain.ParamNumber,
					Description: "Distance in parsecs. Must be positive.",
					Required:    true,
				},
			},
		},
		Func: DistanceModulus,
	}
}

// DistanceModulus computes M = m - 5 log10(d/10).
func DistanceModulus(_ context.Context, args map[string]any) (domain.ToolOutcome, error) {
	m, ok := tools.Number(args, "apparent_magnitude")
	if !ok {
		return domain.ToolError{Message: "apparent_magnitude is required and must be a number"}, nil
	}
	d, ok := tools.Number(args, "distance_parsecs")
	if !ok {
		return domain.ToolError{Message: "distance_parsecs is required and must be a number"}, nil
	}
	if d <= 0 {
		return domain.ToolError{Message: "distance_parsecs must be positive"}, nil
	}

	modulus := 5 * math.Log10(d/10)
	return domain.ToolOk{Value: map[string]any{
		"apparent_magnitude": m,
		"distance_parsecs":   d,
		"distance_modulus":   tools.Round(modulus, 4),
		"absolute_magnitude": tools.Round(m-modulus, 4),
	}}, nil
}

// ConvertDistanceTool converts between astronomical length units.
func ConvertDistanceTool() driving.Tool {
	units := strings.Join(Units(), ", ")
	return driving.Tool{
		Spec: domain.ToolSpec{
			Name:        ConvertDistanceName,
			Description: "Convert a distance between units: " + units + ".",
			Parameters: map[string]domain.ParamSpec{
				"value": {Type: domain.ParamNumber, Description: "Distance to convert. Must not be negative.", Required: true},
				"from":  {Type: domain.ParamString, Description: "Source unit (" + units + ").", Required: true},
				"to":    {Type: domain.ParamString, Description: "Target unit (" + units + ").", Required: true},
			},
		},
		Func: ConvertDistance,
	}
}

// ConvertDistance converts value between two supported units.
func ConvertDistance(_ context.Context, args map[string]any) (domain.ToolOutcome, error) {
	v, ok := tools.Number(args, "value")
	if !ok {
		return domain.ToolError{Message: "value is required and must be a number"}, nil
	}
	if v < 0 {
		return domain.ToolError{Message: "value must not be negative"}, nil
	}
	from, _ := tools.String(args, "from")
	to, _ := tools.String(args, "to")
	from, to = strings.ToLower(from), strings.ToLower(to)

	fromKm, ok := kilometresPer[from]
	if !ok {
		return domain.ToolError{Message: fmt.Sprintf("unsupported unit %q, use one of %s", from, strings.Join(Units(), ", "))}, nil
	}
	toKm, ok := kilometresPer[to]
	if !ok {
		return domain.ToolError{Message: fmt.Sprintf("unsupported unit %q, use one of %s", to, strings.Join(Units(), ", "))}, nil
	}

	return domain.ToolOk{Value: map[string]any{
		"value":     v,
		"from":      from,
		"to":        to,
		"converted": v * fromKm / toKm,
	}}, nil
}

// Units lists the supported distance units.
func Units() []string {
	units := make([]string, 0, len(kilometresPer))
	for u := range kilometresPer {
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}
