package animation

import (
	"fmt"
	"math"
)

// Easing maps linear progress in [0,1] onto eased progress in [0,1].
type Easing func(t float32) float32

func Linear(t float32) float32 { return t }

// QuadOut is the default tile easing.
func QuadOut(t float32) float32 { return t * (2 - t) }

func CubicOut(t float32) float32 {
	u := 1 - t
	return 1 - u*u*u
}

func SineOut(t float32) float32 {
	return float32(math.Sin(float64(t) * math.Pi / 2))
}

var easings = map[string]Easing{
	"linear":    Linear,
	"quad-out":  QuadOut,
	"cubic-out": CubicOut,
	"sine-out":  SineOut,
}

// ParseEasing resolves a configured easing name. Empty means quad-out.
func ParseEasing(name string) (Easing, error) {
	if name == "" {
		return QuadOut, nil
	}
	e, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q", name)
	}
	return e, nil
}

func clamp01(t float32) float32 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}
