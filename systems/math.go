package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clampFloat clamps v between minVal and maxVal.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 2*math.Pi)
	if angle > math.Pi {
		angle -= 2 * math.Pi
	} else if angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// dampFactor converts a per-frame multiplier to one covering dt frames.
func dampFactor(perFrame, dt float64) float64 {
	if dt == 1 {
		return perFrame
	}
	return math.Pow(perFrame, dt)
}

// unitOr returns the unit vector of v, or fallback when v is (nearly) zero.
func unitOr(v r2.Vec, fallback r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n < 1e-9 {
		return fallback
	}
	return r2.Scale(1/n, v)
}

// fallbackDir spreads coincident entities apart by index using the golden angle.
func fallbackDir(index int) r2.Vec {
	const goldenAngle = 2.399963229728653
	a := float64(index) * goldenAngle
	return r2.Vec{X: math.Cos(a), Y: math.Sin(a)}
}

// limit caps the magnitude of v at maxLen.
func limit(v r2.Vec, maxLen float64) r2.Vec {
	n2 := r2.Norm2(v)
	if n2 <= maxLen*maxLen || n2 == 0 {
		return v
	}
	return r2.Scale(maxLen/math.Sqrt(n2), v)
}
