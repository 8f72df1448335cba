// Package gravity fuses the tilt angles reported by every player into the
// single angle that rotates the shared board.
package gravity

import "math"

// Smoothing weights seen in play. Higher alpha tilts the board faster but
// passes more of each player's jitter through.
const (
	AlphaSmooth = 0.2
	AlphaSnappy = 0.5

	DefaultAlpha = AlphaSmooth
)

const epsilon = 1e-9

// CircularMean averages angles through their unit vectors (sin, cos).
// It returns ok=false for an empty input or when the vectors cancel out,
// in which case the caller should keep its previous angle.
//
// A plain arithmetic mean was used at one point; it breaks across the ±π
// seam (179° and -179° average to 0° instead of 180°).
func CircularMean(angles []float64) (mean float64, ok bool) {
	if len(angles) == 0 {
		return 0, false
	}
	var sumSin, sumCos float64
	for _, a := range angles {
		sumSin += math.Sin(a)
		sumCos += math.Cos(a)
	}
	n := float64(len(angles))
	meanSin, meanCos := sumSin/n, sumCos/n
	if math.Hypot(meanSin, meanCos) < epsilon {
		return 0, false
	}
	return math.Atan2(meanSin, meanCos), true
}

// Smooth blends target into current with weight alpha:
// current*(1-alpha) + target*alpha, taken along the shorter arc so the
// blend never swings the long way round the circle.
func Smooth(current, target, alpha float64) float64 {
	alpha = math.Max(0, math.Min(1, alpha))
	return Normalize(current + Difference(current, target)*alpha)
}

// Difference returns the signed shortest rotation from a to b, in (-π, π].
func Difference(a, b float64) float64 {
	return Normalize(b - a)
}

// Normalize wraps an angle into (-π, π].
func Normalize(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Finite reports whether v is usable as an angle.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
