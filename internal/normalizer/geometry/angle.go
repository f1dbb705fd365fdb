// Package geometry holds the planar math used by the normalizer: angles,
// circle and arc subdivision, and polygon area.
package geometry

import (
	"math"

	"dxf-normalizer/internal/normalizer/models"
)

// East is the reference direction for DXF angles.
var East = models.Vec{X: 1, Y: 0}

// CounterclockwiseAngle returns the angle in degrees, in [0, 360), that v1
// must be rotated counterclockwise to point along v2. A zero-length vector
// yields 0.
func CounterclockwiseAngle(v1, v2 models.Vec) float64 {
	if v1.Hypot() == 0 || v2.Hypot() == 0 {
		return 0
	}
	deg := math.Atan2(v1.Cross(v2), v1.Dot(v2)) * 180 / math.Pi
	return NormalizeDegrees(deg)
}

// NormalizeDegrees maps deg into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -tiny + 360 rounds to 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}
