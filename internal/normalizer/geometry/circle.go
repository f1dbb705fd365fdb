package geometry

import (
	"errors"
	"math"

	"dxf-normalizer/internal/normalizer/models"
)

// DefaultChordRatio is the sagitta tolerance as a fraction of the radius.
const DefaultChordRatio = 1.0 / 3.0

// maxSegments bounds subdivision for very small tolerances.
const maxSegments = 1 << 14

// ErrDegenerate is returned for circles and arcs without a usable radius
// or tolerance.
var ErrDegenerate = errors.New("degenerate curve")

// SegmentCount returns how many chords of sagitta at most tol are needed
// to cover sweep degrees of a circle of the given radius.
func SegmentCount(radius, sweep, tol float64) (int, error) {
	r := math.Abs(radius)
	if r == 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, ErrDegenerate
	}
	if !(tol > 0) {
		return 0, ErrDegenerate
	}
	s := math.Min(tol, r)
	chord := 2 * math.Sqrt(2*r*s-s*s)
	alpha := 2 * math.Asin(math.Min(chord/(2*r), 1))
	n := int(math.Ceil(sweep * math.Pi / 180 / alpha))
	if n < 1 {
		n = 1
	}
	return min(n, maxSegments), nil
}

// CirclePoints returns counterclockwise points on the circle, starting at
// angle 0. The last point repeats the first.
func CirclePoints(c models.CircleGeometry, tol float64) ([]models.Point, error) {
	n, err := SegmentCount(c.Radius, 360, tol)
	if err != nil {
		return nil, err
	}
	n = max(n, 2)

	r := math.Abs(c.Radius)
	pts := make([]models.Point, 0, n+1)
	step := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		sin, cos := math.Sincos(step * float64(i))
		pts = append(pts, models.Point{X: c.Center.X + r*cos, Y: c.Center.Y + r*sin})
	}
	return append(pts, pts[0]), nil
}

// CircleToArcs splits a circle into counterclockwise arcs that tile its
// circumference. Only consecutive points are paired; the repeated closing
// point is never paired with the first one.
func CircleToArcs(c models.CircleGeometry, tol float64) ([]models.ArcGeometry, error) {
	pts, err := CirclePoints(c, tol)
	if err != nil {
		return nil, err
	}

	arcs := make([]models.ArcGeometry, 0, len(pts)-1)
	for i := 0; i+1 < len(pts); i++ {
		start := CounterclockwiseAngle(East, pts[i].Sub(c.Center))
		end := CounterclockwiseAngle(East, pts[i+1].Sub(c.Center))
		arcs = append(arcs, models.ArcGeometry{
			Center:     c.Center,
			Radius:     math.Abs(c.Radius),
			StartAngle: start,
			EndAngle:   end,
		})
	}
	return arcs, nil
}
