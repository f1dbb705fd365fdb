package geometry

import (
	"math"

	"dxf-normalizer/internal/normalizer/models"
)

// ArcPoints flattens an arc into chords with sagitta at most tol. The
// first and last points are the arc's exact start and end points.
func ArcPoints(a models.ArcGeometry, tol float64) ([]models.Point, error) {
	sweep := a.Sweep()
	n, err := SegmentCount(a.Radius, sweep, tol)
	if err != nil {
		return nil, err
	}

	pts := make([]models.Point, 0, n+1)
	pts = append(pts, a.StartPoint())
	step := sweep / float64(n)
	for i := 1; i < n; i++ {
		pts = append(pts, a.PointAt(a.StartAngle+step*float64(i)))
	}
	return append(pts, a.EndPoint()), nil
}

// Bulge returns the DXF bulge of the arc walked counterclockwise.
func Bulge(a models.ArcGeometry) float64 {
	return math.Tan(a.Sweep() * math.Pi / 180 / 4)
}

// BulgeRadius returns the radius of the arc a bulge describes between two
// points, and whether that arc is larger than a half circle.
func BulgeRadius(p1, p2 models.Point, bulge float64) (float64, bool) {
	b := math.Abs(bulge)
	if b == 0 {
		return 0, false
	}
	d := p1.Distance(p2)
	return d * (1 + b*b) / (4 * b), b > 1
}
