package geometry

import (
	"math"

	"dxf-normalizer/internal/normalizer/models"
)

// ShoelaceArea returns the signed area of the polygon through pts.
// Counterclockwise polygons are positive. A repeated closing point is
// harmless.
func ShoelaceArea(pts []models.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// PolylineArea returns the signed area enclosed by a closed polyline.
// Bulged segments add or remove their circular segment.
func PolylineArea(vs []models.Vertex) float64 {
	pts := make([]models.Point, 0, len(vs))
	for _, v := range vs {
		pts = append(pts, v.Point)
	}
	area := ShoelaceArea(pts)

	for i, v := range vs {
		if v.Bulge == 0 {
			continue
		}
		next := vs[(i+1)%len(vs)]
		r, _ := BulgeRadius(v.Point, next.Point, v.Bulge)
		theta := 4 * math.Atan(math.Abs(v.Bulge))
		segment := r * r / 2 * (theta - math.Sin(theta))
		if v.Bulge > 0 {
			area += segment
		} else {
			area -= segment
		}
	}
	return area
}
