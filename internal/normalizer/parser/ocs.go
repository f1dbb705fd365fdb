package parser

import (
	"fmt"
	"math"
	"strconv"

	"dxf-normalizer/internal/normalizer/geometry"
	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Object Coordinate System
// ============================================================

// Arcs, circles and lightweight polylines store their points in the
// entity's object coordinate system, whose Z axis is the extrusion
// direction (210/220/230). Lines are already in world coordinates.

type extrusion struct{ x, y, z float64 }

func readExtrusion(tags []models.Tag) (extrusion, error) {
	n := extrusion{z: 1}
	fields := map[int]*float64{210: &n.x, 220: &n.y, 230: &n.z}
	for _, tag := range tags {
		dst, ok := fields[tag.Code]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(tag.Value, 64)
		if err != nil {
			return n, fmt.Errorf("group code %d: invalid number %q", tag.Code, tag.Value)
		}
		*dst = v
	}
	return n, nil
}

// alongZ reports whether the extrusion is parallel to the world Z axis.
func (n extrusion) alongZ() bool {
	length := math.Sqrt(n.x*n.x + n.y*n.y + n.z*n.z)
	if length == 0 {
		return false
	}
	const eps = 1e-9
	return math.Abs(n.x) <= eps*length && math.Abs(n.y) <= eps*length
}

func (n extrusion) String() string {
	return fmt.Sprintf("(%g, %g, %g)", n.x, n.y, n.z)
}

// mirrorGeometry maps geometry stored under a (0, 0, -1) extrusion into
// world coordinates: the object X axis points along world -X.
func mirrorGeometry(g any) any {
	switch g := g.(type) {
	case models.CircleGeometry:
		g.Center.X = -g.Center.X
		return g
	case models.ArcGeometry:
		g.Center.X = -g.Center.X
		// Counterclockwise in object space is clockwise in the world.
		g.StartAngle, g.EndAngle = geometry.NormalizeDegrees(180-g.EndAngle), geometry.NormalizeDegrees(180-g.StartAngle)
		return g
	case models.PolylineGeometry:
		vs := make([]models.Vertex, len(g.Vertices))
		for i, v := range g.Vertices {
			vs[i] = models.Vertex{Point: models.Point{X: -v.X, Y: v.Y}, Bulge: -v.Bulge}
		}
		g.Vertices = vs
		return g
	}
	return g
}

// mirrorExtra drops the extrusion tags and flips the values measured
// along it (center Z, elevation, thickness) so the entity reads the same
// under the default extrusion.
func mirrorExtra(extra []models.Tag) []models.Tag {
	var out []models.Tag
	for _, tag := range extra {
		switch tag.Code {
		case 210, 220, 230:
			continue
		case 30, 38, 39:
			if v, err := strconv.ParseFloat(tag.Value, 64); err == nil && v != 0 {
				tag.Value = strconv.FormatFloat(-v, 'f', -1, 64)
			}
		}
		out = append(out, tag)
	}
	return out
}
