package parser

import (
	"encoding/xml"
	"fmt"
	"io"

	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// XML Structures
// ============================================================

type Group struct {
	ID       string    `xml:"id,attr"`
	Lines    []Line    `xml:"line"`
	Circles  []Circle  `xml:"circle"`
	Rects    []Rect    `xml:"rect"`
	Paths    []Path    `xml:"path"`
	Polygons []Polygon `xml:"polygon"`
	Polys    []Polygon `xml:"polyline"`
	Groups   []Group   `xml:"g"`
}

type SVG struct {
	XMLName xml.Name `xml:"svg"`
	Group
}

type Line struct {
	ID string  `xml:"id,attr"`
	X1 float64 `xml:"x1,attr"`
	Y1 float64 `xml:"y1,attr"`
	X2 float64 `xml:"x2,attr"`
	Y2 float64 `xml:"y2,attr"`
}

type Circle struct {
	ID string  `xml:"id,attr"`
	CX float64 `xml:"cx,attr"`
	CY float64 `xml:"cy,attr"`
	R  float64 `xml:"r,attr"`
}

type Rect struct {
	ID     string  `xml:"id,attr"`
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

type Path struct {
	ID string `xml:"id,attr"`
	D  string `xml:"d,attr"`
}

type Polygon struct {
	ID     string `xml:"id,attr"`
	Points string `xml:"points,attr"`
}

// ============================================================
// Parser
// ============================================================

// ParseSVG reads line, circle, rect, path, polygon and polyline elements.
// Y is negated so the result uses mathematical orientation. Each <g> with
// an id becomes a layer. Elements that cannot be read are returned as
// warnings and skipped.
func ParseSVG(r io.Reader) (*models.Drawing, []error, error) {
	var svg SVG
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&svg); err != nil {
		return nil, nil, err
	}

	b := &svgBuilder{}
	b.walk(svg.Group, "0")
	return &models.Drawing{Entities: b.entities}, b.warnings, nil
}

type svgBuilder struct {
	entities []models.Entity
	warnings []error
}

func (b *svgBuilder) walk(g Group, layer string) {
	if g.ID != "" {
		layer = g.ID
	}

	for _, l := range g.Lines {
		b.line(layer, flip(l.X1, l.Y1), flip(l.X2, l.Y2))
	}

	for _, c := range g.Circles {
		if !(c.R > 0) {
			b.warnings = append(b.warnings, fmt.Errorf("circle %q: non-positive radius", c.ID))
			continue
		}
		b.entities = append(b.entities, models.Entity{
			Layer:    layer,
			Geometry: models.CircleGeometry{Center: flip(c.CX, c.CY), Radius: c.R},
		})
	}

	for _, rect := range g.Rects {
		b.chain(layer, []models.Point{
			flip(rect.X, rect.Y),
			flip(rect.X+rect.Width, rect.Y),
			flip(rect.X+rect.Width, rect.Y+rect.Height),
			flip(rect.X, rect.Y+rect.Height),
			flip(rect.X, rect.Y),
		})
	}

	for _, path := range g.Paths {
		subpaths, err := ParsePath(path.D)
		if err != nil {
			b.warnings = append(b.warnings, fmt.Errorf("path %q: %w", path.ID, err))
			continue
		}
		for _, sp := range subpaths {
			b.chain(layer, flipAll(sp))
		}
	}

	for _, p := range g.Polygons {
		pts := flipAll(pointPairs(parseCoords(p.Points)))
		if len(pts) > 0 {
			pts = append(pts, pts[0])
		}
		b.chain(layer, pts)
	}
	for _, p := range g.Polys {
		b.chain(layer, flipAll(pointPairs(parseCoords(p.Points))))
	}

	for _, child := range g.Groups {
		b.walk(child, layer)
	}
}

func (b *svgBuilder) line(layer string, a, c models.Point) {
	if a == c {
		return
	}
	b.entities = append(b.entities, models.Entity{
		Layer:    layer,
		Geometry: models.LineGeometry{Start: a, End: c},
	})
}

// chain emits one line per consecutive pair of points.
func (b *svgBuilder) chain(layer string, pts []models.Point) {
	for i := 1; i < len(pts); i++ {
		b.line(layer, pts[i-1], pts[i])
	}
}

func flip(x, y float64) models.Point {
	return models.Point{X: x, Y: -y}
}

func flipAll(pts []models.Point) []models.Point {
	out := make([]models.Point, len(pts))
	for i, p := range pts {
		out[i] = flip(p.X, p.Y)
	}
	return out
}

func pointPairs(coords []float64) []models.Point {
	pts := make([]models.Point, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		pts = append(pts, models.Point{X: coords[i], Y: coords[i+1]})
	}
	return pts
}
