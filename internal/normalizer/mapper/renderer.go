package mapper

import (
	"fmt"
	"math"
	"strings"

	"github.com/jbeda/geom"

	"dxf-normalizer/internal/normalizer/geometry"
	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Renderer
// ============================================================

type Renderer struct {
	// Margin is added around the drawing, as a fraction of its larger side.
	Margin float64
}

func NewRenderer() *Renderer {
	return &Renderer{Margin: 0.02}
}

// Render draws the entities as an SVG preview. Y is flipped so the
// picture has its usual orientation. Entities the normalizer does not
// model are not drawn.
func (r *Renderer) Render(entities []models.Entity) (string, error) {
	if entities == nil {
		return "", fmt.Errorf("no entities to render")
	}

	var elements []string
	bounds, found := geom.Rect{}, false
	for _, e := range entities {
		elem, b, ok := r.renderEntity(e)
		if !ok {
			continue
		}
		elements = append(elements, elem)
		if !found {
			bounds, found = b, true
		} else {
			bounds.ExpandToContainRect(b)
		}
	}

	viewBox := r.viewBox(bounds, found)
	stroke := math.Max(viewBox.Width(), viewBox.Height()) / 500

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s">`,
		formatFloat(viewBox.Min.X), formatFloat(viewBox.Min.Y), formatFloat(viewBox.Width()), formatFloat(viewBox.Height())))
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf(`  <g fill="none" stroke-width="%s">`, formatFloat(stroke)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("    ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString("  </g>\n")
	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

func (r *Renderer) viewBox(bounds geom.Rect, found bool) geom.Rect {
	if !found {
		return geom.Rect{Max: geom.Coord{X: 1000, Y: 1000}}
	}

	pad := math.Max(bounds.Width(), bounds.Height()) * r.Margin
	if pad == 0 {
		pad = 1
	}
	return geom.Rect{
		Min: bounds.Min.Minus(geom.Coord{X: pad, Y: pad}),
		Max: bounds.Max.Plus(geom.Coord{X: pad, Y: pad}),
	}
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) renderEntity(e models.Entity) (string, geom.Rect, bool) {
	attrs := fmt.Sprintf(`id="%s" data-layer="%s"`, e.Handle, e.Layer)

	switch g := e.Geometry.(type) {
	case models.LineGeometry:
		a, b := screen(g.Start), screen(g.End)
		bounds := geom.Rect{Min: a, Max: a}
		bounds.ExpandToContainCoord(b)
		return fmt.Sprintf(`<line %s x1="%s" y1="%s" x2="%s" y2="%s" stroke="#000" />`,
			attrs, formatFloat(a.X), formatFloat(a.Y), formatFloat(b.X), formatFloat(b.Y)), bounds, true

	case models.CircleGeometry:
		c := screen(g.Center)
		return fmt.Sprintf(`<circle %s cx="%s" cy="%s" r="%s" stroke="#1f77b4" />`,
			attrs, formatFloat(c.X), formatFloat(c.Y), formatFloat(g.Radius)), circleBounds(c, g.Radius), true

	case models.ArcGeometry:
		c := screen(g.Center)
		if g.Sweep() >= 360 {
			return fmt.Sprintf(`<circle %s cx="%s" cy="%s" r="%s" stroke="#1f77b4" />`,
				attrs, formatFloat(c.X), formatFloat(c.Y), formatFloat(g.Radius)), circleBounds(c, g.Radius), true
		}
		var path strings.Builder
		path.WriteString("M ")
		path.WriteString(formatPoint(screen(g.StartPoint())))
		path.WriteString(arcTo(g.EndPoint(), g.Radius, g.Sweep() > 180, true))
		return fmt.Sprintf(`<path %s d="%s" stroke="#1f77b4" />`, attrs, path.String()), circleBounds(c, g.Radius), true

	case models.PolylineGeometry:
		if len(g.Vertices) == 0 {
			return "", geom.Rect{}, false
		}
		return r.renderPolyline(attrs, g)
	}

	return "", geom.Rect{}, false
}

func (r *Renderer) renderPolyline(attrs string, g models.PolylineGeometry) (string, geom.Rect, bool) {
	first := screen(g.Vertices[0].Point)
	bounds := geom.Rect{Min: first, Max: first}

	var path strings.Builder
	path.WriteString("M ")
	path.WriteString(formatPoint(first))

	n := len(g.Vertices)
	segments := n - 1
	if g.Closed {
		segments = n
	}
	for i := 0; i < segments; i++ {
		v, next := g.Vertices[i], g.Vertices[(i+1)%n]
		if v.Bulge == 0 {
			p := screen(next.Point)
			bounds.ExpandToContainCoord(p)
			path.WriteString(" L ")
			path.WriteString(formatPoint(p))
			continue
		}
		radius, large := geometry.BulgeRadius(v.Point, next.Point, v.Bulge)
		bounds.ExpandToContainCoord(screen(next.Point))
		bounds.ExpandToContainCoord(screen(bulgeMidpoint(v.Point, next.Point, v.Bulge)))
		path.WriteString(arcTo(next.Point, radius, large, v.Bulge > 0))
	}
	if g.Closed {
		path.WriteString(" Z")
	}

	return fmt.Sprintf(`<path %s d="%s" stroke="#d62728" />`, attrs, path.String()), bounds, true
}

// ============================================================
// Geometry helpers
// ============================================================

// screen maps a drawing point into SVG coordinates.
func screen(p models.Point) geom.Coord {
	return geom.Coord{X: p.X, Y: -p.Y}
}

// arcTo returns an SVG elliptical-arc command ending at p. Counterclockwise
// in drawing space is a negative sweep on screen.
func arcTo(p models.Point, radius float64, large, ccw bool) string {
	r := formatFloat(radius)
	return fmt.Sprintf(" A %s %s 0 %s %s %s", r, r, flag(large), flag(!ccw), formatPoint(screen(p)))
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// bulgeMidpoint returns the point halfway along a bulged segment.
func bulgeMidpoint(a, b models.Point, bulge float64) models.Point {
	chord := b.Sub(a)
	mid := models.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	// The sagitta is bulge * half chord, on the right of a->b for a
	// positive bulge.
	s := bulge / 2
	return mid.Add(models.Vec{X: chord.Y * s, Y: -chord.X * s})
}

func circleBounds(c geom.Coord, radius float64) geom.Rect {
	d := geom.Coord{X: radius, Y: radius}
	return geom.Rect{Min: c.Minus(d), Max: c.Plus(d)}
}

func formatPoint(c geom.Coord) string {
	return formatFloat(c.X) + " " + formatFloat(c.Y)
}
