package assembler

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"dxf-normalizer/internal/normalizer/geometry"
	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Chain-to-Polyline Assembler
// ============================================================

// ArcMode selects how arc edges are written into a polyline.
type ArcMode string

const (
	// ArcFlatten replaces every arc with chords.
	ArcFlatten ArcMode = "flatten"
	// ArcBulge keeps every arc as a single bulged vertex.
	ArcBulge ArcMode = "bulge"
)

// ParseArcMode accepts "flatten", "bulge" or an empty string (bulge).
func ParseArcMode(s string) (ArcMode, error) {
	switch ArcMode(strings.ToLower(s)) {
	case ArcFlatten:
		return ArcFlatten, nil
	case "", ArcBulge:
		return ArcBulge, nil
	}
	return "", fmt.Errorf("unknown arc mode %q (want %q or %q)", s, ArcFlatten, ArcBulge)
}

type Options struct {
	// Tolerance is the endpoint matching distance.
	Tolerance float64
	// ChordRatio is the arc sagitta as a fraction of the radius.
	ChordRatio float64
	ArcMode    ArcMode
}

// Assemble chains the loop's edges end to end and returns a closed
// polyline. The edges may come in any order; each one is oriented to
// continue from where the previous one ended.
func Assemble(loop models.Loop, opts Options) (models.Polyline, error) {
	chain, err := Chain(loop, opts.Tolerance)
	if err != nil {
		return models.Polyline{}, err
	}

	ratio := opts.ChordRatio
	if !(ratio > 0) {
		ratio = geometry.DefaultChordRatio
	}

	var vs []models.Vertex
	for _, le := range chain {
		next, err := emit(le, ratio, opts.ArcMode)
		if err != nil {
			return models.Polyline{}, &models.MalformedLoopError{
				Handles: loop.Handles(),
				Reason:  fmt.Sprintf("edge %s: %v", le.Payload, err),
			}
		}
		vs = append(vs, next...)
	}

	vs = dedupe(vs, opts.Tolerance)
	if len(vs) < 2 {
		return models.Polyline{}, &models.MalformedLoopError{
			Handles: loop.Handles(),
			Reason:  "collapses to a single point",
		}
	}
	return models.Polyline{Vertices: vs, Closed: true}, nil
}

// Chain orders and orients the loop's edges so that each edge starts where
// the previous one ends. The first edge keeps its place and direction.
// Endpoints unified within eps of a shared vertex may sit up to 2*eps
// apart, so that is the largest gap accepted.
func Chain(loop models.Loop, eps float64) (models.Loop, error) {
	if len(loop) == 0 {
		return nil, &models.MalformedLoopError{Reason: "empty loop"}
	}
	reach := 2 * eps

	chain := make(models.Loop, 0, len(loop))
	chain = append(chain, loop[0])
	remaining := slices.Clone(loop[1:])
	end := loop[0].To()

	for len(remaining) > 0 {
		pick, reversed, gap := closest(remaining, end)
		if gap > reach {
			return nil, &models.MalformedLoopError{
				Handles: loop.Handles(),
				Gap:     gap,
				Reason:  fmt.Sprintf("no edge continues from %v", end),
			}
		}

		le := remaining[pick]
		le.Reversed = reversed
		chain = append(chain, le)
		end = le.To()
		remaining = slices.Delete(remaining, pick, pick+1)
	}

	if gap := end.Distance(chain[0].From()); gap > reach {
		return nil, &models.MalformedLoopError{
			Handles: loop.Handles(),
			Gap:     gap,
			Reason:  "chain does not close",
		}
	}
	return chain, nil
}

// closest finds the remaining edge with an endpoint nearest to p. Ties go
// to the earlier edge.
func closest(edges models.Loop, p models.Point) (int, bool, float64) {
	pick, reversed, best := -1, false, math.Inf(1)
	for i, le := range edges {
		if d := p.Distance(le.A); d < best {
			pick, reversed, best = i, false, d
		}
		if d := p.Distance(le.B); d < best {
			pick, reversed, best = i, true, d
		}
	}
	return pick, reversed, best
}

// emit returns the vertices an oriented edge contributes, excluding the
// point it ends at, which the following edge supplies.
func emit(le models.LoopEdge, ratio float64, mode ArcMode) ([]models.Vertex, error) {
	arc, ok := le.Source.Geometry.(models.ArcGeometry)
	if !ok {
		return []models.Vertex{{Point: le.From()}}, nil
	}

	if mode == ArcBulge {
		bulge := geometry.Bulge(arc)
		if le.Reversed {
			bulge = -bulge
		}
		return []models.Vertex{{Point: le.From(), Bulge: bulge}}, nil
	}

	pts, err := geometry.ArcPoints(arc, arc.Radius*ratio)
	if err != nil {
		return nil, err
	}
	if le.Reversed {
		slices.Reverse(pts)
	}
	// Use the graph endpoints so junctions match the neighbouring edges.
	pts[0] = le.From()

	out := make([]models.Vertex, 0, len(pts)-1)
	for _, p := range pts[:len(pts)-1] {
		out = append(out, models.Vertex{Point: p})
	}
	return out, nil
}

// dedupe drops vertices that repeat their predecessor, including a last
// vertex repeating the first.
func dedupe(vs []models.Vertex, eps float64) []models.Vertex {
	out := make([]models.Vertex, 0, len(vs))
	for _, v := range vs {
		if n := len(out); n > 0 && out[n-1].Near(v.Point, eps) {
			out[n-1].Bulge = v.Bulge
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[len(out)-1].Near(out[0].Point, eps) {
		out = out[:len(out)-1]
	}
	return out
}
