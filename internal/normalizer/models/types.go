package models

import (
	"fmt"
	"math"
)

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(o Point) Vec {
	return Vec{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) Add(v Vec) Point {
	return Point{X: p.X + v.X, Y: p.Y + v.Y}
}

func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Near reports whether p and o are within eps of each other.
func (p Point) Near(o Point, eps float64) bool {
	return p.Distance(o) <= eps
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Vec is a 2D displacement.
type Vec struct {
	X float64
	Y float64
}

func (v Vec) Dot(o Vec) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec) Cross(o Vec) float64 { return v.X*o.Y - v.Y*o.X }
func (v Vec) Hypot() float64      { return math.Hypot(v.X, v.Y) }

// ============================================================
// Entities
// ============================================================

// Handle identifies an entity inside a document. DXF handles are hex
// strings; documents without handles get them assigned on load.
type Handle string

// Tag is one DXF group code / value pair.
type Tag struct {
	Code  int    `json:"code"`
	Value string `json:"value"`
}

type Entity struct {
	Handle   Handle `json:"handle"`
	Layer    string `json:"layer"`
	Geometry any    `json:"geometry"`
	// Extra holds attributes the normalizer does not interpret
	// (colour, linetype, lineweight...), written back unchanged.
	Extra []Tag `json:"extra,omitempty"`
}

// Kind returns the DXF entity type name for the geometry.
func (e Entity) Kind() string {
	switch g := e.Geometry.(type) {
	case CircleGeometry:
		return "CIRCLE"
	case LineGeometry:
		return "LINE"
	case ArcGeometry:
		return "ARC"
	case PolylineGeometry:
		return "LWPOLYLINE"
	case RawGeometry:
		return g.Type
	}
	return "UNKNOWN"
}

func (e Entity) String() string {
	return fmt.Sprintf("%s(#%s)", e.Kind(), e.Handle)
}

type CircleGeometry struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

type LineGeometry struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// ArcGeometry runs counterclockwise from StartAngle to EndAngle.
// Angles are in degrees.
type ArcGeometry struct {
	Center     Point   `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

// Sweep returns the counterclockwise angular extent in degrees, in (0, 360].
func (a ArcGeometry) Sweep() float64 {
	s := math.Mod(a.EndAngle-a.StartAngle, 360)
	if s <= 0 {
		s += 360
	}
	return s
}

// PointAt returns the point on the arc's circle at angle deg.
func (a ArcGeometry) PointAt(deg float64) Point {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return Point{X: a.Center.X + a.Radius*cos, Y: a.Center.Y + a.Radius*sin}
}

func (a ArcGeometry) StartPoint() Point { return a.PointAt(a.StartAngle) }
func (a ArcGeometry) EndPoint() Point   { return a.PointAt(a.EndAngle) }

// Vertex is a polyline vertex. Bulge describes the segment leaving the
// vertex: 0 is straight, tan(sweep/4) is an arc, negative is clockwise.
type Vertex struct {
	Point
	Bulge float64 `json:"bulge,omitempty"`
}

type PolylineGeometry struct {
	Vertices []Vertex `json:"vertices"`
	Closed   bool     `json:"closed"`
}

// RawGeometry is an entity the normalizer does not model. It is passed
// through untouched.
type RawGeometry struct {
	Type string `json:"type"`
	Tags []Tag  `json:"tags"`
	// Reason says why a normally supported type was kept raw.
	Reason string `json:"reason,omitempty"`
}

// ============================================================
// Edge graph
// ============================================================

// Edge is the two-endpoint view of a line or arc. A and B carry no
// direction until a loop traverses the edge.
type Edge struct {
	A       Point
	B       Point
	Payload Handle
	Source  Entity
	// Index is the insertion order inside the deposit.
	Index int
}

func (e Edge) String() string {
	return fmt.Sprintf("%s %v-%v", e.Source, e.A, e.B)
}

// Deposit is the pool of edges handed to the loop search.
type Deposit []Edge

type LoopEdge struct {
	Edge
	// Reversed means the loop walks the edge from B to A.
	Reversed bool
}

// From returns the endpoint the loop enters the edge at.
func (le LoopEdge) From() Point {
	if le.Reversed {
		return le.B
	}
	return le.A
}

// To returns the endpoint the loop leaves the edge at.
func (le LoopEdge) To() Point {
	if le.Reversed {
		return le.A
	}
	return le.B
}

// Loop is a closed chain of edges, each used once.
type Loop []LoopEdge

// Handles returns the payloads of every edge in the loop.
func (l Loop) Handles() []Handle {
	out := make([]Handle, 0, len(l))
	for _, le := range l {
		out = append(out, le.Payload)
	}
	return out
}

type Polyline struct {
	Vertices []Vertex
	Closed   bool
}

func (p Polyline) Geometry() PolylineGeometry {
	return PolylineGeometry{Vertices: p.Vertices, Closed: p.Closed}
}
