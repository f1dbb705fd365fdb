package graph

import (
	"math"

	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Graph Builder
// ============================================================

// GraphBuilder turns a deposit into an undirected multigraph. Endpoints
// closer than the tolerance collapse into one vertex.
type GraphBuilder struct {
	tolerance float64
	vertices  []vertex
	edges     []graphEdge
	grid      map[cell][]int
	// degenerate holds edges whose endpoints collapsed into one vertex.
	degenerate []models.Edge
}

type vertex struct {
	id    int
	point models.Point
	edges []int
}

type graphEdge struct {
	edge models.Edge
	u, v int
}

type cell struct {
	x, y int64
}

func NewGraphBuilder(tolerance float64) *GraphBuilder {
	return &GraphBuilder{
		tolerance: tolerance,
		grid:      make(map[cell][]int),
	}
}

// BuildFromDeposit adds every edge of the deposit in order. Edge order is
// kept: graph edge i is deposit edge i unless earlier edges were
// degenerate.
func (g *GraphBuilder) BuildFromDeposit(deposit models.Deposit) {
	g.reset()

	for _, e := range deposit {
		g.addEdge(e)
	}
}

func (g *GraphBuilder) addEdge(e models.Edge) {
	u := g.findOrCreateVertex(e.A)
	v := g.findOrCreateVertex(e.B)
	if u == v {
		g.degenerate = append(g.degenerate, e)
		return
	}

	idx := len(g.edges)
	g.edges = append(g.edges, graphEdge{edge: e, u: u, v: v})
	g.attachEdgeToVertex(u, idx)
	g.attachEdgeToVertex(v, idx)
}

func (g *GraphBuilder) findOrCreateVertex(p models.Point) int {
	c := g.cellOf(p)

	// Search the 3x3 block; a point within tolerance can only sit there.
	best := -1
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, id := range g.grid[cell{c.x + dx, c.y + dy}] {
				if !p.Near(g.vertices[id].point, g.tolerance) {
					continue
				}
				if best == -1 || id < best {
					best = id
				}
			}
		}
	}
	if best != -1 {
		return best
	}

	id := len(g.vertices)
	g.vertices = append(g.vertices, vertex{id: id, point: p})
	g.grid[c] = append(g.grid[c], id)
	return id
}

func (g *GraphBuilder) cellOf(p models.Point) cell {
	if g.tolerance <= 0 {
		return cell{int64(math.Float64bits(p.X)), int64(math.Float64bits(p.Y))}
	}
	return cell{
		x: int64(math.Floor(p.X / g.tolerance)),
		y: int64(math.Floor(p.Y / g.tolerance)),
	}
}

func (g *GraphBuilder) attachEdgeToVertex(vertexID, edgeIdx int) {
	g.vertices[vertexID].edges = append(g.vertices[vertexID].edges, edgeIdx)
}

func (g *GraphBuilder) reset() {
	g.vertices = g.vertices[:0]
	g.edges = g.edges[:0]
	g.degenerate = nil
	g.grid = make(map[cell][]int)
}

// GetVertices returns the unified vertex positions in creation order.
func (g *GraphBuilder) GetVertices() []models.Point {
	out := make([]models.Point, 0, len(g.vertices))
	for _, v := range g.vertices {
		out = append(out, v.point)
	}
	return out
}

// Degenerate returns the edges dropped because both endpoints unified.
func (g *GraphBuilder) Degenerate() []models.Edge {
	return g.degenerate
}

// Components returns the number of connected components that carry at
// least one edge.
func (g *GraphBuilder) Components() int {
	parent := make([]int, len(g.vertices))
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	for _, e := range g.edges {
		ru, rv := find(e.u), find(e.v)
		if ru != rv {
			parent[rv] = ru
		}
	}

	roots := make(map[int]struct{})
	for _, e := range g.edges {
		roots[find(e.u)] = struct{}{}
	}
	return len(roots)
}

// other returns the endpoint of edge idx opposite to vertex from.
func (g *GraphBuilder) other(idx, from int) int {
	e := g.edges[idx]
	if e.u == from {
		return e.v
	}
	return e.u
}
