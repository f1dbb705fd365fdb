package graph

import (
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"

	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Loop search
// ============================================================

// Limits bound the loop search. Zero means unlimited.
type Limits struct {
	// MaxLoops caps the number of loops returned.
	MaxLoops int `toml:"max_loops"`
	// MaxDepth caps the number of edges in one loop.
	MaxDepth int `toml:"max_depth"`
	// MaxSteps caps the number of edge expansions across the whole search.
	MaxSteps int `toml:"max_steps"`
}

type Options struct {
	// Tolerance is the distance under which endpoints are one vertex.
	Tolerance float64
	Limits    Limits
}

type Result struct {
	Loops      []models.Loop
	Degenerate []models.Edge
	Vertices   int
	Components int
	Steps      int
}

// frame is one vertex on the current DFS path.
type frame struct {
	vertex int
	// via is the graph edge used to reach vertex.
	via    int
	cursor int
}

// FindLoops enumerates every simple cycle of the deposit's edge graph.
// Each cycle is reported once, rooted at its lowest-index edge and walked
// in the direction that root edge points. Candidates at a vertex are tried
// in insertion order, so results are reproducible.
//
// When a limit is hit the loops found so far are returned together with
// an error wrapping models.ErrSearchTruncated.
func FindLoops(deposit models.Deposit, opts Options) (*Result, error) {
	g := NewGraphBuilder(opts.Tolerance)
	g.BuildFromDeposit(deposit)

	res := &Result{
		Degenerate: g.Degenerate(),
		Vertices:   len(g.vertices),
		Components: g.Components(),
	}

	s := &search{
		g:      g,
		limits: opts.Limits,
		eps:    opts.Tolerance,
		onPath: make([]bool, len(g.vertices)),
		seen:   make(map[string]struct{}),
	}

	var err error
	for root := range g.edges {
		if err = s.fromRoot(root); err != nil {
			break
		}
	}

	res.Loops = s.loops
	res.Steps = s.steps
	if err == nil && s.pruned {
		err = fmt.Errorf("%w: depth limit %d pruned the search", models.ErrSearchTruncated, opts.Limits.MaxDepth)
	}
	if err != nil {
		log.Printf("[LOOPS] search stopped: %v", err)
		return res, err
	}
	return res, nil
}

type search struct {
	g      *GraphBuilder
	limits Limits
	eps    float64
	onPath []bool
	seen   map[string]struct{}
	loops  []models.Loop
	steps  int
	stack  []frame
	// pruned is set when MaxDepth cut a branch short.
	pruned bool
}

func (s *search) fromRoot(root int) error {
	start := s.g.edges[root].u
	first := s.g.edges[root].v

	s.onPath[start] = true
	s.onPath[first] = true
	s.stack = append(s.stack[:0], frame{vertex: first, via: root})
	defer func() {
		for _, f := range s.stack {
			s.onPath[f.vertex] = false
		}
		s.onPath[start] = false
	}()

	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]
		adj := s.g.vertices[top.vertex].edges
		if top.cursor >= len(adj) {
			s.onPath[top.vertex] = false
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}

		next := adj[top.cursor]
		top.cursor++
		if next <= root || next == top.via {
			continue
		}

		s.steps++
		if s.limits.MaxSteps > 0 && s.steps > s.limits.MaxSteps {
			return fmt.Errorf("%w: step limit %d reached", models.ErrSearchTruncated, s.limits.MaxSteps)
		}

		w := s.g.other(next, top.vertex)
		if w == start {
			if err := s.record(start, next); err != nil {
				return err
			}
			continue
		}
		if s.onPath[w] {
			continue
		}
		// A cycle through w needs at least one more edge after next.
		if s.limits.MaxDepth > 0 && len(s.stack)+2 > s.limits.MaxDepth {
			s.pruned = true
			continue
		}

		s.onPath[w] = true
		s.stack = append(s.stack, frame{vertex: w, via: next})
	}
	return nil
}

// record turns the current path plus the closing edge into a loop.
func (s *search) record(start, closing int) error {
	ids := make([]int, 0, len(s.stack)+1)
	for _, f := range s.stack {
		ids = append(ids, f.via)
	}
	ids = append(ids, closing)

	if len(ids) == 2 && s.coincident(ids[0], ids[1]) {
		return nil
	}

	key := loopKey(ids)
	if _, dup := s.seen[key]; dup {
		return nil
	}
	if s.limits.MaxLoops > 0 && len(s.loops) >= s.limits.MaxLoops {
		return fmt.Errorf("%w: loop limit %d reached", models.ErrSearchTruncated, s.limits.MaxLoops)
	}
	s.seen[key] = struct{}{}

	loop := make(models.Loop, 0, len(ids))
	from := start
	for _, id := range ids {
		ge := s.g.edges[id]
		loop = append(loop, models.LoopEdge{Edge: ge.edge, Reversed: ge.u != from})
		from = s.g.other(id, from)
	}
	s.loops = append(s.loops, loop)
	return nil
}

// coincident reports whether two parallel edges trace the same curve, in
// which case they do not enclose anything.
func (s *search) coincident(a, b int) bool {
	return midpoint(s.g.edges[a].edge).Near(midpoint(s.g.edges[b].edge), s.eps)
}

func loopKey(ids []int) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
