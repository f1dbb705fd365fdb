package mapper

import (
	"errors"
	"fmt"
	"log"
	"slices"

	"dxf-normalizer/internal/normalizer/assembler"
	"dxf-normalizer/internal/normalizer/geometry"
	"dxf-normalizer/internal/normalizer/graph"
	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Normalizer
// ============================================================

const DefaultTolerance = 1e-6

type Options struct {
	// Tolerance is the endpoint matching distance.
	Tolerance float64
	// ChordRatio sets the flattening sagitta to radius * ChordRatio.
	ChordRatio float64
	ArcMode    assembler.ArcMode
	// KeepCircleArcs inserts circle arcs as they are instead of letting
	// them close into polylines.
	KeepCircleArcs bool
	// Strict turns unsupported entities into a failure.
	Strict bool
	Limits graph.Limits
}

func (o Options) withDefaults() Options {
	if !(o.Tolerance > 0) {
		o.Tolerance = DefaultTolerance
	}
	if !(o.ChordRatio > 0) {
		o.ChordRatio = geometry.DefaultChordRatio
	}
	if o.ArcMode == "" {
		o.ArcMode = assembler.ArcBulge
	}
	return o
}

// PolylineSummary describes one polyline a run created.
type PolylineSummary struct {
	Handle   models.Handle   `json:"handle,omitempty"`
	Layer    string          `json:"layer"`
	Vertices int             `json:"vertices"`
	Area     float64         `json:"area"`
	Sources  []models.Handle `json:"sources"`
}

// Report is the outcome of one normalization run.
type Report struct {
	Entities  int               `json:"entities"`
	Circles   int               `json:"circles"`
	Arcs      int               `json:"arcs"`
	Edges     int               `json:"edges"`
	Loops     int               `json:"loops"`
	Polylines []PolylineSummary `json:"polylines"`
	Deleted   int               `json:"deleted"`
	Inserted  int               `json:"inserted"`
	Truncated bool              `json:"truncated"`
	Warnings  []string          `json:"warnings"`
	// Unsupported lists the types of entities that could not join the
	// loop search.
	Unsupported []string `json:"unsupported,omitempty"`
}

func (r *Report) warn(err error) {
	log.Printf("[NORMALIZE] warning: %v", err)
	r.Warnings = append(r.Warnings, err.Error())
}

type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts.withDefaults()}
}

// Normalize analyzes the store's entities and applies the result.
func (n *Normalizer) Normalize(store Store) (*Report, error) {
	plan, report, err := n.Analyze(store.ReadAll(), store.NewHandle)
	if err != nil {
		return report, err
	}

	added, err := Reconcile(store, plan)
	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}

	// Polylines are inserted last, in report order.
	offset := len(added) - len(report.Polylines)
	for i := range report.Polylines {
		report.Polylines[i].Handle = added[offset+i]
	}

	log.Printf("[NORMALIZE] done: %d circles, %d loops, %d deleted, %d inserted",
		report.Circles, report.Loops, report.Deleted, report.Inserted)
	return report, nil
}

// Analyze works out the plan for a set of entities without touching any
// document. newHandle names the generated arcs so loops can refer to them.
func (n *Normalizer) Analyze(entities []models.Entity, newHandle func() models.Handle) (Plan, *Report, error) {
	opts := n.opts
	report := &Report{Entities: len(entities), Polylines: []PolylineSummary{}, Warnings: []string{}}

	var (
		plan      Plan
		searched  []models.Entity
		arcs      []models.Entity
		generated = make(map[models.Handle]struct{})
	)

	// Circles
	for _, ent := range entities {
		c, ok := ent.Geometry.(models.CircleGeometry)
		if !ok {
			searched = append(searched, ent)
			continue
		}

		pieces, err := geometry.CircleToArcs(c, c.Radius*opts.ChordRatio)
		if err != nil {
			report.warn(fmt.Errorf("circle %s left in place: %w", ent.Handle, err))
			continue
		}
		report.Circles++
		plan.Delete = append(plan.Delete, ent.Handle)

		for _, a := range pieces {
			h := newHandle()
			generated[h] = struct{}{}
			arcs = append(arcs, models.Entity{
				Handle:   h,
				Layer:    ent.Layer,
				Geometry: a,
				Extra:    inheritedTags(ent.Extra, 30, 39),
			})
		}
	}
	report.Arcs = len(arcs)

	if !opts.KeepCircleArcs {
		searched = append(searched, arcs...)
	}

	// Edges
	deposit, skipped := graph.ExtractEdges(searched)
	report.Edges = len(deposit)
	kinds := make(map[string]struct{})
	for _, err := range skipped {
		report.warn(err)
		var uerr *models.UnsupportedEntityError
		if errors.As(err, &uerr) {
			if _, dup := kinds[uerr.Type]; !dup {
				kinds[uerr.Type] = struct{}{}
				report.Unsupported = append(report.Unsupported, uerr.Type)
			}
		}
	}
	if opts.Strict && len(report.Unsupported) > 0 {
		return Plan{}, report, fmt.Errorf("%w: %v", models.ErrUnsupportedEntity, report.Unsupported)
	}

	// Loops
	res, err := graph.FindLoops(deposit, graph.Options{Tolerance: opts.Tolerance, Limits: opts.Limits})
	switch {
	case errors.Is(err, models.ErrSearchTruncated):
		report.Truncated = true
		report.warn(err)
	case err != nil:
		return Plan{}, report, fmt.Errorf("find loops: %w", err)
	}
	for _, e := range res.Degenerate {
		report.warn(fmt.Errorf("entity %s: degenerate edge ignored", e.Payload))
	}
	report.Loops = len(res.Loops)

	consumed := make(map[models.Handle]struct{})
	var polylines []models.Entity
	for _, loop := range res.Loops {
		pl, err := assembler.Assemble(loop, assembler.Options{
			Tolerance:  opts.Tolerance,
			ChordRatio: opts.ChordRatio,
			ArcMode:    opts.ArcMode,
		})
		if err != nil {
			report.warn(err)
			continue
		}

		for _, h := range loop.Handles() {
			consumed[h] = struct{}{}
		}
		layer := loop[0].Source.Layer
		polylines = append(polylines, models.Entity{
			Layer:    layer,
			Geometry: pl.Geometry(),
			Extra:    inheritedTags(loop[0].Source.Extra),
		})
		report.Polylines = append(report.Polylines, PolylineSummary{
			Layer:    layer,
			Vertices: len(pl.Vertices),
			Area:     geometry.PolylineArea(pl.Vertices),
			Sources:  loop.Handles(),
		})
	}

	// Plan
	for _, ent := range searched {
		_, used := consumed[ent.Handle]
		_, gen := generated[ent.Handle]
		if used && !gen {
			plan.Delete = append(plan.Delete, ent.Handle)
		}
	}
	for _, a := range arcs {
		if _, ok := consumed[a.Handle]; !ok {
			plan.Insert = append(plan.Insert, a)
		}
	}
	plan.Insert = append(plan.Insert, polylines...)

	report.Deleted = len(plan.Delete)
	report.Inserted = len(plan.Insert)
	return plan, report, nil
}

// attributeCodes are the display and ownership group codes a generated
// entity takes over from its source: owner, linetype, linetype scale,
// visibility, paper space, colour, layout, lineweight and transparency.
var attributeCodes = map[int]struct{}{
	6: {}, 48: {}, 60: {}, 62: {}, 67: {}, 330: {}, 370: {}, 410: {}, 420: {}, 430: {}, 440: {},
}

// inheritedTags returns the attribute tags of extra, plus any of the
// given geometry codes. Reactors, extension dictionaries and xdata stay
// with the source entity.
func inheritedTags(extra []models.Tag, geometryCodes ...int) []models.Tag {
	var out []models.Tag
	group := false
	for _, tag := range extra {
		// 102 groups ({ACAD_REACTORS ... }) may carry 330 owner handles
		// that are not the entity's owner.
		if tag.Code == 102 {
			group = tag.Value != "}"
			continue
		}
		if group || tag.Code >= 1000 {
			continue
		}
		if _, ok := attributeCodes[tag.Code]; ok || slices.Contains(geometryCodes, tag.Code) {
			out = append(out, tag)
		}
	}
	return out
}
