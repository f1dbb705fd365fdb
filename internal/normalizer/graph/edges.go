package graph

import (
	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// Edge extraction
// ============================================================

// ExtractEdges derives one edge per line or arc, in entity order. Circles
// and polylines are skipped silently: circles go through the flattener
// and polylines are already normalized. Anything else is reported as an
// *models.UnsupportedEntityError and never joins the loop search.
func ExtractEdges(entities []models.Entity) (models.Deposit, []error) {
	var (
		deposit models.Deposit
		skipped []error
	)

	for _, ent := range entities {
		a, b, err := endpoints(ent)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if a == nil {
			continue
		}

		deposit = append(deposit, models.Edge{
			A:       *a,
			B:       *b,
			Payload: ent.Handle,
			Source:  ent,
			Index:   len(deposit),
		})
	}

	return deposit, skipped
}

func endpoints(ent models.Entity) (*models.Point, *models.Point, error) {
	switch geom := ent.Geometry.(type) {
	case models.LineGeometry:
		return &geom.Start, &geom.End, nil
	case models.ArcGeometry:
		if !(geom.Radius > 0) {
			return nil, nil, &models.UnsupportedEntityError{Handle: ent.Handle, Type: ent.Kind(), Reason: "non-positive radius"}
		}
		a, b := geom.StartPoint(), geom.EndPoint()
		return &a, &b, nil
	case models.CircleGeometry, models.PolylineGeometry:
		return nil, nil, nil
	case models.RawGeometry:
		if geom.Reason != "" {
			return nil, nil, &models.UnsupportedEntityError{Handle: ent.Handle, Type: ent.Kind(), Reason: geom.Reason}
		}
	}
	return nil, nil, &models.UnsupportedEntityError{Handle: ent.Handle, Type: ent.Kind(), Reason: "no two-endpoint form"}
}

// midpoint returns a point halfway along the edge's source geometry. Two
// edges sharing both endpoints cover the same curve exactly when their
// midpoints coincide.
func midpoint(e models.Edge) models.Point {
	switch geom := e.Source.Geometry.(type) {
	case models.ArcGeometry:
		return geom.PointAt(geom.StartAngle + geom.Sweep()/2)
	}
	return models.Point{X: (e.A.X + e.B.X) / 2, Y: (e.A.Y + e.B.Y) / 2}
}
