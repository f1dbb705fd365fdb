package mapper

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// DXF Writer
// ============================================================

// WriteDXF writes the drawing as ASCII DXF. Sections other than ENTITIES
// are copied verbatim except for $HANDSEED, which is set to handseed. A
// drawing without sections gets a minimal R2000 header.
func WriteDXF(w io.Writer, d *models.Drawing, handseed models.Handle) error {
	dw := &dxfWriter{w: bufio.NewWriter(w)}

	sections := d.Sections
	if len(sections) == 0 {
		sections = []models.Section{
			{Name: "HEADER", Tags: []models.Tag{
				{Code: 9, Value: "$ACADVER"}, {Code: 1, Value: "AC1015"},
				{Code: 9, Value: "$HANDSEED"}, {Code: 5, Value: string(handseed)},
			}},
			{Name: models.EntitiesSection},
		}
	}

	wroteEntities := false
	for _, s := range sections {
		dw.tag(0, "SECTION")
		dw.tag(2, s.Name)
		if s.Name == models.EntitiesSection {
			for _, e := range d.Entities {
				dw.entity(e)
			}
			wroteEntities = true
		} else {
			dw.sectionTags(s, handseed)
		}
		dw.tag(0, "ENDSEC")
	}
	if !wroteEntities {
		dw.tag(0, "SECTION")
		dw.tag(2, models.EntitiesSection)
		for _, e := range d.Entities {
			dw.entity(e)
		}
		dw.tag(0, "ENDSEC")
	}
	dw.tag(0, "EOF")

	if dw.err != nil {
		return dw.err
	}
	return dw.w.Flush()
}

type dxfWriter struct {
	w   *bufio.Writer
	err error
}

func (dw *dxfWriter) tag(code int, value string) {
	if dw.err != nil {
		return
	}
	_, dw.err = fmt.Fprintf(dw.w, "%3d\n%s\n", code, value)
}

func (dw *dxfWriter) num(code int, v float64) {
	dw.tag(code, formatFloat(v))
}

func (dw *dxfWriter) tags(tags []models.Tag) {
	for _, t := range tags {
		dw.tag(t.Code, t.Value)
	}
}

func (dw *dxfWriter) sectionTags(s models.Section, handseed models.Handle) {
	seed := false
	for _, t := range s.Tags {
		if seed && t.Code == 5 && handseed != "" {
			t.Value = string(handseed)
		}
		seed = s.Name == "HEADER" && t.Code == 9 && t.Value == "$HANDSEED"
		dw.tag(t.Code, t.Value)
	}
}

func (dw *dxfWriter) entity(e models.Entity) {
	if raw, ok := e.Geometry.(models.RawGeometry); ok {
		dw.tag(0, raw.Type)
		if e.Handle != "" && !hasCode(raw.Tags, 5) {
			dw.tag(5, string(e.Handle))
		}
		dw.tags(raw.Tags)
		return
	}

	head, body, tail := splitExtra(e.Extra)
	owner, attrs := splitOwner(head)

	dw.tag(0, e.Kind())
	if e.Handle != "" {
		dw.tag(5, string(e.Handle))
	}
	dw.tags(owner)
	dw.tag(100, "AcDbEntity")
	dw.tag(8, e.Layer)
	dw.tags(attrs)

	switch g := e.Geometry.(type) {
	case models.LineGeometry:
		dw.tag(100, "AcDbLine")
		dw.num(10, g.Start.X)
		dw.num(20, g.Start.Y)
		dw.num(11, g.End.X)
		dw.num(21, g.End.Y)
		dw.tags(body)
	case models.CircleGeometry:
		dw.tag(100, "AcDbCircle")
		dw.num(10, g.Center.X)
		dw.num(20, g.Center.Y)
		dw.num(40, g.Radius)
		dw.tags(body)
	case models.ArcGeometry:
		dw.tag(100, "AcDbCircle")
		dw.num(10, g.Center.X)
		dw.num(20, g.Center.Y)
		dw.num(40, g.Radius)
		dw.tags(body)
		dw.tag(100, "AcDbArc")
		dw.num(50, g.StartAngle)
		dw.num(51, g.EndAngle)
	case models.PolylineGeometry:
		dw.tag(100, "AcDbPolyline")
		dw.tag(90, strconv.Itoa(len(g.Vertices)))
		flags := 0
		if g.Closed {
			flags = 1
		}
		dw.tag(70, strconv.Itoa(flags))
		dw.tags(body)
		for _, v := range g.Vertices {
			dw.num(10, v.X)
			dw.num(20, v.Y)
			if v.Bulge != 0 {
				dw.num(42, v.Bulge)
			}
		}
	}
	dw.tags(tail)
}

// splitExtra sorts preserved tags into entity-level attributes, tags that
// belong after the geometry subclass marker, and extended data.
func splitExtra(extra []models.Tag) (head, body, tail []models.Tag) {
	for _, t := range extra {
		switch {
		case t.Code >= 1000:
			tail = append(tail, t)
		case t.Code < 10, t.Code >= 48 && t.Code <= 67, t.Code >= 102 && t.Code < 210, t.Code > 230:
			head = append(head, t)
		default:
			body = append(body, t)
		}
	}
	return head, body, tail
}

// splitOwner separates the 102 application groups and owner handles that
// precede the AcDbEntity marker.
func splitOwner(head []models.Tag) (owner, attrs []models.Tag) {
	inGroup := false
	for _, t := range head {
		switch {
		case t.Code == 102:
			inGroup = t.Value != "}"
			owner = append(owner, t)
		case inGroup, t.Code == 330, t.Code == 360:
			owner = append(owner, t)
		default:
			attrs = append(attrs, t)
		}
	}
	return owner, attrs
}

func hasCode(tags []models.Tag, code int) bool {
	for _, t := range tags {
		if t.Code == code {
			return true
		}
	}
	return false
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
