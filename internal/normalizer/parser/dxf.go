package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dxf-normalizer/internal/normalizer/models"
)

// ============================================================
// DXF Tag Reader
// ============================================================

var errUnexpectedEOF = errors.New("unexpected end of file")

type tagReader struct {
	sc   *bufio.Scanner
	line int
}

func newTagReader(r io.Reader) *tagReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &tagReader{sc: sc}
}

// next returns the next group code / value pair. io.EOF is returned only
// on a clean boundary between pairs.
func (tr *tagReader) next() (models.Tag, error) {
	if !tr.sc.Scan() {
		if err := tr.sc.Err(); err != nil {
			return models.Tag{}, err
		}
		return models.Tag{}, io.EOF
	}
	tr.line++
	codeLine := strings.TrimSpace(tr.sc.Text())
	if tr.line == 1 {
		codeLine = strings.TrimPrefix(codeLine, "\ufeff")
	}
	code, err := strconv.Atoi(codeLine)
	if err != nil {
		return models.Tag{}, fmt.Errorf("line %d: invalid group code %q", tr.line, codeLine)
	}

	if !tr.sc.Scan() {
		if err := tr.sc.Err(); err != nil {
			return models.Tag{}, err
		}
		return models.Tag{}, fmt.Errorf("line %d: %w", tr.line, errUnexpectedEOF)
	}
	tr.line++
	return models.Tag{Code: code, Value: strings.TrimSpace(tr.sc.Text())}, nil
}

// ============================================================
// DXF Parser
// ============================================================

// ParseDXF reads an ASCII DXF document. Sections other than ENTITIES are
// kept verbatim. LINE, ARC, CIRCLE and LWPOLYLINE become typed geometry;
// every other entity is kept as models.RawGeometry.
func ParseDXF(r io.Reader) (*models.Drawing, error) {
	tr := newTagReader(r)
	drawing := &models.Drawing{}

	for {
		tag, err := tr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if tag.Code != 0 {
			return nil, fmt.Errorf("line %d: group code %d outside a section", tr.line, tag.Code)
		}
		if tag.Value == "EOF" {
			break
		}
		if tag.Value != "SECTION" {
			return nil, fmt.Errorf("line %d: expected SECTION, got %q", tr.line, tag.Value)
		}

		name, err := tr.next()
		if err != nil {
			return nil, err
		}
		if name.Code != 2 {
			return nil, fmt.Errorf("line %d: section without a name", tr.line)
		}

		tags, err := readSection(tr)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", name.Value, err)
		}

		if name.Value != models.EntitiesSection {
			drawing.Sections = append(drawing.Sections, models.Section{Name: name.Value, Tags: tags})
			continue
		}
		drawing.Sections = append(drawing.Sections, models.Section{Name: name.Value})
		for _, group := range splitEntities(tags) {
			ent, err := parseEntity(group)
			if err != nil {
				return nil, err
			}
			drawing.Entities = append(drawing.Entities, ent)
		}
	}

	return drawing, nil
}

func readSection(tr *tagReader) ([]models.Tag, error) {
	var tags []models.Tag
	for {
		tag, err := tr.next()
		if errors.Is(err, io.EOF) {
			return nil, errUnexpectedEOF
		}
		if err != nil {
			return nil, err
		}
		if tag.Code == 0 && tag.Value == "ENDSEC" {
			return tags, nil
		}
		tags = append(tags, tag)
	}
}

// splitEntities groups a tag run into entities, each starting at code 0.
func splitEntities(tags []models.Tag) [][]models.Tag {
	var groups [][]models.Tag
	for _, tag := range tags {
		if tag.Code == 0 || len(groups) == 0 {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], tag)
	}
	return groups
}

func parseEntity(tags []models.Tag) (models.Entity, error) {
	if tags[0].Code != 0 {
		return models.Entity{}, fmt.Errorf("entity starts with group code %d", tags[0].Code)
	}
	kind := tags[0].Value
	body := tags[1:]

	ent := models.Entity{Layer: "0"}
	for _, tag := range body {
		switch tag.Code {
		case 5:
			ent.Handle = models.Handle(strings.ToUpper(tag.Value))
		case 8:
			ent.Layer = tag.Value
		}
	}

	var mirrored bool
	switch kind {
	case "CIRCLE", "ARC", "LWPOLYLINE":
		n, err := readExtrusion(body)
		if err != nil {
			return models.Entity{}, fmt.Errorf("%s #%s: %w", kind, ent.Handle, err)
		}
		if !n.alongZ() {
			ent.Geometry = models.RawGeometry{
				Type:   kind,
				Tags:   body,
				Reason: fmt.Sprintf("extrusion %v is not parallel to Z", n),
			}
			return ent, nil
		}
		mirrored = n.z < 0
	}

	var err error
	switch kind {
	case "LINE":
		ent.Geometry, ent.Extra, err = parseLine(body)
	case "CIRCLE":
		ent.Geometry, ent.Extra, err = parseCircle(body)
	case "ARC":
		ent.Geometry, ent.Extra, err = parseArc(body)
	case "LWPOLYLINE":
		ent.Geometry, ent.Extra, err = parseLWPolyline(body)
	default:
		ent.Geometry = models.RawGeometry{Type: kind, Tags: body}
	}
	if err != nil {
		return models.Entity{}, fmt.Errorf("%s #%s: %w", kind, ent.Handle, err)
	}
	if mirrored {
		ent.Geometry = mirrorGeometry(ent.Geometry)
		ent.Extra = mirrorExtra(ent.Extra)
	}
	return ent, nil
}

// common reports group codes the parser reads for every entity and the
// writer regenerates.
func common(code int) bool {
	return code == 5 || code == 8 || code == 100
}

type fieldSet map[int]*float64

// scan assigns the numeric codes in fields and returns every tag that is
// neither a field nor a common code.
func scan(tags []models.Tag, fields fieldSet) ([]models.Tag, error) {
	var extra []models.Tag
	for _, tag := range tags {
		if dst, ok := fields[tag.Code]; ok {
			v, err := strconv.ParseFloat(tag.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("group code %d: invalid number %q", tag.Code, tag.Value)
			}
			*dst = v
			continue
		}
		if !common(tag.Code) {
			extra = append(extra, tag)
		}
	}
	return extra, nil
}

func parseLine(tags []models.Tag) (any, []models.Tag, error) {
	var g models.LineGeometry
	extra, err := scan(tags, fieldSet{
		10: &g.Start.X, 20: &g.Start.Y,
		11: &g.End.X, 21: &g.End.Y,
	})
	return g, extra, err
}

func parseCircle(tags []models.Tag) (any, []models.Tag, error) {
	var g models.CircleGeometry
	extra, err := scan(tags, fieldSet{
		10: &g.Center.X, 20: &g.Center.Y,
		40: &g.Radius,
	})
	return g, extra, err
}

func parseArc(tags []models.Tag) (any, []models.Tag, error) {
	var g models.ArcGeometry
	extra, err := scan(tags, fieldSet{
		10: &g.Center.X, 20: &g.Center.Y,
		40: &g.Radius,
		50: &g.StartAngle, 51: &g.EndAngle,
	})
	return g, extra, err
}

// parseLWPolyline reads vertices (10/20) with their bulges (42). Per-vertex
// widths (40/41) and vertex ids (91) are dropped; the vertex count (90) is
// recomputed on write.
func parseLWPolyline(tags []models.Tag) (any, []models.Tag, error) {
	var (
		g     models.PolylineGeometry
		extra []models.Tag
	)
	for _, tag := range tags {
		switch tag.Code {
		case 10, 20, 42, 70:
			v, err := strconv.ParseFloat(tag.Value, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("group code %d: invalid number %q", tag.Code, tag.Value)
			}
			switch tag.Code {
			case 10:
				g.Vertices = append(g.Vertices, models.Vertex{Point: models.Point{X: v}})
			case 20, 42:
				if len(g.Vertices) == 0 {
					return nil, nil, fmt.Errorf("group code %d before the first vertex", tag.Code)
				}
				last := &g.Vertices[len(g.Vertices)-1]
				if tag.Code == 20 {
					last.Y = v
				} else {
					last.Bulge = v
				}
			case 70:
				g.Closed = int(v)&1 == 1
			}
		case 40, 41, 90, 91:
		default:
			if !common(tag.Code) {
				extra = append(extra, tag)
			}
		}
	}
	return g, extra, nil
}
