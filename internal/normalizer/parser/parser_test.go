package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dxf-normalizer/internal/normalizer/models"
)

func dxf(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

var sample = dxf(
	"  0", "SECTION", "  2", "HEADER",
	"  9", "$ACADVER", "  1", "AC1015",
	"  9", "$HANDSEED", "  5", "30",
	"  0", "ENDSEC",
	"  0", "SECTION", "  2", "ENTITIES",
	"  0", "LINE", "  5", "1A", "  8", "Walls", " 62", "1",
	" 10", "0.0", " 20", "0.0", " 30", "0.0",
	" 11", "10.0", " 21", "0.0", " 31", "0.0",
	"  0", "CIRCLE", "  5", "1b", "100", "AcDbCircle",
	" 10", "5.0", " 20", "5.0", " 40", "2.5",
	"  0", "ARC", "  5", "1C",
	" 10", "1.0", " 20", "2.0", " 40", "3.0", " 50", "90.0", " 51", "180.0",
	"  0", "LWPOLYLINE", "  5", "1D", " 90", "3", " 70", "1", " 43", "0.0",
	" 10", "0.0", " 20", "0.0", " 42", "0.5",
	" 10", "1.0", " 20", "0.0",
	" 10", "1.0", " 20", "1.0",
	"  0", "SPLINE", "  5", "1E", " 71", "3",
	"  0", "ENDSEC",
	"  0", "EOF",
)

func TestParseDXF(t *testing.T) {
	d, err := ParseDXF(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, d.Sections, 2)
	assert.Equal(t, "HEADER", d.Sections[0].Name)
	assert.Len(t, d.Sections[0].Tags, 4)
	assert.Equal(t, models.EntitiesSection, d.Sections[1].Name)
	assert.Empty(t, d.Sections[1].Tags)

	require.Len(t, d.Entities, 5)

	line := d.Entities[0]
	assert.Equal(t, models.Handle("1A"), line.Handle)
	assert.Equal(t, "Walls", line.Layer)
	assert.Equal(t, models.LineGeometry{End: models.Point{X: 10}}, line.Geometry)
	assert.Equal(t, []models.Tag{{Code: 62, Value: "1"}, {Code: 30, Value: "0.0"}, {Code: 31, Value: "0.0"}}, line.Extra)

	circle := d.Entities[1]
	assert.Equal(t, models.Handle("1B"), circle.Handle, "handles are upper-cased")
	assert.Equal(t, "0", circle.Layer)
	assert.Equal(t, models.CircleGeometry{Center: models.Point{X: 5, Y: 5}, Radius: 2.5}, circle.Geometry)
	assert.Empty(t, circle.Extra, "subclass markers are regenerated, not kept")

	assert.Equal(t, models.ArcGeometry{Center: models.Point{X: 1, Y: 2}, Radius: 3, StartAngle: 90, EndAngle: 180}, d.Entities[2].Geometry)

	pl, ok := d.Entities[3].Geometry.(models.PolylineGeometry)
	require.True(t, ok)
	assert.True(t, pl.Closed)
	assert.Equal(t, []models.Vertex{
		{Point: models.Point{X: 0, Y: 0}, Bulge: 0.5},
		{Point: models.Point{X: 1, Y: 0}},
		{Point: models.Point{X: 1, Y: 1}},
	}, pl.Vertices)
	assert.Equal(t, []models.Tag{{Code: 43, Value: "0.0"}}, d.Entities[3].Extra)

	raw, ok := d.Entities[4].Geometry.(models.RawGeometry)
	require.True(t, ok)
	assert.Equal(t, "SPLINE", raw.Type)
	assert.Equal(t, "SPLINE", d.Entities[4].Kind())
	assert.Equal(t, []models.Tag{{Code: 5, Value: "1E"}, {Code: 71, Value: "3"}}, raw.Tags)
}

func TestParseDXF_CRLFAndMissingEOF(t *testing.T) {
	src := strings.ReplaceAll(dxf("0", "SECTION", "2", "ENTITIES", "0", "LINE", "10", "1", "11", "2", "0", "ENDSEC"), "\n", "\r\n")
	d, err := ParseDXF(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, d.Entities, 1)
	assert.Equal(t, models.LineGeometry{Start: models.Point{X: 1}, End: models.Point{X: 2}}, d.Entities[0].Geometry)
}

func TestParseDXF_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"bad code", dxf("x", "SECTION"), "invalid group code"},
		{"dangling code", dxf("0", "SECTION", "2"), "unexpected end of file"},
		{"no ENDSEC", dxf("0", "SECTION", "2", "ENTITIES", "0", "LINE"), "unexpected end of file"},
		{"not a section", dxf("0", "LINE"), "expected SECTION"},
		{"bad number", dxf("0", "SECTION", "2", "ENTITIES", "0", "CIRCLE", "40", "abc", "0", "ENDSEC"), "invalid number"},
		{"stray tag", dxf("8", "Layer"), "outside a section"},
		{"bulge first", dxf("0", "SECTION", "2", "ENTITIES", "0", "LWPOLYLINE", "42", "1", "0", "ENDSEC"), "before the first vertex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDXF(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParsePath(t *testing.T) {
	sp, err := ParsePath("M0,0 L10,0 l0,10 H0 Z M20 20 h5 v5")
	require.NoError(t, err)
	require.Len(t, sp, 2)
	assert.Equal(t, []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}}, sp[0])
	assert.Equal(t, []models.Point{{X: 20, Y: 20}, {X: 25, Y: 20}, {X: 25, Y: 25}}, sp[1])

	sp, err = ParsePath("m1 1 2 0 0 2z")
	require.NoError(t, err)
	require.Len(t, sp, 1)
	assert.Equal(t, []models.Point{{X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 3}, {X: 1, Y: 1}}, sp[0])

	sp, err = ParsePath("M1e1,0 L2.5e-1,0")
	require.NoError(t, err)
	require.Len(t, sp, 1)
	assert.Equal(t, []models.Point{{X: 10}, {X: 0.25}}, sp[0])

	_, err = ParsePath("M0 0 C1 1 2 2 3 3")
	assert.ErrorContains(t, err, "unsupported path command")

	_, err = ParsePath("  ")
	assert.Error(t, err)
}

func TestParseSVG(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg">
  <line x1="0" y1="0" x2="4" y2="0"/>
  <circle cx="10" cy="10" r="2"/>
  <circle cx="10" cy="10" r="0" id="dot"/>
  <g id="Frame">
    <rect x="0" y="0" width="2" height="1"/>
    <g>
      <path d="M0 0 L1 1" />
      <path id="curvy" d="M0 0 Q1 1 2 0" />
    </g>
  </g>
  <polygon points="0,0 1,0 1,1"/>
</svg>`

	d, warnings, err := ParseSVG(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Error(), "dot")
	assert.Contains(t, warnings[1].Error(), "curvy")

	kinds := make(map[string]int)
	layers := make(map[string]int)
	for _, e := range d.Entities {
		kinds[e.Kind()]++
		layers[e.Layer]++
	}
	assert.Equal(t, map[string]int{"LINE": 1 + 3 + 4 + 1, "CIRCLE": 1}, kinds)
	assert.Equal(t, map[string]int{"0": 5, "Frame": 5}, layers)

	assert.Equal(t, models.CircleGeometry{Center: models.Point{X: 10, Y: -10}, Radius: 2}, d.Entities[1].Geometry)
	assert.Empty(t, d.Sections)
}

func TestParseSVG_Invalid(t *testing.T) {
	_, _, err := ParseSVG(strings.NewReader("<svg><line"))
	assert.Error(t, err)
}

func TestParseDXF_MirroredExtrusion(t *testing.T) {
	src := dxf(
		"0", "SECTION", "2", "ENTITIES",
		"0", "ARC", "5", "A1", "10", "-5.0", "20", "0.0", "30", "2.0", "40", "1.0",
		"50", "0.0", "51", "180.0", "210", "0.0", "220", "0.0", "230", "-1.0",
		"0", "CIRCLE", "5", "C1", "10", "3.0", "20", "4.0", "40", "1.0", "230", "-1",
		"0", "LWPOLYLINE", "5", "P1", "38", "1.5", "230", "-1",
		"10", "1.0", "20", "0.0", "42", "0.5",
		"10", "2.0", "20", "1.0",
		"0", "ARC", "5", "A2", "10", "0", "20", "0", "40", "1", "50", "0", "51", "90",
		"210", "1", "220", "0", "230", "0",
		"0", "ENDSEC",
		"0", "EOF",
	)

	d, err := ParseDXF(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, d.Entities, 4)

	arc, ok := d.Entities[0].Geometry.(models.ArcGeometry)
	require.True(t, ok)
	assert.Equal(t, models.Point{X: 5}, arc.Center)
	assert.InDelta(t, 0, arc.StartAngle, 1e-12)
	assert.InDelta(t, 180, arc.EndAngle, 1e-12)
	assert.InDelta(t, 6, arc.StartPoint().X, 1e-12)
	assert.InDelta(t, 4, arc.EndPoint().X, 1e-12)
	assert.Equal(t, []models.Tag{{Code: 30, Value: "-2"}}, d.Entities[0].Extra, "extrusion tags are dropped")

	assert.Equal(t, models.CircleGeometry{Center: models.Point{X: -3, Y: 4}, Radius: 1}, d.Entities[1].Geometry)
	assert.Empty(t, d.Entities[1].Extra)

	assert.Equal(t, models.PolylineGeometry{Vertices: []models.Vertex{
		{Point: models.Point{X: -1}, Bulge: -0.5},
		{Point: models.Point{X: -2, Y: 1}},
	}}, d.Entities[2].Geometry)
	assert.Equal(t, []models.Tag{{Code: 38, Value: "-1.5"}}, d.Entities[2].Extra)

	raw, ok := d.Entities[3].Geometry.(models.RawGeometry)
	require.True(t, ok, "tilted arcs are kept as they are")
	assert.Equal(t, "ARC", raw.Type)
	assert.Contains(t, raw.Reason, "not parallel to Z")
	assert.Equal(t, models.Handle("A2"), d.Entities[3].Handle)
}
