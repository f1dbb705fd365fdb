package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dxf-normalizer/internal/normalizer/mapper"
	"dxf-normalizer/internal/normalizer/models"
)

func lineEnt(h string, x1, y1, x2, y2 float64) models.Entity {
	return models.Entity{
		Handle:   models.Handle(h),
		Layer:    "0",
		Geometry: models.LineGeometry{Start: models.Point{X: x1, Y: y1}, End: models.Point{X: x2, Y: y2}},
	}
}

func handles(ents []models.Entity) []models.Handle {
	out := make([]models.Handle, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Handle)
	}
	return out
}

func TestNewDocument_AssignsHandles(t *testing.T) {
	doc := NewDocument(&models.Drawing{
		Sections: []models.Section{
			{Name: "HEADER", Tags: []models.Tag{{Code: 9, Value: "$HANDSEED"}, {Code: 5, Value: "2A"}}},
			{Name: "OBJECTS", Tags: []models.Tag{{Code: 0, Value: "DICTIONARY"}, {Code: 5, Value: "3F"}}},
		},
		Entities: []models.Entity{
			lineEnt("10", 0, 0, 1, 0),
			lineEnt("", 0, 0, 1, 0),
			lineEnt("10", 0, 0, 1, 0),
		},
	})

	assert.Equal(t, []models.Handle{"10", "40", "41"}, handles(doc.ReadAll()))
	assert.Equal(t, models.Handle("42"), doc.HandleSeed())
	assert.Equal(t, models.Handle("42"), doc.NewHandle())
	assert.Equal(t, models.Handle("43"), doc.HandleSeed())
}

func TestDocument_AddDelete(t *testing.T) {
	doc := NewDocument(&models.Drawing{Entities: []models.Entity{
		lineEnt("1", 0, 0, 1, 0),
		lineEnt("2", 1, 0, 2, 0),
		lineEnt("3", 2, 0, 3, 0),
	}})
	assert.Equal(t, models.Handle("4"), doc.HandleSeed())

	require.NoError(t, doc.Delete("2"))
	assert.Error(t, doc.Delete("2"))
	assert.Equal(t, 2, doc.Len())

	assert.Equal(t, models.Handle("4"), doc.Add(lineEnt("", 5, 5, 6, 6)))
	assert.Equal(t, models.Handle("5"), doc.Add(lineEnt("1", 5, 5, 6, 6)), "taken handles are replaced")
	assert.Equal(t, models.Handle("FF"), doc.Add(lineEnt("FF", 5, 5, 6, 6)))
	assert.Equal(t, models.Handle("100"), doc.HandleSeed())

	require.NoError(t, doc.Delete("1"))
	assert.Equal(t, []models.Handle{"3", "4", "5", "FF"}, handles(doc.ReadAll()))

	e, ok := doc.Get("5")
	require.True(t, ok)
	assert.Equal(t, models.Handle("5"), e.Handle)
	_, ok = doc.Get("1")
	assert.False(t, ok)

	require.NoError(t, doc.Delete("4"))
	assert.Equal(t, []models.Handle{"3", "5", "FF"}, handles(doc.ReadAll()))
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.dxf"))
	require.ErrorIs(t, err, models.ErrInput)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.dxf")
	require.NoError(t, os.WriteFile(bad, []byte("0\nSECTION\n2\nENTITIES\n0\nLINE\n10\nnope\n0\nENDSEC\n"), 0o644))
	_, err = Load(bad)
	require.ErrorIs(t, err, models.ErrInput)
	var ierr *models.InputError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, bad, ierr.Path)
	assert.Contains(t, err.Error(), "bad.dxf")
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "out.dxf", OutputPath("out"))
	assert.Equal(t, "out.dxf", OutputPath("out.dxf"))
	assert.Equal(t, "dir/plan.svg", OutputPath("dir/plan.svg"))
	assert.Equal(t, FormatSVG, FormatOf("A.SVG"))
	assert.Equal(t, FormatDXF, FormatOf("a.dxf"))
	assert.Equal(t, FormatDXF, FormatOf("a"))
}

func TestNormalizeThroughFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.svg")
	svg := `<svg xmlns="http://www.w3.org/2000/svg">
  <circle cx="0" cy="0" r="5"/>
  <rect x="10" y="10" width="4" height="3"/>
  <line x1="-20" y1="0" x2="-30" y2="0"/>
</svg>`
	require.NoError(t, os.WriteFile(in, []byte(svg), 0o644))

	doc, err := Load(in)
	require.NoError(t, err)
	assert.Empty(t, doc.Warnings)
	assert.Equal(t, 6, doc.Len())

	report, err := mapper.New(mapper.Options{}).Normalize(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Loops)

	out := filepath.Join(dir, "nested", "out.dxf")
	require.NoError(t, Save(doc, out))

	again, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, doc.ReadAll(), again.ReadAll())
	assert.Equal(t, doc.HandleSeed(), again.HandleSeed())

	second, err := mapper.New(mapper.Options{}).Normalize(again)
	require.NoError(t, err)
	assert.Zero(t, second.Loops)
	assert.Zero(t, second.Deleted)
	assert.Zero(t, second.Inserted)

	preview := filepath.Join(dir, "out.svg")
	require.NoError(t, Save(again, preview))
	data, err := os.ReadFile(preview)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "<path "))
	assert.Equal(t, 1, strings.Count(string(data), "<line "))

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
