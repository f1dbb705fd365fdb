package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dxf-normalizer/internal/normalizer/history"
	"dxf-normalizer/internal/normalizer/mapper"
	"dxf-normalizer/internal/normalizer/models"
)

type fakeRepo struct {
	runs    []models.Run
	pingErr error
}

func (r *fakeRepo) Ping(context.Context) error { return r.pingErr }

func (r *fakeRepo) Record(_ context.Context, run models.Run) (*models.Run, error) {
	r.runs = append(r.runs, run)
	return &run, nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (*models.Run, error) {
	for i := range r.runs {
		if r.runs[i].ID == id {
			return &r.runs[i], nil
		}
	}
	return nil, history.ErrRunNotFound
}

func (r *fakeRepo) List(_ context.Context, limit int) ([]models.Run, error) {
	if limit >= 0 && limit < len(r.runs) {
		return r.runs[:limit], nil
	}
	return r.runs, nil
}

func newTestApp(t *testing.T) (*fiber.App, *fakeRepo, *history.FileStorage) {
	t.Helper()
	repo := &fakeRepo{}
	files := history.NewFileStorage(t.TempDir())
	app := fiber.New()
	NewHandler(repo, files, mapper.Options{}).Register(app)
	return app, repo, files
}

func upload(t *testing.T, target, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="4" height="4"/>
  <circle cx="20" cy="20" r="3"/>
</svg>`

func TestNormalize(t *testing.T) {
	app, repo, files := newTestApp(t)

	resp, err := app.Test(upload(t, "/normalize", "plan.svg", squareSVG))
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	var out struct {
		Run    models.Run    `json:"run"`
		Report mapper.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, 2, out.Report.Loops)
	assert.Equal(t, 1, out.Report.Circles)
	assert.Equal(t, "plan.svg", out.Run.InputName)
	assert.Equal(t, "http", out.Run.Source)
	require.Len(t, repo.runs, 1)
	assert.Equal(t, out.Run.ID, repo.runs[0].ID)

	id := out.Run.ID
	assert.True(t, files.Exists(files.InputPath(id, "plan.svg")))
	assert.True(t, files.Exists(files.OutputPath(id)))
	assert.True(t, files.Exists(files.PreviewPath(id)))
	report, err := os.ReadFile(files.ReportPath(id))
	require.NoError(t, err)
	assert.Contains(t, string(report), `"loops": 2`)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/runs/"+id+"/output", nil))
	require.NoError(t, err)
	dxf := readBody(t, resp)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "output.dxf")
	assert.Equal(t, 2, strings.Count(dxf, "LWPOLYLINE"))
	assert.NotContains(t, dxf, "CIRCLE")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/runs/"+id+"/preview", nil))
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "<svg")
	assert.Equal(t, "image/svg+xml", resp.Header.Get(fiber.HeaderContentType))
}

func TestNormalize_Errors(t *testing.T) {
	app, repo, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/normalize", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "file required")

	resp, err = app.Test(upload(t, "/normalize?arc_mode=spline", "plan.svg", squareSVG))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(upload(t, "/normalize?strict=maybe", "plan.svg", squareSVG))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "strict must be a boolean")

	resp, err = app.Test(upload(t, "/normalize", "plan.dxf", "0\nSECTION\n2\n"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	spline := "0\nSECTION\n2\nENTITIES\n0\nSPLINE\n5\n1A\n0\nENDSEC\n0\nEOF\n"
	resp, err = app.Test(upload(t, "/normalize?strict=true", "plan.dxf", spline))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "SPLINE")

	assert.Empty(t, repo.runs)
}

func TestNormalize_BulgeMode(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(upload(t, "/normalize?arc_mode=bulge", "c.svg", `<svg><circle cx="0" cy="0" r="1"/></svg>`))
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	var out struct {
		Report mapper.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out.Report.Polylines, 1)
	assert.InDelta(t, 3.14159265, out.Report.Polylines[0].Area, 1e-6)
}

func TestRender(t *testing.T) {
	app, repo, _ := newTestApp(t)

	resp, err := app.Test(upload(t, "/render", "plan.svg", squareSVG))
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, 4, strings.Count(body, "<line "))
	assert.Equal(t, 1, strings.Count(body, "<circle "))
	assert.Empty(t, repo.runs, "render does not record a run")
}

func TestRuns(t *testing.T) {
	app, repo, _ := newTestApp(t)
	repo.runs = []models.Run{{ID: "b", InputName: "b.dxf"}, {ID: "a", InputName: "a.dxf"}}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/runs?limit=1", nil))
	require.NoError(t, err)
	var list struct {
		Runs []models.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "b", list.Runs[0].ID)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/runs?limit=x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/runs/a", nil))
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "a.dxf")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/runs/zzz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/runs/a/output", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, "run without artifacts")
}

func TestHealth(t *testing.T) {
	app, repo, _ := newTestApp(t)

	for _, path := range []string{"/health/live", "/health/ready", "/health/startup"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}

	repo.pingErr = errors.New("database is locked")
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "database is locked")
}

func TestDocs(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	require.NoError(t, err)
	spec := readBody(t, resp)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, path := range []string{"/normalize:", "/render:", "/runs/{id}/output:"} {
		assert.Contains(t, spec, path)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/docs", nil))
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "/docs/openapi.yaml")
}
