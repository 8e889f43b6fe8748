package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/crime-map-service/internal/adapter/http"
	"github.com/couchcryptid/crime-map-service/internal/domain"
	"github.com/couchcryptid/crime-map-service/internal/mapview"
	"github.com/couchcryptid/crime-map-service/internal/observability"
	"github.com/couchcryptid/crime-map-service/internal/render"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type testEnv struct {
	srv   *httpadapter.Server
	scene *mapview.Scene
	ctrl  *mapview.Controller
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func features() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, d := range []string{"1", "2"} {
		x := float64(i)
		f := geojson.NewPolygonFeature([][][]float64{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}})
		f.SetProperty(domain.DistrictProperty, d)
		fc.AddFeature(f)
	}
	return fc
}

func newTestEnv(t *testing.T, readyErr error) testEnv {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	scene := mapview.NewScene(600, 600)
	ctrl := mapview.New(scene, mapview.Options{}, discardLogger(), metrics)
	require.NoError(t, ctrl.Initialize(domain.MonthlyDataset{
		"2023-01": {{District: 1, TotalCrimes: 10}, {District: 2, TotalCrimes: 50, Arrest: 7}},
		"2023-02": {{District: 1, TotalCrimes: 5}},
	}, features()))

	srv := httpadapter.NewServer(":0", httpadapter.Deps{
		View:     scene,
		Records:  ctrl,
		Renderer: render.NewCache(ctrl, 8, metrics),
		Ready:    &mockReadiness{err: readyErr},
	}, discardLogger())
	return testEnv{srv: srv, scene: scene, ctrl: ctrl}
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// --- operational endpoints ---

func TestHealthzReturns200(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := do(t, env.srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := do(t, env.srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	env := newTestEnv(t, errors.New("map has not been initialized"))
	rec := do(t, env.srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := do(t, env.srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- page and SVG ---

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := do(t, env.srv, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `id="monthSelector"`)
	assert.Contains(t, body, `<option value="2023-01" selected>2023-01</option>`)
	assert.Contains(t, body, `<option value="2023-02">2023-02</option>`)
	assert.Contains(t, body, `id="map-chart"`)
	assert.Contains(t, body, `class="district"`)
}

func TestIndexPage_ThrottlesPointerUpdates(t *testing.T) {
	env := newTestEnv(t, nil)
	body := do(t, env.srv, http.MethodGet, "/", "").Body.String()

	assert.Equal(t, 1, strings.Count(body, `"api/pointer"`), "pointer updates go through one sender")
	assert.Contains(t, body, "window.requestAnimationFrame(flushPointer)")
	assert.Contains(t, body, "pointerBusy")
}

func TestUnknownPathIs404(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := do(t, env.srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapSVG_ReflectsSelection(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv, http.MethodGet, "/map.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `data-month="2023-01"`)

	env.scene.Select("2023-02")
	rec = do(t, env.srv, http.MethodGet, "/map.svg", "")
	assert.Contains(t, rec.Body.String(), `data-month="2023-02"`)
}

func TestMonthSVG(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv, http.MethodGet, "/months/2023-02/map.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-month="2023-02"`)
	assert.Equal(t, "2023-01", env.ctrl.CurrentMonth(), "month render does not change the selection")

	rec = do(t, env.srv, http.MethodGet, "/months/1999-01/map.svg", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, env.srv, http.MethodGet, "/months/january/map.svg", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- API ---

func TestSelection(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv, http.MethodPut, "/api/selection", `{"month":"2023-02"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	st := decode[mapview.SceneState](t, rec)
	assert.Equal(t, "2023-02", st.Selected)
	require.Len(t, st.Shapes, 2)
	assert.Equal(t, 5, st.Shapes[0].Crimes)
	assert.Equal(t, "#7f0000", st.Shapes[0].Fill)
	assert.Equal(t, "#fff7ec", st.Shapes[1].Fill)
	assert.Equal(t, "2023-02", env.ctrl.CurrentMonth())
}

func TestSelection_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	for name, body := range map[string]string{
		"malformed json": `{"month":`,
		"missing month":  `{}`,
		"bad format":     `{"month":"Jan 2023"}`,
		"unknown field":  `{"month":"2023-01","extra":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, env.srv, http.MethodPut, "/api/selection", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[map[string]string](t, rec), "error")
		})
	}
	assert.Equal(t, "2023-01", env.ctrl.CurrentMonth())
}

func TestSelection_WrongMethod(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := do(t, env.srv, http.MethodGet, "/api/selection", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHoverFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv, http.MethodPost, "/api/hover", `{"key":"feature-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	tip := decode[mapview.Tooltip](t, rec)
	assert.True(t, tip.Visible)
	assert.Equal(t, []string{"District 2", "Crimes: 50", "Month: 2023-01"}, tip.Lines)

	rec = do(t, env.srv, http.MethodPost, "/api/pointer", `{"key":"feature-1","x":100,"y":200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	tip = decode[mapview.Tooltip](t, rec)
	assert.Equal(t, domain.Point{X: 110, Y: 180}, tip.Position)

	svg := do(t, env.srv, http.MethodGet, "/map.svg", "").Body.String()
	assert.Contains(t, svg, `stroke-width="2"`)

	rec = do(t, env.srv, http.MethodPost, "/api/hover/end", `{"key":"feature-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[mapview.Tooltip](t, rec).Visible)

	svg = do(t, env.srv, http.MethodGet, "/map.svg", "").Body.String()
	assert.NotContains(t, svg, `stroke-width="2"`)
}

func TestHover_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusNotFound, do(t, env.srv, http.MethodPost, "/api/hover", `{"key":"nope"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, env.srv, http.MethodPost, "/api/hover/end", `{"key":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, env.srv, http.MethodPost, "/api/hover", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, env.srv, http.MethodPost, "/api/pointer", `{"key":"feature-0"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, env.srv, http.MethodPost, "/api/pointer", `{"key":"nope","x":1,"y":1}`).Code)
}

func TestView(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.srv, http.MethodGet, "/api/view", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[mapview.SceneState](t, rec)
	assert.Equal(t, []string{"2023-01", "2023-02"}, st.Months)
	assert.Equal(t, 600, st.Width)
	assert.Len(t, st.Shapes, 2)
}

func TestDistrict(t *testing.T) {
	type response struct {
		Month   string                `json:"month"`
		HasData bool                  `json:"has_data"`
		Record  domain.DistrictRecord `json:"record"`
	}
	env := newTestEnv(t, nil)

	rec := do(t, env.srv, http.MethodGet, "/api/districts/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[response](t, rec)
	assert.Equal(t, "2023-01", got.Month)
	assert.True(t, got.HasData)
	assert.Equal(t, 50, got.Record.TotalCrimes)
	assert.Equal(t, 7, got.Record.Arrest)

	rec = do(t, env.srv, http.MethodGet, "/api/districts/2?month=2023-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[response](t, rec)
	assert.False(t, got.HasData)
	assert.Equal(t, 2, got.Record.District)
	assert.Equal(t, 0, got.Record.TotalCrimes)

	assert.Equal(t, http.StatusBadRequest, do(t, env.srv, http.MethodGet, "/api/districts/two", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, env.srv, http.MethodGet, "/api/districts/2?month=bad", "").Code)
}
