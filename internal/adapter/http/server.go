package http

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/crime-map-service/internal/domain"
	"github.com/couchcryptid/crime-map-service/internal/mapview"
	"github.com/couchcryptid/crime-map-service/internal/render"
)

const maxBodyBytes = 1 << 16

//go:embed templates/index.html
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "templates/index.html"))

// View is the interactive surface requests are dispatched to.
type View interface {
	State() mapview.SceneState
	Tooltip() mapview.Tooltip
	Select(month string)
	HoverEnter(key string) bool
	PointerMove(key string, p domain.Point) bool
	HoverLeave(key string) bool
}

// Records answers per-district lookups.
type Records interface {
	CurrentMonth() string
	Record(month string, district int) (domain.DistrictRecord, bool)
}

// MonthRenderer renders any month without touching the view.
type MonthRenderer interface {
	Render(month string) ([]byte, bool)
}

// Deps are the collaborators behind the map routes.
type Deps struct {
	View     View
	Records  Records
	Renderer MonthRenderer
	Ready    sharedobs.ReadinessChecker
}

// Server exposes the map page, the map API, and health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	deps       Deps
}

// NewServer creates an HTTP server with the map, API and operational routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           accessLog(logger)(mux),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
		deps:   deps,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /map.svg", s.handleMapSVG)
	mux.HandleFunc("GET /months/{month}/map.svg", s.handleMonthSVG)
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("PUT /api/selection", s.handleSelection)
	mux.HandleFunc("POST /api/hover", s.handleHover)
	mux.HandleFunc("POST /api/hover/end", s.handleHoverEnd)
	mux.HandleFunc("POST /api/pointer", s.handlePointer)
	mux.HandleFunc("GET /api/districts/{district}", s.handleDistrict)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type indexData struct {
	Months           []string
	Selected         string
	Size             int
	SVG              template.HTML
	OffsetX, OffsetY float64
	StrokeWidth      float64
	HoverStrokeWidth float64
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	st := s.deps.View.State()
	var svg bytes.Buffer
	if err := render.Write(&svg, st); err != nil {
		s.logger.Error("render map failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	var page bytes.Buffer
	err := indexTmpl.Execute(&page, indexData{
		Months:           st.Months,
		Selected:         st.Selected,
		Size:             st.Width,
		SVG:              template.HTML(svg.String()), //nolint:gosec // generated by render.Write, attributes escaped
		OffsetX:          mapview.TooltipOffsetX,
		OffsetY:          mapview.TooltipOffsetY,
		StrokeWidth:      mapview.StrokeWidth,
		HoverStrokeWidth: mapview.HoverStrokeWidth,
	})
	if err != nil {
		s.logger.Error("render page failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page.Bytes())
}

func (s *Server) handleMapSVG(w http.ResponseWriter, _ *http.Request) {
	writeSVG(w, render.Bytes(s.deps.View.State()))
}

func (s *Server) handleMonthSVG(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	if !domain.ValidMonth(month) {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	doc, ok := s.deps.Renderer.Render(month)
	if !ok {
		writeError(w, http.StatusNotFound, "no data for month "+month)
		return
	}
	writeSVG(w, doc)
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.View.State())
}

type selectionRequest struct {
	Month string `json:"month"`
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !domain.ValidMonth(req.Month) {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	s.deps.View.Select(req.Month)
	writeJSON(w, http.StatusOK, s.deps.View.State())
}

type shapeRequest struct {
	Key string   `json:"key"`
	X   *float64 `json:"x,omitempty"`
	Y   *float64 `json:"y,omitempty"`
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	var req shapeRequest
	if !decodeShape(w, r, &req) {
		return
	}
	if !s.deps.View.HoverEnter(req.Key) {
		writeError(w, http.StatusNotFound, "unknown shape "+req.Key)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.View.Tooltip())
}

func (s *Server) handleHoverEnd(w http.ResponseWriter, r *http.Request) {
	var req shapeRequest
	if !decodeShape(w, r, &req) {
		return
	}
	if !s.deps.View.HoverLeave(req.Key) {
		writeError(w, http.StatusNotFound, "unknown shape "+req.Key)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.View.Tooltip())
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req shapeRequest
	if !decodeShape(w, r, &req) {
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	if !s.deps.View.PointerMove(req.Key, domain.Point{X: *req.X, Y: *req.Y}) {
		writeError(w, http.StatusNotFound, "unknown shape "+req.Key)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.View.Tooltip())
}

type districtResponse struct {
	Month   string                `json:"month"`
	HasData bool                  `json:"has_data"`
	Record  domain.DistrictRecord `json:"record"`
}

func (s *Server) handleDistrict(w http.ResponseWriter, r *http.Request) {
	district, err := strconv.Atoi(r.PathValue("district"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "district must be an integer")
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = s.deps.Records.CurrentMonth()
	} else if !domain.ValidMonth(month) {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	rec, ok := s.deps.Records.Record(month, district)
	if !ok {
		rec = domain.DistrictRecord{District: district, MonthYear: month}
	}
	writeJSON(w, http.StatusOK, districtResponse{Month: month, HasData: ok, Record: rec})
}

func decodeShape(w http.ResponseWriter, r *http.Request, req *shapeRequest) bool {
	if !decodeBody(w, r, req) {
		return false
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeSVG(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(doc)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
