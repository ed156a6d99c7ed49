package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/septivank/greenhouse-telemetry-worker/internal/db"
	"github.com/septivank/greenhouse-telemetry-worker/internal/state"
	"go.uber.org/zap"
)

// ReportSource provides the aggregated humidity report
type ReportSource interface {
	HourlyHumidityReport(ctx context.Context) ([]db.ReportRow, error)
}

// StateSource reads the last known state per device
type StateSource interface {
	Get(ctx context.Context, deviceID string) (*state.Record, error)
}

// Server serves the report and current-state endpoints consumed by the
// web dashboard
type Server struct {
	reports ReportSource
	states  StateSource
	logger  *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(reports ReportSource, states StateSource, logger *zap.Logger) *Server {
	return &Server{reports: reports, states: states, logger: logger}
}

// Handler builds the router. Any origin may read the report.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	// the report contract does not restrict the method
	r.HandleFunc("/api/report", s.handleReport)
	r.Get("/api/devices/{deviceID}", s.handleDeviceState)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.HourlyHumidityReport(r.Context())
	if err != nil {
		s.logger.Error("report query failed", zap.Error(err))
		http.Error(w, "could not build report", http.StatusInternalServerError)
		return
	}

	if rows == nil {
		rows = []db.ReportRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDeviceState(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	rec, err := s.states.Get(r.Context(), deviceID)
	if err != nil {
		s.logger.Error("device state lookup failed", zap.Error(err), zap.String("device_id", deviceID))
		http.Error(w, "could not read device state", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "unknown device", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
