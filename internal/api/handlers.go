// Package api provides the JSON HTTP interface over the battery history.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sjhan/battmon/internal/history"
	"github.com/sjhan/battmon/internal/model"
)

// Server is the HTTP server for battmon.
type Server struct {
	history *history.Manager
	mux     *http.ServeMux
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(addr string, h *history.Manager) *Server {
	srv := &Server{
		history: h,
		mux:     http.NewServeMux(),
	}

	srv.registerRoutes()

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      SecurityHeadersMiddleware(RecoveryMiddleware(LoggingMiddleware(srv.mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/history/desktop", s.handleDesktopHistory)
	s.mux.HandleFunc("GET /api/history/mobile", s.handleMobileHistory)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/devices", s.handleDevices)
	s.mux.HandleFunc("GET /api/latest", s.handleLatest)
	s.mux.HandleFunc("POST /api/backup", s.handleBackup)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// writeJSON marshals v to JSON into a buffer first, then writes it to the
// response. This ensures marshalling errors can be returned as a proper 500.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

// windowDays reads the ?days= query parameter, clamped to one year.
func windowDays(r *http.Request, fallback int) int {
	d := r.URL.Query().Get("days")
	if d == "" {
		return fallback
	}
	v, err := strconv.Atoi(d)
	if err != nil || v < 1 || v > 365 {
		return fallback
	}
	return v
}

func (s *Server) handleDesktopHistory(w http.ResponseWriter, r *http.Request) {
	recs := s.history.DesktopHistory(windowDays(r, 30))
	if recs == nil {
		recs = []model.DesktopRecord{}
	}
	writeJSON(w, r, recs)
}

func (s *Server) handleMobileHistory(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	recs := s.history.MobileHistory(device, windowDays(r, 30))
	if recs == nil {
		recs = []model.MobileRecord{}
	}
	writeJSON(w, r, recs)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.history.MonthlySummary())
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.history.Devices())
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	path := s.history.CreateBackup()
	if path == "" {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, map[string]string{"backup_path": path})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.history.Latest())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.history.Latest()

	status := "ok"
	if len(snap.LastSave) == 0 {
		status = "no_data"
	}

	sources := make(map[string]string, len(snap.LastSave))
	for k, v := range snap.LastSave {
		sources[k] = fmt.Sprintf("%ds ago", int(time.Since(v).Seconds()))
	}
	writeJSON(w, r, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"sources":   sources,
	})
}
