// Package devserver is a local in-memory stand-in for the campaign backend.
// It implements the HTTP endpoints and the push channel the client consumes,
// simulating delivery outcomes so the full dispatch-and-observe flow can be
// exercised without real infrastructure.
package devserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/meghana-0211/email-automation/internal/api"
	"github.com/meghana-0211/email-automation/internal/datasource"
	"github.com/meghana-0211/email-automation/internal/metrics"
)

// Config holds devserver settings.
type Config struct {
	ListenAddr   string
	APIKey       string        // empty disables auth
	EmitInterval time.Duration // delay between simulated sends
}

// Server is the stub backend.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	router  *chi.Mux

	httpServer *http.Server

	mu        sync.Mutex
	templates []api.Template
	jobs      map[string]*api.JobStatus
	buckets   map[string]*api.HourlyBucket
	totals    api.WireMetrics

	connsMu sync.Mutex
	conns   map[*websocket.Conn]bool
}

// New creates a devserver.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Server {
	if cfg.EmitInterval <= 0 {
		cfg.EmitInterval = 200 * time.Millisecond
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		router:  chi.NewRouter(),
		jobs:    make(map[string]*api.JobStatus),
		buckets: make(map[string]*api.HourlyBucket),
		conns:   make(map[*websocket.Conn]bool),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Handle("/ws", websocket.Handler(s.handleWS))
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/templates", s.handleCreateTemplate)
		r.Get("/templates", s.handleListTemplates)
		r.Post("/upload/csv", s.handleUploadCSV)
		r.Post("/google-sheets/connect", s.handleConnectSheet)
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{id}/status", s.handleJobStatus)
		r.Get("/analytics/hourly", s.handleHourly)
	})
}

// Handler returns the HTTP handler, for mounting under httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devserver listening", "addr", s.cfg.ListenAddr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeConns()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" && r.Header.Get("X-API-Key") != s.cfg.APIKey {
			s.writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "invalid or missing API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl api.Template
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid template payload"})
		return
	}
	if tmpl.Name == "" || tmpl.Content == "" {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "name and content are required"})
		return
	}
	tmpl.ID = uuid.NewString()

	s.mu.Lock()
	s.templates = append(s.templates, tmpl)
	s.mu.Unlock()

	s.writeJSON(w, http.StatusCreated, tmpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := append([]api.Template(nil), s.templates...)
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "file part required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "unreadable file"})
		return
	}
	ds, err := datasource.ParseCSV(content)
	if err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{Error: err.Error()})
		return
	}

	preview := ds.Rows
	if len(preview) > 5 {
		preview = preview[:5]
	}
	s.writeJSON(w, http.StatusOK, api.CSVUploadResponse{Columns: ds.Columns, Preview: preview})
}

func (s *Server) handleConnectSheet(w http.ResponseWriter, r *http.Request) {
	var req api.SheetConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type != "google_sheet" || req.Source == "" {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "google_sheet source required"})
		return
	}

	// deterministic sample sheet
	resp := api.SheetConnectResponse{
		Columns: []string{"Email", "Name", "Company"},
		Preview: []map[string]string{
			{"Email": "alice@example.com", "Name": "Alice", "Company": "Acme"},
			{"Email": "bob@example.com", "Name": "Bob", "Company": "Bolt"},
			{"Email": "carol@example.com", "Name": "Carol", "Company": "Crate"},
		},
		TotalRecipients: 3,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req api.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid job payload"})
		return
	}
	if req.TemplateID == "" {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "template_id required"})
		return
	}
	if len(req.Recipients) == 0 {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "recipients required"})
		return
	}
	if req.ThrottleRate <= 0 {
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "throttle_rate must be positive"})
		return
	}

	job := &api.JobStatus{
		ID:     uuid.NewString(),
		Status: "submitted",
		Total:  len(req.Recipients),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.simulate(job.ID, req.Recipients)

	s.writeJSON(w, http.StatusCreated, api.JobResponse{JobID: job.ID})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	job, ok := s.jobs[id]
	var record api.JobStatus
	if ok {
		record = *job
	}
	s.mu.Unlock()

	if !ok {
		s.writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "job not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	s.mu.Lock()
	out := make([]api.HourlyBucket, 0, len(s.buckets))
	for hour, b := range s.buckets {
		if t, err := time.Parse(time.RFC3339, hour); err == nil && t.Before(cutoff) {
			continue
		}
		out = append(out, *b)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	s.writeJSON(w, http.StatusOK, out)
}
