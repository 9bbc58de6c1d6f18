// Package server exposes scoresheet analysis over HTTP: an analyze
// endpoint accepting a URL or a file upload, a health probe, and
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scrutineer-app/scrutineer/infrastructure/parsers"
	"github.com/scrutineer-app/scrutineer/internal/application"
	"github.com/scrutineer-app/scrutineer/internal/domain"
	"github.com/scrutineer-app/scrutineer/internal/ports"
)

// maxUploadBytes caps multipart scoresheet uploads.
const maxUploadBytes = 20 << 20

// Server is the HTTP front end for the analyzer.
type Server struct {
	cfg      application.ServerConfig
	analyzer *application.Analyzer
	logger   *slog.Logger
	http     *http.Server
}

// analyzeRequest is the JSON body for URL-based analysis.
type analyzeRequest struct {
	URL      string `json:"url"`
	Division string `json:"division,omitempty"`
}

// errorResponse is the JSON shape for all error replies.
type errorResponse struct {
	Error     string   `json:"error"`
	Divisions []string `json:"divisions,omitempty"`
}

// New creates a server around the analyzer.
func New(cfg application.ServerConfig, analyzer *application.Analyzer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, analyzer: analyzer, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withCORS(mux),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
	return s
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(s.cfg.ShutdownTimeoutSeconds)*time.Second,
	)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts either a JSON body with a scoresheet URL or a
// multipart upload with a "file" part, runs every engine, and returns
// the analysis.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var (
		analysis *application.Analysis
		err      error
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		analysis, err = s.analyzeFromUpload(r)
	} else {
		analysis, err = s.analyzeFromJSON(r)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) analyzeFromJSON(r *http.Request) (*application.Analysis, error) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, &badRequestError{msg: "invalid JSON body"}
	}
	if req.URL == "" {
		return nil, &badRequestError{msg: "missing url"}
	}
	return s.analyzer.AnalyzeURL(r.Context(), req.URL, req.Division)
}

func (s *Server) analyzeFromUpload(r *http.Request) (*application.Analysis, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, &badRequestError{msg: "invalid multipart body"}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &badRequestError{msg: "missing file part"}
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, &badRequestError{msg: "failed to read upload"}
	}
	division := r.FormValue("division")
	return s.analyzer.AnalyzeContent(r.Context(), header.Filename, content, division)
}

// badRequestError marks client mistakes in the request envelope itself.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// writeError maps domain and infrastructure errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		badReq    *badRequestError
		choiceErr *parsers.DivisionChoiceError
		valErr    *domain.ValidationError
	)

	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	switch {
	case errors.As(err, &badReq):
		status = http.StatusBadRequest
	case errors.As(err, &choiceErr):
		status = http.StatusConflict
		resp.Divisions = choiceErr.Available
	case errors.Is(err, ports.ErrUnsupportedFormat),
		errors.Is(err, ports.ErrPrelimsScoresheet),
		errors.As(err, &valErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ports.ErrBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, ports.ErrFetchFailed):
		status = http.StatusBadGateway
	default:
		var parseErr *ports.ParseError
		if errors.As(err, &parseErr) {
			status = http.StatusUnprocessableEntity
		}
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("analyze request failed", "error", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// withCORS applies the configured CORS policy. The analyzer backs a
// public single-page UI, so cross-origin browser calls are expected.
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	allowAny := false
	for _, origin := range s.cfg.AllowedOrigins {
		if origin == "*" {
			allowAny = true
		}
		allowed[origin] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAny || allowed[origin]) {
			if allowAny {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
