// Package api exposes the read-only HTTP interface for the job tracker.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobsight/jobtracker/internal/jobs"
	"github.com/jobsight/jobtracker/internal/metrics"
	"github.com/jobsight/jobtracker/internal/middleware"
)

// Server wires HTTP handlers to the posting and run stores.
type Server struct {
	router chi.Router
	repo   jobs.PostingRepository
	runs   jobs.RunStore
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(repo jobs.PostingRepository, runs jobs.RunStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		repo:   repo,
		runs:   runs,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(middleware.Metrics)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/postings", s.listPostings)
		r.Get("/postings/lookup", s.lookupPosting)
		r.Get("/companies", s.listCompanies)
		r.Get("/runs", s.listRuns)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The posting store is the only hard dependency.
	if _, err := s.repo.ListCompanies(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "posting store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listPostings(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	status := jobs.Status(r.URL.Query().Get("status"))
	switch status {
	case "", jobs.StatusActive, jobs.StatusAbsent, jobs.StatusSuperseded:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	var (
		postings []jobs.JobPosting
		err      error
	)
	if company != "" {
		postings, err = s.repo.ListByCompany(r.Context(), company, status)
	} else if status != "" {
		postings, err = s.repo.ListByStatus(r.Context(), status)
	} else {
		s.writeError(w, http.StatusBadRequest, "company or status query parameter required")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list postings")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(postings),
		"postings": postings,
	})
}

// lookupPosting fetches one posting by URL. A superseded posting's response
// includes its canonical counterpart so callers can follow the group.
func (s *Server) lookupPosting(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}
	posting, err := s.repo.Get(r.Context(), url)
	if err != nil {
		if errors.Is(err, jobs.ErrPostingNotFound) {
			s.writeError(w, http.StatusNotFound, "posting not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch posting")
		return
	}

	payload := map[string]any{"posting": posting}
	if posting.DuplicateOf != "" {
		canonical, err := s.repo.Get(r.Context(), posting.DuplicateOf)
		if err == nil {
			payload["canonical"] = canonical
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.repo.ListCompanies(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list companies")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
