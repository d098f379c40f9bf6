// Package chi is the HTTP API: session lifecycle, chat turns, and the
// search-history views, routed with go-chi.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain"
	"github.com/palate-labs/palate/internal/logger"
	"github.com/palate-labs/palate/internal/metrics"
	"github.com/palate-labs/palate/internal/version"
)

// HealthChecker reports the liveness of one backing dependency.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}

// Server exposes the conversation API over HTTP.
type Server struct {
	registry *Registry
	checkers []HealthChecker
	apiKeys  []string
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(registry *Registry, checkers []HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		registry: registry,
		checkers: checkers,
		logger:   logger,
	}
}

// WithAPIKeys enables Bearer authentication. Empty keys leave it disabled.
func (s *Server) WithAPIKeys(keys []string) *Server {
	s.apiKeys = keys
	return s
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.healthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/turns", s.postTurn)
			r.Get("/searches", s.listSearches)
			r.Get("/searches/display", s.displaySearches)
		})
	})

	return r
}

// requestLogger attaches a request-scoped logger carrying the request id
// to the context and echoes the id back to the caller.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := s.logger
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
			reqLog = reqLog.With(zap.String("request_id", reqID))
		}
		next.ServeHTTP(w, r.WithContext(logger.ContextWithLogger(r.Context(), reqLog)))
	})
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Version   string `json:"version"`
}

type turnRequest struct {
	Message string `json:"message"`
}

// createSession handles POST /v1/sessions.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, _ := s.registry.Create()
	logger.FromContext(r.Context()).Info("session created", zap.String("session_id", id))

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: id,
		Version:   version.Version,
	})
}

// deleteSession handles DELETE /v1/sessions/{sessionID}.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.registry.Delete(id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("session deleted", zap.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// getSession handles GET /v1/sessions/{sessionID}: a diagnostic summary
// of the conversation so far.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Summary())
}

// postTurn handles POST /v1/sessions/{sessionID}/turns.
func (s *Server) postTurn(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "message is required")
		return
	}

	log := logger.FromContext(r.Context())
	resp := sess.ProcessMessage(r.Context(), req.Message, func(fraction float64, message string) {
		log.Debug("turn progress",
			zap.String("session_id", sess.Memory().ID()),
			zap.Float64("fraction", fraction),
			zap.String("message", message),
		)
	})

	writeJSON(w, http.StatusOK, resp)
}

// listSearches handles GET /v1/sessions/{sessionID}/searches. With an
// ?index= query parameter it returns a single archived search.
func (s *Server) listSearches(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if raw := r.URL.Query().Get("index"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "index must be a non-negative integer")
			return
		}
		rec, ok := sess.SearchByIndex(idx)
		if !ok {
			writeError(w, http.StatusNotFound, "search_not_found", "no search at that index")
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"searches": sess.SearchHistory(),
	})
}

// displaySearches handles GET /v1/sessions/{sessionID}/searches/display.
func (s *Server) displaySearches(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"searches": sess.FormatHistoryForDisplay(),
	})
}

// healthCheck handles GET /healthz.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.checkers))
	healthy := true
	for _, c := range s.checkers {
		if err := c.Ping(r.Context()); err != nil {
			checks[c.Name()] = "down: " + err.Error()
			healthy = false
		} else {
			checks[c.Name()] = "ok"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":  status,
		"checks":  checks,
		"version": version.Version,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", domain.ErrSessionNotFound.Error())
		return
	}
	logger.FromContext(r.Context()).Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
