// Package api exposes the HTTP interface for the feed sync worker.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/feedworks/feedsync/internal/config"
	"github.com/feedworks/feedsync/internal/feed"
	"github.com/feedworks/feedsync/internal/id/uuid"
	"github.com/feedworks/feedsync/internal/metrics"
	"github.com/feedworks/feedsync/internal/worker"
)

// WorkerService is the operation surface the HTTP layer drives.
type WorkerService interface {
	FindFeed(ctx context.Context, req worker.FindFeedRequest) error
	SyncFeed(ctx context.Context, req worker.SyncFeedRequest) error
	FetchStory(ctx context.Context, req worker.FetchStoryRequest) (feed.StoryResult, error)
}

// Server wires HTTP handlers to the worker service.
type Server struct {
	router chi.Router
	svc    WorkerService
	idGen  *uuid.Generator
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc WorkerService, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		idGen:  uuid.New(),
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/worker", func(r chi.Router) {
		r.Post("/find_feed", s.findFeed)
		r.Post("/sync_feed", s.syncFeed)
		r.Post("/fetch_story", s.fetchStory)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Outbound collaborators are created at startup; readiness tracks only
	// process liveness for now.
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) findFeed(w http.ResponseWriter, r *http.Request) {
	var req worker.FindFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FeedCreationID == 0 || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "feed_creation_id and url required")
		return
	}
	if err := s.svc.FindFeed(r.Context(), req); err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) syncFeed(w http.ResponseWriter, r *http.Request) {
	var req worker.SyncFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FeedID == 0 || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "feed_id and url required")
		return
	}
	if err := s.svc.SyncFeed(r.Context(), req); err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fetchStory(w http.ResponseWriter, r *http.Request) {
	var req worker.FetchStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FeedID == 0 || req.Offset < 0 || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "feed_id, offset and url required")
		return
	}
	result, err := s.svc.FetchStory(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

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
