package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docverify/internal/platform/middleware"
	"docverify/internal/policy/models"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/httputil"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/policy-mocks.go -package=mocks Service

// Service exposes the policy snapshot.
type Service interface {
	Current(ctx context.Context) (*models.Snapshot, error)
	Refresh(ctx context.Context) (*models.Snapshot, error)
}

// Handler serves the policy snapshot endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{service: service, logger: logger, jwtValidator: jwtValidator}
}

// Register mounts the routes. Reading requires a reviewer, refreshing a supervisor.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.With(middleware.RequireRole(h.logger, middleware.RoleReviewer)).Get("/policies/snapshot", h.handleGetSnapshot)
		r.With(middleware.RequireRole(h.logger, middleware.RoleSupervisor)).Post("/policies/refresh", h.handleRefresh)
	})
}

// SnapshotResponse is the wire form of a snapshot.
type SnapshotResponse struct {
	Version string        `json:"version"`
	TakenAt string        `json:"taken_at"`
	Count   int           `json:"count"`
	Rules   []models.Rule `json:"rules"`
}

func toResponse(s *models.Snapshot) SnapshotResponse {
	rules := s.Rules
	if rules == nil {
		rules = []models.Rule{}
	}
	return SnapshotResponse{
		Version: s.Version,
		TakenAt: s.TakenAt.UTC().Format(time.RFC3339),
		Count:   len(rules),
		Rules:   rules,
	}
}

func (h *Handler) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.service.Current(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load policy snapshot")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(snap))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.service.Refresh(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to refresh policy snapshot")
		return
	}
	h.logger.InfoContext(ctx, "policy snapshot refreshed on demand",
		"version", snap.Version,
		"actor", requestcontext.Actor(ctx).ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, toResponse(snap))
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if errors.Is(err, sentinel.ErrUnavailable) {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "unavailable", ErrorDescription: msg})
		return
	}
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, msg))
}
