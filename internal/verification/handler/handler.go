package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docverify/internal/platform/middleware"
	"docverify/internal/verification/models"
	"docverify/internal/verification/service"
	id "docverify/pkg/domain"
	dErrors "docverify/pkg/domain-errors"
	"docverify/pkg/platform/httputil"
	"docverify/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/verification-mocks.go -package=mocks Service

// Service is the verification service interface.
type Service interface {
	CreateRequest(ctx context.Context, in models.CreateRequest) (*models.Request, error)
	AttachDocument(ctx context.Context, requestID id.RequestID, doc models.Document) (*models.Document, error)
	ProcessRequest(ctx context.Context, requestID id.RequestID) (*models.Outcome, error)
	GetRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	GetDiscrepancies(ctx context.Context, requestID id.RequestID) ([]models.Discrepancy, error)
	GetComplianceResults(ctx context.Context, requestID id.RequestID) ([]models.ComplianceCheck, error)
	GetResults(ctx context.Context, requestID id.RequestID) (*service.Results, error)
	ResolveDiscrepancy(ctx context.Context, actor requestcontext.ActorInfo, requestID id.RequestID, discrepancyID id.DiscrepancyID, resolution models.Resolution, note string) (*models.Discrepancy, error)
	Override(ctx context.Context, actor requestcontext.ActorInfo, requestID id.RequestID, approve bool, reason string) (*models.Request, error)
	ReviewQueue(ctx context.Context, limit int) ([]models.Request, error)
}

// Handler serves the verification endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{service: service, logger: logger, jwtValidator: jwtValidator}
}

// Register mounts the routes. Every route needs an authenticated reviewer;
// overriding a decision needs a supervisor.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, middleware.RoleReviewer))

		r.Post("/verifications", h.handleCreate)
		r.Get("/verifications/{id}", h.handleGet)
		r.Post("/verifications/{id}/documents", h.handleAttachDocument)
		r.Post("/verifications/{id}/process", h.handleProcess)
		r.Get("/verifications/{id}/discrepancies", h.handleDiscrepancies)
		r.Post("/verifications/{id}/discrepancies/{discrepancyID}/resolve", h.handleResolve)
		r.Get("/verifications/{id}/compliance", h.handleCompliance)
		r.Get("/verifications/{id}/results", h.handleResults)
		r.Get("/reviews", h.handleReviewQueue)

		r.With(middleware.RequireRole(h.logger, middleware.RoleSupervisor)).
			Post("/verifications/{id}/override", h.handleOverride)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	in, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req, err := h.service.CreateRequest(ctx, *in)
	if err != nil {
		h.writeError(ctx, w, err, "failed to create verification request")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.GetRequest(ctx, reqID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load verification request")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) handleAttachDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.AttachDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	doc, err := h.service.AttachDocument(ctx, reqID, in.Document())
	if err != nil {
		h.writeError(ctx, w, err, "failed to attach document")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	outcome, err := h.service.ProcessRequest(ctx, reqID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to process verification request")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

// DiscrepancyList wraps list responses so they can grow without breaking clients.
type DiscrepancyList struct {
	Discrepancies []models.Discrepancy `json:"discrepancies"`
	Count         int                  `json:"count"`
}

func (h *Handler) handleDiscrepancies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	list, err := h.service.GetDiscrepancies(ctx, reqID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load discrepancies")
		return
	}
	if list == nil {
		list = []models.Discrepancy{}
	}
	httputil.WriteJSON(w, http.StatusOK, DiscrepancyList{Discrepancies: list, Count: len(list)})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	discID, err := id.ParseDiscrepancyID(chi.URLParam(r, "discrepancyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.ResolveDiscrepancyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	d, err := h.service.ResolveDiscrepancy(ctx, requestcontext.Actor(ctx), reqID, discID, in.Resolution, in.Note)
	if err != nil {
		h.writeError(ctx, w, err, "failed to resolve discrepancy")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// ComplianceList is the compliance checks of a request in evaluation order.
type ComplianceList struct {
	Checks []models.ComplianceCheck `json:"checks"`
	Passed int                      `json:"passed"`
	Failed int                      `json:"failed"`
}

func (h *Handler) handleCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	checks, err := h.service.GetComplianceResults(ctx, reqID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load compliance results")
		return
	}
	resp := ComplianceList{Checks: checks}
	if resp.Checks == nil {
		resp.Checks = []models.ComplianceCheck{}
	}
	for _, c := range checks {
		if c.Passed {
			resp.Passed++
		} else {
			resp.Failed++
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	results, err := h.service.GetResults(ctx, reqID)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load results")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) handleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID, ok := h.requestID(w, r)
	if !ok {
		return
	}
	in, ok := httputil.DecodeAndPrepare[models.OverrideRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	req, err := h.service.Override(ctx, requestcontext.Actor(ctx), reqID, *in.Approve, in.Reason)
	if err != nil {
		h.writeError(ctx, w, err, "failed to override verification")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

// ReviewQueueResponse lists requests awaiting review.
type ReviewQueueResponse struct {
	Requests []models.Request `json:"requests"`
	Count    int              `json:"count"`
}

func (h *Handler) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	queue, err := h.service.ReviewQueue(ctx, limit)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load review queue")
		return
	}
	if queue == nil {
		queue = []models.Request{}
	}
	httputil.WriteJSON(w, http.StatusOK, ReviewQueueResponse{Requests: queue, Count: len(queue)})
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	reqID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RequestID{}, false
	}
	return reqID, true
}

// writeError logs server-side failures; client errors are returned as-is.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
