// Package service orchestrates verification requests: it runs the comparison,
// discrepancy, compliance, scoring and decision engines over a request and
// persists everything a pass produces atomically with its audit event.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"docverify/internal/comparison"
	"docverify/internal/compliance"
	"docverify/internal/decision"
	"docverify/internal/discrepancy"
	"docverify/internal/platform/config"
	"docverify/internal/scoring"
	"docverify/internal/verification/metrics"
	"docverify/internal/verification/models"
	"docverify/internal/verification/ports"
	"docverify/internal/verification/store"
	id "docverify/pkg/domain"
	dErrors "docverify/pkg/domain-errors"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

const (
	defaultReviewQueueLimit = 50
	maxReviewQueueLimit     = 200
)

// Pipeline bundles the engines one processing pass runs. All of them are pure and
// safe for concurrent use.
type Pipeline struct {
	Comparator *comparison.Comparator
	Detector   *discrepancy.Detector
	Evaluator  *compliance.Evaluator
	Scorer     *scoring.Engine
	Decider    *decision.Engine
}

// NewPipeline builds the engines from validated configuration. Any invalid
// section yields a CodeConfiguration error.
func NewPipeline(cfg config.Engine) (*Pipeline, error) {
	comparator, err := comparison.New(cfg.Comparison)
	if err != nil {
		return nil, err
	}
	detector, err := discrepancy.New(cfg.Severity)
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewEngine(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	decider, err := decision.NewEngine(cfg.Decision)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Comparator: comparator,
		Detector:   detector,
		Evaluator:  compliance.NewEvaluator(),
		Scorer:     scorer,
		Decider:    decider,
	}, nil
}

// Service implements the verification operations.
type Service struct {
	store     store.Store
	documents ports.DocumentSource
	policies  ports.PolicySource
	auditor   ports.AuditPublisher
	pipeline  *Pipeline
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithDocumentSource replaces the store as the source of extracted documents.
func WithDocumentSource(src ports.DocumentSource) Option {
	return func(s *Service) {
		s.documents = src
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(st store.Store, policies ports.PolicySource, auditor ports.AuditPublisher, pipeline *Pipeline, opts ...Option) *Service {
	s := &Service{
		store:     st,
		documents: st,
		policies:  policies,
		auditor:   auditor,
		pipeline:  pipeline,
		logger:    slog.Default(),
		tracer:    otel.Tracer("docverify/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest opens a pending verification request.
func (s *Service) CreateRequest(ctx context.Context, in models.CreateRequest) (*models.Request, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	req := &models.Request{
		ID:               id.NewRequestID(),
		CustomerID:       in.CustomerID,
		AccountReference: in.AccountReference,
		DocumentSet:      in.DocumentSet,
		CustomerData:     in.CustomerData,
		Priority:         in.Priority,
		Status:           models.StatusPending,
		CreatedAt:        requestcontext.Now(ctx),
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.CreateRequest(ctx, req); err != nil {
			return err
		}
		return s.auditor.Emit(ctx, audit.Event{
			Action:  audit.EventVerificationCreated,
			Subject: req.ID.String(),
			ActorID: requestcontext.Actor(ctx).ID,
			Details: map[string]any{
				"customer_id":  req.CustomerID,
				"document_set": req.DocumentSet,
				"priority":     req.Priority,
			},
		})
	})
	if err != nil {
		return nil, translate(err, "failed to create verification request")
	}

	s.logger.InfoContext(ctx, "verification request created",
		"request_id", req.ID.String(),
		"document_set", req.DocumentSet,
		"priority", req.Priority,
	)
	return req, nil
}

// AttachDocument stores the extracted content of one document. Only pending
// requests accept documents.
func (s *Service) AttachDocument(ctx context.Context, requestID id.RequestID, doc models.Document) (*models.Document, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request ID required")
	}
	doc.ID = id.NewDocumentID()
	doc.RequestID = requestID
	doc.CreatedAt = requestcontext.Now(ctx)

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.StatusPending {
			return dErrors.Newf(dErrors.CodeInvalidState, "documents can only be attached to pending requests, request is %s", req.Status)
		}
		return tx.AddDocument(ctx, &doc)
	})
	if err != nil {
		return nil, translate(err, "failed to attach document")
	}
	return &doc, nil
}

func (s *Service) GetRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, translate(err, "failed to load verification request")
	}
	return req, nil
}

// GetDiscrepancies returns the discrepancies raised for a request, sorted by field.
func (s *Service) GetDiscrepancies(ctx context.Context, requestID id.RequestID) ([]models.Discrepancy, error) {
	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	out, err := s.store.ListDiscrepancies(ctx, requestID)
	if err != nil {
		return nil, translate(err, "failed to load discrepancies")
	}
	return out, nil
}

// GetComplianceResults returns the compliance checks in evaluation order.
func (s *Service) GetComplianceResults(ctx context.Context, requestID id.RequestID) ([]models.ComplianceCheck, error) {
	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	out, err := s.store.ListComplianceChecks(ctx, requestID)
	if err != nil {
		return nil, translate(err, "failed to load compliance results")
	}
	return out, nil
}

// Results is everything a processing pass scored for a request.
type Results struct {
	Comparisons []models.FieldComparison `json:"comparisons"`
	Results     []models.Result          `json:"results"`
}

func (s *Service) GetResults(ctx context.Context, requestID id.RequestID) (*Results, error) {
	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	comps, err := s.store.ListComparisons(ctx, requestID)
	if err != nil {
		return nil, translate(err, "failed to load comparisons")
	}
	results, err := s.store.ListResults(ctx, requestID)
	if err != nil {
		return nil, translate(err, "failed to load results")
	}
	return &Results{Comparisons: comps, Results: results}, nil
}

// translate maps store sentinels onto domain codes. Coded errors pass through.
func translate(err error, msg string) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "verification request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
