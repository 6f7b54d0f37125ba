package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"docverify/internal/comparison"
	"docverify/internal/compliance"
	policymodels "docverify/internal/policy/models"
	"docverify/internal/scoring"
	"docverify/internal/verification/models"
	"docverify/internal/verification/store"
	id "docverify/pkg/domain"
	dErrors "docverify/pkg/domain-errors"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/requestcontext"
)

// pass is everything one pipeline run produces for a request.
type pass struct {
	requestID     id.RequestID
	comparisons   []models.FieldComparison
	discrepancies []models.Discrepancy
	checks        []models.ComplianceCheck
	results       []models.Result
	outcome       models.Outcome
}

// ProcessRequest runs the pipeline over a pending request and records the outcome.
//
// Inputs are loaded and checked for cancellation first; a request cancelled before
// scoring starts is left untouched. The pipeline itself is pure. Its output, the
// status change and the audit event are then written in one transaction that
// ignores caller cancellation. Configuration errors are returned without writing
// anything; any other scoring or decision failure moves the request to failed.
func (s *Service) ProcessRequest(ctx context.Context, requestID id.RequestID) (_ *models.Outcome, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "verification.process")
	span.SetAttributes(attribute.String("request_id", requestID.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
		s.metrics.ObserveProcess(start)
	}()

	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request ID required")
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, translate(err, "failed to load verification request")
	}
	if req.Status != models.StatusPending {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "request is %s, only pending requests can be processed", req.Status)
	}

	docs, err := s.documents.ListDocuments(ctx, requestID)
	if err != nil {
		return nil, translate(err, "failed to load documents")
	}
	snap, err := s.policies.Current(ctx)
	if err != nil {
		return nil, translate(err, "failed to load compliance policies")
	}
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "processing cancelled before scoring")
	}

	// From here on the pass runs to completion.
	ctx = context.WithoutCancel(ctx)
	now := requestcontext.Now(ctx)
	span.SetAttributes(attribute.String("policy_version", snap.Version))

	p, err := s.run(ctx, req, docs, snap, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConfiguration) {
			s.logger.ErrorContext(ctx, "verification engine misconfigured",
				"request_id", requestID.String(),
				"error", err,
			)
			return nil, err
		}
		return nil, s.fail(ctx, req.ID, err, now)
	}

	if err := s.persist(ctx, p, now); err != nil {
		return nil, err
	}

	s.metrics.RecordOutcome(string(p.outcome.Status), p.outcome.Approved, p.outcome.OverallScore)
	for _, d := range p.discrepancies {
		s.metrics.IncDiscrepancy(string(d.Severity))
	}
	s.logger.InfoContext(ctx, "verification processed",
		"request_id", requestID.String(),
		"status", p.outcome.Status,
		"score", p.outcome.OverallScore,
		"escalated", p.outcome.Escalated,
		"policy_version", p.outcome.PolicyVersion,
		"discrepancies", len(p.discrepancies),
	)
	return &p.outcome, nil
}

// run executes the engines. Panics in any stage become pipeline failures.
func (s *Service) run(ctx context.Context, req *models.Request, docs []models.Document, snap *policymodels.Snapshot, now time.Time) (p *pass, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dErrors.Wrap(fmt.Errorf("panic: %v", r), dErrors.CodePipelineFailure, "verification pipeline failed")
		}
	}()

	p = &pass{requestID: req.ID}
	pl := s.pipeline

	_, end := s.stage(ctx, "compare")
	p.comparisons = pl.Comparator.CompareAll(req.CustomerData, docs)
	end()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverStage("detect", &err)
		_, end := s.stage(gctx, "detect")
		defer end()
		p.discrepancies = pl.Detector.Detect(req.ID, p.comparisons)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverStage("evaluate", &err)
		_, end := s.stage(gctx, "evaluate")
		defer end()
		p.checks = pl.Evaluator.Evaluate(compliance.Input{
			DocumentSet:  req.DocumentSet,
			CustomerData: req.CustomerData,
			Documents:    docs,
			Comparisons:  p.comparisons,
			AsOf:         now,
		}, snap)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.results = buildResults(p.comparisons, docs)

	_, end = s.stage(ctx, "score")
	breakdown, err := pl.Scorer.Score(scoring.Input{
		DocumentSet: req.DocumentSet,
		Results:     p.results,
		Compliance:  p.checks,
	})
	end()
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConfiguration) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodePipelineFailure, "scoring failed")
	}

	_, end = s.stage(ctx, "decide")
	p.outcome = pl.Decider.Decide(breakdown.Overall, compliance.BlockingFailures(p.checks), p.discrepancies)
	end()
	p.outcome.Breakdown = breakdown
	p.outcome.PolicyVersion = snap.Version
	return p, nil
}

func recoverStage(stage string, err *error) {
	if r := recover(); r != nil {
		*err = dErrors.Wrap(fmt.Errorf("panic in %s: %v", stage, r), dErrors.CodePipelineFailure, "verification pipeline failed")
	}
}

// stage opens a child span and returns a func that ends it and records its latency.
func (s *Service) stage(ctx context.Context, name string) (context.Context, func()) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "verification."+name)
	return ctx, func() {
		span.End()
		s.metrics.ObserveStage(name, start)
	}
}

// persist writes the pass and its audit event. The request is re-read under lock
// so that of two concurrent passes only the first to commit is recorded.
func (s *Service) persist(ctx context.Context, p *pass, now time.Time) error {
	ctx, end := s.stage(ctx, "persist")
	defer end()

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		req, err := tx.GetRequestForUpdate(ctx, p.requestID)
		if err != nil {
			return err
		}
		if req.Status != models.StatusPending {
			return dErrors.Newf(dErrors.CodeInvalidState, "request is %s, only pending requests can be processed", req.Status)
		}
		if err := req.Transition(models.StatusProcessing, now); err != nil {
			return err
		}
		if err := req.ApplyOutcome(p.outcome, now); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.SaveComparisons(ctx, req.ID, p.comparisons); err != nil {
			return err
		}
		if err := tx.SaveDiscrepancies(ctx, p.discrepancies); err != nil {
			return err
		}
		if err := tx.SaveComplianceChecks(ctx, req.ID, p.checks); err != nil {
			return err
		}
		if err := tx.SaveResults(ctx, req.ID, p.results); err != nil {
			return err
		}
		return s.auditor.Emit(ctx, audit.Event{
			Action:   audit.EventVerificationProcessed,
			Subject:  req.ID.String(),
			Decision: decisionLabel(p.outcome),
			Reason:   p.outcome.Reason,
			Details: map[string]any{
				"status":         string(p.outcome.Status),
				"overall_score":  p.outcome.OverallScore,
				"escalated":      p.outcome.Escalated,
				"policy_version": p.outcome.PolicyVersion,
				"discrepancies":  len(p.discrepancies),
				"failed_checks":  len(compliance.BlockingFailures(p.checks)),
			},
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist verification outcome",
			"request_id", p.requestID.String(),
			"error", err,
		)
		return translate(err, "failed to persist verification outcome")
	}
	return nil
}

// fail moves the request to failed and records why. The returned error always
// carries CodePipelineFailure.
func (s *Service) fail(ctx context.Context, requestID id.RequestID, cause error, now time.Time) error {
	s.metrics.IncPipelineFailure()
	s.logger.ErrorContext(ctx, "verification pipeline failed",
		"request_id", requestID.String(),
		"error", cause,
	)
	if !dErrors.HasCode(cause, dErrors.CodePipelineFailure) {
		cause = dErrors.Wrap(cause, dErrors.CodePipelineFailure, "verification pipeline failed")
	}

	reason := cause.Error()
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.StatusPending {
			return dErrors.Newf(dErrors.CodeInvalidState, "request is %s", req.Status)
		}
		if err := req.Transition(models.StatusProcessing, now); err != nil {
			return err
		}
		if err := req.Fail(reason, now); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		return s.auditor.Emit(ctx, audit.Event{
			Action:   audit.EventVerificationFailed,
			Subject:  req.ID.String(),
			Decision: string(models.StatusFailed),
			Reason:   reason,
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record pipeline failure",
			"request_id", requestID.String(),
			"error", err,
		)
		return errors.Join(cause, err)
	}
	return cause
}

func decisionLabel(o models.Outcome) string {
	switch {
	case o.Approved == nil:
		return "review"
	case *o.Approved:
		return "approved"
	default:
		return "rejected"
	}
}

// Document quality bands over OCR overall confidence.
var qualityBands = []struct {
	min   float64
	score float64
	label string
}{
	{0.90, 100, "excellent"},
	{0.75, 85, "good"},
	{0.60, 70, "acceptable"},
	{0, 50, "poor"},
}

const qualityPassScore = 70

// buildResults turns comparisons and documents into scored results: one per
// compared field and one quality result per processed document.
func buildResults(comps []models.FieldComparison, docs []models.Document) []models.Result {
	extracted := comparison.MergeExtracted(docs)
	out := make([]models.Result, 0, len(comps)+len(docs))

	for _, c := range comps {
		checkType := models.CheckIdentity
		if c.Type == models.FieldAddress {
			checkType = models.CheckAddress
		}
		passed := c.Classification != models.ClassMismatch &&
			!(c.Classification == models.ClassMissing && !c.Optional)
		msg := fmt.Sprintf("%s: %s match", c.Field, c.Classification)
		if c.Classification == models.ClassMissing {
			msg = fmt.Sprintf("%s: value missing", c.Field)
		}
		out = append(out, models.Result{
			CheckType:  checkType,
			CheckName:  c.Field + "_match",
			Score:      c.Score,
			Confidence: extracted[c.Field].Confidence,
			Passed:     passed,
			Message:    msg,
			Evidence: map[string]any{
				"entered":        c.Entered,
				"extracted":      c.Extracted,
				"strategy":       c.Strategy,
				"classification": string(c.Classification),
			},
		})
	}

	processed := 0
	for _, d := range docs {
		if !d.Processed {
			continue
		}
		processed++
		score, label := 50.0, "poor"
		for _, b := range qualityBands {
			if d.OverallConfidence >= b.min {
				score, label = b.score, b.label
				break
			}
		}
		out = append(out, models.Result{
			CheckType:  models.CheckDocument,
			CheckName:  "doc_" + string(d.Type) + "_quality",
			Score:      score,
			Confidence: d.OverallConfidence,
			Passed:     score >= qualityPassScore,
			Message:    fmt.Sprintf("%s quality %s", d.Type, label),
			Evidence: map[string]any{
				"document_id":        d.ID.String(),
				"overall_confidence": d.OverallConfidence,
			},
		})
	}
	if processed == 0 {
		out = append(out, models.Result{
			CheckType: models.CheckDocument,
			CheckName: "document_presence",
			Score:     0,
			Passed:    false,
			Message:   "no processed documents",
		})
	}
	return out
}
