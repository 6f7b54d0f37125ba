package service

import (
	"context"
	"errors"
	"strings"

	"docverify/internal/verification/models"
	"docverify/internal/verification/store"
	id "docverify/pkg/domain"
	dErrors "docverify/pkg/domain-errors"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

// ResolveDiscrepancy records a reviewer's resolution of one discrepancy. A
// discrepancy is resolved at most once.
func (s *Service) ResolveDiscrepancy(ctx context.Context, actor requestcontext.ActorInfo, requestID id.RequestID, discrepancyID id.DiscrepancyID, resolution models.Resolution, note string) (*models.Discrepancy, error) {
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor required")
	}
	if !actor.HasRole(requestcontext.RoleReviewer) {
		return nil, dErrors.New(dErrors.CodeForbidden, "reviewer role required")
	}
	if requestID.IsNil() || discrepancyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request and discrepancy IDs required")
	}

	now := requestcontext.Now(ctx)
	note = strings.TrimSpace(note)
	var resolved *models.Discrepancy
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		d, err := tx.GetDiscrepancy(ctx, requestID, discrepancyID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "discrepancy not found")
			}
			return err
		}
		if err := d.Resolve(resolution, actor.ID, note, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidState, "discrepancy cannot be resolved")
		}
		if err := tx.UpdateDiscrepancy(ctx, d); err != nil {
			return err
		}
		resolved = d
		return s.auditor.Emit(ctx, audit.Event{
			Action:   audit.EventDiscrepancyResolved,
			Subject:  requestID.String(),
			ActorID:  actor.ID,
			Decision: string(resolution),
			Reason:   note,
			Details: map[string]any{
				"discrepancy_id": discrepancyID.String(),
				"field":          d.Field,
				"severity":       string(d.Severity),
			},
		})
	})
	if err != nil {
		return nil, translate(err, "failed to resolve discrepancy")
	}

	s.metrics.IncResolution(string(resolution))
	s.logger.InfoContext(ctx, "discrepancy resolved",
		"request_id", requestID.String(),
		"discrepancy_id", discrepancyID.String(),
		"resolution", resolution,
		"actor", actor.ID,
	)
	return resolved, nil
}

// Override records a supervisor's manual decision on a request awaiting review or
// already decided.
func (s *Service) Override(ctx context.Context, actor requestcontext.ActorInfo, requestID id.RequestID, approve bool, reason string) (*models.Request, error) {
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor required")
	}
	if !actor.HasRole(requestcontext.RoleSupervisor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "supervisor role required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}

	now := requestcontext.Now(ctx)
	var updated *models.Request
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		previous := req.Status
		if err := req.ApplyOverride(actor.ID, approve, reason, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidState, "only requests under review or completed can be overridden")
		}
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		updated = req
		return s.auditor.Emit(ctx, audit.Event{
			Action:   audit.EventVerificationOverridden,
			Subject:  req.ID.String(),
			ActorID:  actor.ID,
			Decision: decisionLabel(models.Outcome{Approved: req.Approved}),
			Reason:   reason,
			Details: map[string]any{
				"previous_status": string(previous),
				"policy_version":  req.PolicyVersion,
			},
		})
	})
	if err != nil {
		return nil, translate(err, "failed to override verification")
	}

	s.metrics.IncOverride(approve)
	s.logger.InfoContext(ctx, "verification overridden",
		"request_id", requestID.String(),
		"approved", approve,
		"actor", actor.ID,
	)
	return updated, nil
}

// ReviewQueue lists requests awaiting review, most urgent priority first and
// oldest first within a priority.
func (s *Service) ReviewQueue(ctx context.Context, limit int) ([]models.Request, error) {
	if limit <= 0 {
		limit = defaultReviewQueueLimit
	}
	limit = min(limit, maxReviewQueueLimit)
	out, err := s.store.ListByStatus(ctx, models.StatusReviewRequired, limit)
	if err != nil {
		return nil, translate(err, "failed to load review queue")
	}
	return out, nil
}
