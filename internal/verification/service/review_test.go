package service_test

import (
	"context"
	"strings"

	"go.uber.org/mock/gomock"

	"docverify/internal/discrepancy"
	"docverify/internal/verification/models"
	id "docverify/pkg/domain"
	dErrors "docverify/pkg/domain-errors"
	audit "docverify/pkg/platform/audit"
	"docverify/pkg/requestcontext"
)

var (
	reviewer   = requestcontext.ActorInfo{ID: "rev-1", Role: requestcontext.RoleReviewer}
	supervisor = requestcontext.ActorInfo{ID: "sup-1", Role: requestcontext.RoleSupervisor}
)

// processWithMissingID processes a request whose passport lacks the ID number, which
// raises a discrepancy and lands the request in review.
func (s *ServiceSuite) processWithMissingID() *models.Request {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	req, err := s.svc.CreateRequest(s.ctx, models.CreateRequest{
		CustomerID:  "cust-7",
		DocumentSet: "savings",
		CustomerData: map[string]string{
			"full_name":     "Jane Doe",
			"id_number":     "12345678",
			"date_of_birth": "1990-05-14",
		},
	})
	s.Require().NoError(err)
	_, err = s.svc.AttachDocument(s.ctx, req.ID, models.Document{
		Type:      models.DocumentPassport,
		Processed: true,
		Fields: map[string]models.ExtractedField{
			"full_name":     {Value: "Jane Doe", Confidence: 0.97},
			"date_of_birth": {Value: "1990-05-14", Confidence: 0.96},
		},
		OverallConfidence: 0.95,
	})
	s.Require().NoError(err)

	s.policies.EXPECT().Current(gomock.Any()).Return(s.snapshot, nil)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	outcome, err := s.svc.ProcessRequest(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.StatusReviewRequired, outcome.Status)
	return req
}

func (s *ServiceSuite) TestResolveDiscrepancy() {
	req := s.processWithMissingID()
	discID := discrepancy.DiscrepancyID(req.ID, "id_number")

	list, err := s.svc.GetDiscrepancies(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(discID, list[0].ID)
	s.Equal(models.SeverityCritical, list[0].Severity)

	s.Run("requires reviewer role", func() {
		_, err := s.svc.ResolveDiscrepancy(s.ctx, requestcontext.ActorInfo{ID: "x"}, req.ID, discID, models.ResolutionAccepted, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.svc.ResolveDiscrepancy(s.ctx, requestcontext.ActorInfo{}, req.ID, discID, models.ResolutionAccepted, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown discrepancy", func() {
		_, err := s.svc.ResolveDiscrepancy(s.ctx, reviewer, req.ID, discrepancy.DiscrepancyID(req.ID, "email"), models.ResolutionAccepted, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("resolves once", func() {
		var emitted audit.Event
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			emitted = e
			return nil
		})
		d, err := s.svc.ResolveDiscrepancy(s.ctx, reviewer, req.ID, discID, models.ResolutionCorrected, " customer typo ")
		s.Require().NoError(err)
		s.Equal(models.ResolutionCorrected, d.Resolution)
		s.Equal("rev-1", d.ResolvedBy)
		s.Equal("customer typo", d.ResolutionNote)
		s.Equal(audit.EventDiscrepancyResolved, emitted.Action)
		s.Equal("rev-1", emitted.ActorID)

		_, err = s.svc.ResolveDiscrepancy(s.ctx, supervisor, req.ID, discID, models.ResolutionDismissed, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestOverride() {
	req := s.processWithMissingID()

	s.Run("requires supervisor", func() {
		_, err := s.svc.Override(s.ctx, reviewer, req.ID, true, "looks fine")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("requires reason", func() {
		_, err := s.svc.Override(s.ctx, supervisor, req.ID, true, "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown request", func() {
		_, err := s.svc.Override(s.ctx, supervisor, id.NewRequestID(), true, "ok")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("approves", func() {
		var emitted audit.Event
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			emitted = e
			return nil
		})
		updated, err := s.svc.Override(s.ctx, supervisor, req.ID, true, "ID verified by phone")
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, updated.Status)
		s.Require().NotNil(updated.Approved)
		s.True(*updated.Approved)
		s.True(strings.HasPrefix(updated.DecisionReason, "manually approved: "))
		s.Equal("sup-1", updated.ReviewedBy)
		s.Equal(audit.EventVerificationOverridden, emitted.Action)
		s.Equal("approved", emitted.Decision)
		s.Equal(string(models.StatusReviewRequired), emitted.Details["previous_status"])

		queue, err := s.svc.ReviewQueue(s.ctx, 10)
		s.Require().NoError(err)
		s.Empty(queue)
	})

	s.Run("pending requests cannot be overridden", func() {
		pending := s.createRequest(false)
		_, err := s.svc.Override(s.ctx, supervisor, pending.ID, false, "no")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}
