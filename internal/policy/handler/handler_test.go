package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"docverify/internal/platform/middleware"
	"docverify/internal/policy/handler/mocks"
	"docverify/internal/policy/models"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/testutil"
)

type PolicyHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestPolicyHandlerSuite(t *testing.T) {
	suite.Run(t, new(PolicyHandlerSuite))
}

func (s *PolicyHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger, testutil.TokenValidator{}).Register(s.router)
}

func snapshot() *models.Snapshot {
	return models.NewSnapshot([]models.Policy{{
		Code: "KYC", Category: models.CategoryKYC, Active: true,
		Rules: []models.Rule{{
			Code: "KYC-R1", Name: "ID", Weight: 2, Blocking: true, Active: true,
			Condition: models.RequiredDocument{DocumentTypes: []string{"passport"}},
		}},
	}}, time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
}

func (s *PolicyHandlerSuite) TestGetSnapshot() {
	s.Run("reviewer reads the snapshot", func() {
		snap := snapshot()
		s.service.EXPECT().Current(gomock.Any()).Return(snap, nil)

		req := testutil.Bearer(testutil.NewJSONRequest(s.T(), http.MethodGet, "/policies/snapshot", nil), middleware.RoleReviewer, "r1")
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.DecodeResponse[map[string]any](s.T(), rr)
		s.Equal(snap.Version, body["version"])
		s.Equal("2026-04-01T08:00:00Z", body["taken_at"])
		s.EqualValues(1, body["count"])
	})

	s.Run("anonymous caller is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/policies/snapshot", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("unavailable store maps to 503", func() {
		s.service.EXPECT().Current(gomock.Any()).Return(nil, fmt.Errorf("load: %w", sentinel.ErrUnavailable))

		req := testutil.Bearer(testutil.NewJSONRequest(s.T(), http.MethodGet, "/policies/snapshot", nil), middleware.RoleReviewer, "r1")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "unavailable")
	})

	s.Run("other errors hide details", func() {
		s.service.EXPECT().Current(gomock.Any()).Return(nil, errors.New("pq: relation missing"))

		req := testutil.Bearer(testutil.NewJSONRequest(s.T(), http.MethodGet, "/policies/snapshot", nil), middleware.RoleReviewer, "r1")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
		s.NotContains(rr.Body.String(), "relation")
	})
}

func (s *PolicyHandlerSuite) TestRefresh() {
	s.Run("supervisor refreshes", func() {
		s.service.EXPECT().Refresh(gomock.Any()).DoAndReturn(func(ctx context.Context) (*models.Snapshot, error) {
			return snapshot(), nil
		})

		req := testutil.Bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/policies/refresh", nil), middleware.RoleSupervisor, "boss")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("reviewer may not refresh", func() {
		req := testutil.Bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/policies/refresh", nil), middleware.RoleReviewer, "r1")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}
