package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"prism/internal/directory"
	"prism/internal/tenant/models"
	dErrors "prism/pkg/domain-errors"
)

type fakeAggregator struct {
	agg   *directory.Aggregate
	err   error
	calls int
}

func (f *fakeAggregator) Collect(context.Context, string) (*directory.Aggregate, error) {
	f.calls++
	return f.agg, f.err
}

type fakeTenants struct {
	rec models.Redacted
	err error
}

func (f *fakeTenants) Get(context.Context, string) (models.Redacted, error) {
	return f.rec, f.err
}

type DirectoryHandlerSuite struct {
	suite.Suite
	aggregator *fakeAggregator
	tenants    *fakeTenants
	router     http.Handler
}

func (s *DirectoryHandlerSuite) SetupTest() {
	s.aggregator = &fakeAggregator{
		agg: &directory.Aggregate{
			Users:    []map[string]any{{"displayName": "Ada"}},
			Groups:   []map[string]any{},
			Sites:    []map[string]any{},
			Licenses: []map[string]any{},
			Metrics:  directory.Metrics{TotalUsers: 1, ActiveUsers: 1},
		},
	}
	s.tenants = &fakeTenants{
		rec: models.Redacted{ID: "t1", Name: "Contoso", LastSync: "2026-03-14T09:26:53Z", UserCount: 1, HasSecret: true},
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(s.aggregator, s.tenants, logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func TestDirectoryHandlerSuite(t *testing.T) {
	suite.Run(t, new(DirectoryHandlerSuite))
}

func (s *DirectoryHandlerSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *DirectoryHandlerSuite) post(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	return rec
}

func (s *DirectoryHandlerSuite) TestData_ReturnsAggregate() {
	rec := s.get("/api/tenants/t1/data")
	s.Equal(http.StatusOK, rec.Code)

	var agg directory.Aggregate
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &agg))
	s.Equal(1, agg.Metrics.TotalUsers)
	s.Len(agg.Users, 1)
}

func (s *DirectoryHandlerSuite) TestData_NotFoundStatus() {
	s.aggregator.err = dErrors.New(dErrors.CodeNotFound, "Tenant not found or missing credentials")

	rec := s.get("/api/tenants/nope/data")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "Tenant not found or missing credentials")
}

func (s *DirectoryHandlerSuite) TestData_UpstreamAuthIncludesDetails() {
	s.aggregator.err = dErrors.NewWithDetails(dErrors.CodeUpstreamAuth, "Failed to acquire token for tenant",
		map[string]any{"error": "invalid_client"})

	rec := s.get("/api/tenants/t1/data")
	s.Equal(http.StatusInternalServerError, rec.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Contains(body, "details")
}

func (s *DirectoryHandlerSuite) TestSync_ReturnsUpdatedRecordNotAggregate() {
	rec := s.post("/api/tenants/t1/sync")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(1, s.aggregator.calls)

	var tenant models.Redacted
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &tenant))
	s.Equal("t1", tenant.ID)
	s.Equal("2026-03-14T09:26:53Z", tenant.LastSync)
	s.NotContains(rec.Body.String(), `"users"`)
}

func (s *DirectoryHandlerSuite) TestSync_PropagatesAggregationFailureUnchanged() {
	s.aggregator.err = dErrors.New(dErrors.CodeNotFound, "Tenant not found or missing credentials")

	rec := s.post("/api/tenants/t1/sync")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *DirectoryHandlerSuite) TestSync_TenantVanishedAfterAggregation() {
	s.tenants.err = dErrors.New(dErrors.CodeNotFound, "Tenant not found")

	rec := s.post("/api/tenants/t1/sync")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *DirectoryHandlerSuite) TestLegacyEndpointsReturnZeroShapes() {
	for _, path := range []string{"/api/token", "/api/users", "/api/metrics"} {
		rec := s.get(path)
		s.Equal(http.StatusBadRequest, rec.Code, path)

		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body), path)
		s.Contains(body, "error", path)
	}

	var metrics map[string]any
	s.Require().NoError(json.Unmarshal(s.get("/api/metrics").Body.Bytes(), &metrics))
	s.Equal(float64(0), metrics["totalUsers"])
	s.Contains(metrics, "userStatus")
	s.Contains(metrics, "licenseStatus")

	var users map[string]any
	s.Require().NoError(json.Unmarshal(s.get("/api/users").Body.Bytes(), &users))
	s.Equal([]any{}, users["value"])
}
