package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"parish/internal/users/models"
	"parish/internal/users/service"
	userstore "parish/internal/users/store/user"
	id "parish/pkg/domain"
	"parish/pkg/platform/middleware/admin"
	"parish/pkg/testutil"
)

const adminToken = "secret-token"

type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(service.New(userstore.NewInMemoryStore()), logger)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(adminToken, logger))
		h.RegisterAdmin(r)
	})
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) createUser(body map[string]any) models.User {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/users", body)
	req.Header.Set(admin.HeaderAdminToken, adminToken)
	rec := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	return testutil.DecodeData[models.User](s.T(), rec)
}

func (s *HandlerSuite) TestAdminTokenRequired() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/users", map[string]any{"email": "a@b.org", "first_name": "A"})
	rec := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestCreateValidation() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/users", map[string]any{"email": "bad"})
	req.Header.Set(admin.HeaderAdminToken, adminToken)
	rec := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rec, http.StatusUnprocessableEntity)
	testutil.AssertFieldError(s.T(), rec, "email")
}

func (s *HandlerSuite) TestMeAndPriests() {
	priest := s.createUser(map[string]any{"email": "paul@parish.org", "first_name": "Paul", "is_priest": true})
	s.createUser(map[string]any{"email": "anna@example.org", "first_name": "Anna"})

	req := testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/users/me"), priest.ID)
	rec := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rec, http.StatusOK)
	me := testutil.DecodeData[models.User](s.T(), rec)
	s.Equal(priest.ID, me.ID)

	rec = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/priests"))
	priests := testutil.DecodeData[[]models.User](s.T(), rec)
	s.Require().Len(priests, 1)
	s.Equal("paul@parish.org", priests[0].Email)
}

func (s *HandlerSuite) TestSetStatus() {
	u := s.createUser(map[string]any{"email": "anna@example.org", "first_name": "Anna"})

	req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/admin/users/"+u.ID.String()+"/status", map[string]any{"status": "inactive"})
	req.Header.Set(admin.HeaderAdminToken, adminToken)
	rec := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rec, http.StatusOK)
	s.Equal(models.StatusInactive, testutil.DecodeData[models.User](s.T(), rec).Status)

	req = testutil.NewJSONRequest(s.T(), http.MethodPatch, "/admin/users/"+id.NewUserID().String()+"/status", map[string]any{"status": "inactive"})
	req.Header.Set(admin.HeaderAdminToken, adminToken)
	rec = testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestMeRequiresAuth() {
	rec := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/users/me"))
	testutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, "unauthorized")
}
