package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	id "parish/pkg/domain"
	"parish/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

type stubAccounts struct {
	active bool
	err    error
}

func (s stubAccounts) IsActive(context.Context, id.UserID) (bool, error) { return s.active, s.err }

type RequireAuthSuite struct {
	suite.Suite
	logger *slog.Logger
	userID id.UserID
}

func TestRequireAuthSuite(t *testing.T) {
	suite.Run(t, new(RequireAuthSuite))
}

func (s *RequireAuthSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.userID = id.NewUserID()
}

func (s *RequireAuthSuite) serve(v JWTValidator, a AccountChecker, header string) (*httptest.ResponseRecorder, id.UserID) {
	var seen id.UserID
	h := RequireAuth(v, a, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/family", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func (s *RequireAuthSuite) TestMissingHeader() {
	rec, _ := s.serve(stubValidator{}, nil, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RequireAuthSuite) TestInvalidToken() {
	rec, _ := s.serve(stubValidator{err: errors.New("bad sig")}, nil, "Bearer x")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RequireAuthSuite) TestValidTokenSetsUser() {
	rec, seen := s.serve(stubValidator{claims: &JWTClaims{UserID: s.userID.String()}}, stubAccounts{active: true}, "Bearer x")
	s.Equal(http.StatusNoContent, rec.Code)
	assert.Equal(s.T(), s.userID, seen)
}

func (s *RequireAuthSuite) TestInactiveAccountRejected() {
	rec, _ := s.serve(stubValidator{claims: &JWTClaims{UserID: s.userID.String()}}, stubAccounts{active: false}, "Bearer x")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RequireAuthSuite) TestAccountLookupFailure() {
	rec, _ := s.serve(stubValidator{claims: &JWTClaims{UserID: s.userID.String()}}, stubAccounts{err: errors.New("db down")}, "Bearer x")
	s.Equal(http.StatusInternalServerError, rec.Code)
}
