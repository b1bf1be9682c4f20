package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/pkg/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "auth-middleware-test-secret"

type fakeIdentity struct {
	user  *domain.User
	err   error
	calls int
}

func (f *fakeIdentity) VerifyToken(context.Context, string) (*domain.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeIdentity) ListUsers(context.Context) ([]domain.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIdentity) UpdateUserRole(context.Context, string, domain.Role) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIdentity) DeleteUser(context.Context, string) error {
	return errors.New("not implemented")
}

func newTestValidator(t *testing.T) *auth.Validator {
	t.Helper()
	validator, err := auth.NewValidator(auth.Config{SecretKey: testSecret})
	require.NoError(t, err)
	return validator
}

func issueToken(t *testing.T, role domain.Role) string {
	t.Helper()
	gen, err := auth.NewGenerator(auth.Config{SecretKey: testSecret, TTL: time.Hour})
	require.NoError(t, err)
	token, err := gen.GenerateToken("user-1", "maria@example.com", role)
	require.NoError(t, err)
	return token
}

func issueExpiredToken(t *testing.T) string {
	t.Helper()
	claims := &auth.Claims{
		UserID: "user-1",
		Email:  "maria@example.com",
		Role:   string(domain.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// authedUser runs a request through Authenticate and captures the caller the
// downstream handler sees.
func authedUser(validator *auth.Validator, identity ports.IdentityProvider, req *http.Request) (*auth.UserContext, *httptest.ResponseRecorder) {
	var captured *auth.UserContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = auth.GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	Authenticate(validator, identity, zap.NewNop())(next).ServeHTTP(rec, req)
	return captured, rec
}

func TestAuthenticate_ValidLocalToken(t *testing.T) {
	validator := newTestValidator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v2/songs", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, domain.RoleAdmin))

	user, rec := authedUser(validator, nil, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	validator := newTestValidator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v2/songs", nil)

	user, rec := authedUser(validator, nil, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, user)
}

func TestAuthenticate_ExpiredTokenSkipsIdentityFallback(t *testing.T) {
	validator := newTestValidator(t)
	identity := &fakeIdentity{user: &domain.User{ID: "external-1", Role: domain.RoleAdmin}}
	req := httptest.NewRequest(http.MethodGet, "/api/v2/songs", nil)
	req.Header.Set("Authorization", "Bearer "+issueExpiredToken(t))

	user, rec := authedUser(validator, identity, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, user)
	assert.Zero(t, identity.calls, "an expired session token must not fall through to the identity provider")
}

func TestAuthenticate_ForeignTokenFallsBackToIdentity(t *testing.T) {
	validator := newTestValidator(t)
	identity := &fakeIdentity{user: &domain.User{
		ID:    "external-1",
		Email: "joao@example.com",
		Role:  domain.RoleOrganizer,
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/v2/events", nil)
	req.Header.Set("Authorization", "Bearer not-a-local-jwt")

	user, rec := authedUser(validator, identity, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, "external-1", user.UserID)
	assert.Equal(t, domain.RoleOrganizer, user.Role)
	assert.Equal(t, 1, identity.calls)
}

func TestAuthenticate_InvalidTokenWithoutIdentity(t *testing.T) {
	validator := newTestValidator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v2/songs", nil)
	req.Header.Set("Authorization", "Bearer not-a-local-jwt")

	user, rec := authedUser(validator, nil, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, user)
}

func TestAuthenticate_IdentityRejectionIsUnauthorized(t *testing.T) {
	validator := newTestValidator(t)
	identity := &fakeIdentity{err: errors.New("revoked")}
	req := httptest.NewRequest(http.MethodGet, "/api/v2/songs", nil)
	req.Header.Set("Authorization", "Bearer not-a-local-jwt")

	user, rec := authedUser(validator, identity, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, user)
	assert.Equal(t, 1, identity.calls)
}

func TestAuthenticate_QueryTokenForWebsocketUpgrade(t *testing.T) {
	validator := newTestValidator(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v2/ws?token="+issueToken(t, domain.RoleUser), nil)

	user, rec := authedUser(validator, nil, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, domain.RoleUser, user.Role)
}

func requireRoleStatus(role domain.Role, mw func(http.Handler) http.Handler) int {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodDelete, "/api/v2/songs/1", nil)
	req = req.WithContext(auth.SetUserInContext(req.Context(), &auth.UserContext{
		UserID: "user-1",
		Role:   role,
	}))
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(domain.RoleAdmin)

	assert.Equal(t, http.StatusOK, requireRoleStatus(domain.RoleAdmin, mw))
	assert.Equal(t, http.StatusForbidden, requireRoleStatus(domain.RoleUser, mw))
	assert.Equal(t, http.StatusForbidden, requireRoleStatus(domain.RoleOrganizer, mw))
}

func TestRequireRole_NoUserInContext(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodDelete, "/api/v2/songs/1", nil)
	rec := httptest.NewRecorder()

	RequireRole(domain.RoleAdmin)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireEventManager(t *testing.T) {
	mw := RequireEventManager()

	assert.Equal(t, http.StatusOK, requireRoleStatus(domain.RoleAdmin, mw))
	assert.Equal(t, http.StatusOK, requireRoleStatus(domain.RoleOrganizer, mw))
	assert.Equal(t, http.StatusForbidden, requireRoleStatus(domain.RoleArtist, mw))
	assert.Equal(t, http.StatusForbidden, requireRoleStatus(domain.RoleUser, mw))
}
