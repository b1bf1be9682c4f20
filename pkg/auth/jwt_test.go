package auth

import (
	"context"
	"testing"
	"time"

	"songarchive-backend/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestGenerateAndValidateRoundTrip(t *testing.T) {
	cfg := Config{SecretKey: testSecret, Issuer: "songarchive", TTL: time.Hour}
	gen, err := NewGenerator(cfg)
	require.NoError(t, err)
	validator, err := NewValidator(cfg)
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "maria@example.com", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "maria@example.com", claims.Email)
	assert.Equal(t, string(domain.RoleAdmin), claims.Role)
	assert.Equal(t, "songarchive", claims.Issuer)
}

func TestValidateToken_StripsBearerPrefix(t *testing.T) {
	cfg := Config{SecretKey: testSecret, TTL: time.Hour}
	gen, err := NewGenerator(cfg)
	require.NoError(t, err)
	validator, err := NewValidator(cfg)
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "", domain.RoleUser)
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	gen, err := NewGenerator(Config{SecretKey: "other-secret", TTL: time.Hour})
	require.NoError(t, err)
	validator, err := NewValidator(Config{SecretKey: testSecret})
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "", domain.RoleUser)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateToken_Expired(t *testing.T) {
	validator, err := NewValidator(Config{SecretKey: testSecret})
	require.NoError(t, err)

	claims := &Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	gen, err := NewGenerator(Config{SecretKey: testSecret, Issuer: "somewhere-else", TTL: time.Hour})
	require.NoError(t, err)
	validator, err := NewValidator(Config{SecretKey: testSecret, Issuer: "songarchive"})
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "", domain.RoleUser)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateToken_RejectsUnsignedToken(t *testing.T) {
	validator, err := NewValidator(Config{SecretKey: testSecret})
	require.NoError(t, err)

	claims := &Claims{UserID: "user-1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Empty(t *testing.T) {
	validator, err := NewValidator(Config{SecretKey: testSecret})
	require.NoError(t, err)

	_, err = validator.ValidateToken("   ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNewValidator_RequiresSecret(t *testing.T) {
	_, err := NewValidator(Config{})
	assert.Error(t, err)

	_, err = NewGenerator(Config{})
	assert.Error(t, err)
}

func TestUserContextRoundTrip(t *testing.T) {
	user := &UserContext{UserID: "user-1", Role: domain.RoleOrganizer}
	ctx := SetUserInContext(context.Background(), user)

	got, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, user, got)

	_, err = GetUserFromContext(context.Background())
	assert.Error(t, err)
}
