// Package auth handles access tokens for the backoffice API. Tokens are
// HS256 JWTs carrying the account role; the middleware validates them and
// puts a UserContext on the request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"songarchive-backend/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims is the JWT payload issued for backoffice sessions.
type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Config holds the shared token settings.
type Config struct {
	SecretKey string
	Issuer    string
	TTL       time.Duration
}

// Validator checks access tokens.
type Validator struct {
	secretKey []byte
	issuer    string
}

// NewValidator creates a token validator.
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key required")
	}
	return &Validator{secretKey: []byte(cfg.SecretKey), issuer: cfg.Issuer}, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return v.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user ID", ErrInvalidClaims)
	}
	return claims, nil
}

// Generator issues access tokens.
type Generator struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

// NewGenerator creates a token generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Generator{secretKey: []byte(cfg.SecretKey), issuer: cfg.Issuer, ttl: ttl}, nil
}

// GenerateToken issues a token for the given account.
func (g *Generator) GenerateToken(userID, email string, role domain.Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secretKey)
}

// UserContext is the authenticated caller attached to each request.
type UserContext struct {
	UserID string
	Email  string
	Role   domain.Role
}

type contextKey string

const userContextKey contextKey = "user"

// GetUserFromContext extracts the authenticated caller.
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, errors.New("user not found in context")
	}
	return user, nil
}

// SetUserInContext attaches the authenticated caller.
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
