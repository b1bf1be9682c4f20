package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/pkg/auth"

	"go.uber.org/zap"
)

// Authenticate validates the bearer token on every request. Session JWTs
// are checked locally; anything else is handed to the identity provider so
// tokens issued by it keep working in the backoffice.
func Authenticate(validator *auth.Validator, identity ports.IdentityProvider, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				respondUnauthorized(w, "Missing authentication token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err == nil {
				user := &auth.UserContext{
					UserID: claims.UserID,
					Email:  claims.Email,
					Role:   domain.Role(claims.Role),
				}
				next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
				return
			}

			if errors.Is(err, auth.ErrExpiredToken) {
				respondUnauthorized(w, "Token has expired")
				return
			}

			if identity != nil {
				account, verr := identity.VerifyToken(r.Context(), token)
				if verr == nil {
					user := &auth.UserContext{
						UserID: account.ID,
						Email:  account.Email,
						Role:   account.Role,
					}
					next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
					return
				}
				logger.Debug("Identity provider rejected token", zap.Error(verr))
			}

			logger.Warn("Invalid token",
				zap.Error(err),
				zap.String("path", r.URL.Path),
			)
			respondUnauthorized(w, "Invalid token")
		})
	}
}

// RequireRole rejects callers whose role is not in the allowed set.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				respondUnauthorized(w, "Unauthorized")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondWithError(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

// RequireEventManager admits roles allowed to mutate event records.
func RequireEventManager() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				respondUnauthorized(w, "Unauthorized")
				return
			}
			if !user.Role.CanManageEvents() {
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the token from the Authorization header or, for
// websocket upgrades, the query string.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return authHeader
	}
	return r.URL.Query().Get("token")
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondWithError(w, http.StatusUnauthorized, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    code,
	})
}
