package handlers

import (
	"encoding/json"
	"net/http"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/pkg/auth"
	"songarchive-backend/pkg/common"
	apperrors "songarchive-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler proxies account administration to the identity provider.
// Routes are admin-gated in the router.
type UserHandler struct {
	identity ports.IdentityProvider
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewUserHandler creates the user handler.
func NewUserHandler(identity ports.IdentityProvider, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *UserHandler {
	return &UserHandler{identity: identity, errors: errorHandler, logger: logger}
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user organizer artist"`
}

// List serves every backoffice account.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewExternalError("identity provider", err))
		return
	}
	common.RespondJSON(w, http.StatusOK, users)
}

// UpdateRole changes an account's role.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	role := domain.Role(req.Role)
	if !role.Valid() {
		h.errors.Handle(w, r, apperrors.NewValidationError("unknown role"))
		return
	}

	user, err := h.identity.UpdateUserRole(r.Context(), id, role)
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewExternalError("identity provider", err))
		return
	}
	common.RespondJSON(w, http.StatusOK, user)
}

// Delete removes an account. Self-deletion is rejected so an admin cannot
// lock themselves out mid-session.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if caller, err := auth.GetUserFromContext(r.Context()); err == nil && caller.UserID == id {
		h.errors.Handle(w, r, apperrors.NewValidationError("cannot delete your own account"))
		return
	}

	if err := h.identity.DeleteUser(r.Context(), id); err != nil {
		h.errors.Handle(w, r, apperrors.NewExternalError("identity provider", err))
		return
	}

	h.logger.Info("User account deleted", zap.String("userId", id))
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": id})
}
