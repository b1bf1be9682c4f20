package handlers

import (
	"encoding/json"
	"net/http"

	"songarchive-backend/application/pagination"
	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/pkg/common"
	apperrors "songarchive-backend/pkg/errors"
	"songarchive-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TaxonomyHandler serves the static taxonomy collections. Each category is
// its own cached collection; replacing a category invalidates only that
// category's pages.
type TaxonomyHandler struct {
	repo     ports.TaxonomyRepository
	pages    map[domain.TaxonomyCategory]*pagination.Manager[domain.TaxonomyEntry]
	notifier *Notifier
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewTaxonomyHandler creates the taxonomy handler. pages maps each category
// to its pagination manager.
func NewTaxonomyHandler(
	repo ports.TaxonomyRepository,
	pages map[domain.TaxonomyCategory]*pagination.Manager[domain.TaxonomyEntry],
	notifier *Notifier,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *TaxonomyHandler {
	return &TaxonomyHandler{
		repo:     repo,
		pages:    pages,
		notifier: notifier,
		errors:   errorHandler,
		logger:   logger,
	}
}

type taxonomyEntryRequest struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required,max=200"`
	Code      string `json:"code" validate:"max=10"`
	SortOrder int    `json:"sortOrder"`
}

type replaceTaxonomyRequest struct {
	Entries []taxonomyEntryRequest `json:"entries" validate:"required,dive"`
}

// List serves a taxonomy category, paginated when the category has a
// pagination manager and in full otherwise.
func (h *TaxonomyHandler) List(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseTaxonomyCategory(chi.URLParam(r, "category"))
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	if manager, ok := h.pages[category]; ok {
		params := common.ExtractListParams(r)
		items, state, err := navigate(r.Context(), manager, params)
		if err != nil {
			h.errors.Handle(w, r, apperrors.Wrap(err, "failed to load taxonomy"))
			return
		}
		common.RespondWithMeta(w, http.StatusOK, items, paginationMeta(state))
		return
	}

	entries, err := h.repo.List(r.Context(), category)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to load taxonomy"))
		return
	}
	common.RespondJSON(w, http.StatusOK, entries)
}

// Replace swaps a category's full entry set.
func (h *TaxonomyHandler) Replace(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseTaxonomyCategory(chi.URLParam(r, "category"))
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	var req replaceTaxonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	entries := make([]domain.TaxonomyEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, domain.TaxonomyEntry{
			ID:        e.ID,
			Name:      e.Name,
			Code:      e.Code,
			SortOrder: e.SortOrder,
		})
	}

	if err := h.repo.Replace(r.Context(), category, entries); err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to replace taxonomy"))
		return
	}

	if manager, ok := h.pages[category]; ok {
		manager.InvalidateCache()
	}
	h.notifier.NotifyMutation(r.Context(), category.CollectionName(), "imported", "")
	common.RespondJSON(w, http.StatusOK, map[string]int{"count": len(entries)})
}
