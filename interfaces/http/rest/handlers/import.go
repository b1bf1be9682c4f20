package handlers

import (
	"net/http"

	"songarchive-backend/application/importer"
	"songarchive-backend/application/pagination"
	"songarchive-backend/domain"
	"songarchive-backend/pkg/common"
	apperrors "songarchive-backend/pkg/errors"

	"go.uber.org/zap"
)

// maxImportSize caps CSV uploads at 20 MB.
const maxImportSize = 20 << 20

// ImportHandler serves the CSV bulk song import.
type ImportHandler struct {
	importer *importer.CSVImporter
	pages    *pagination.Manager[domain.Song]
	notifier *Notifier
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewImportHandler creates the import handler.
func NewImportHandler(
	csvImporter *importer.CSVImporter,
	pages *pagination.Manager[domain.Song],
	notifier *Notifier,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *ImportHandler {
	return &ImportHandler{
		importer: csvImporter,
		pages:    pages,
		notifier: notifier,
		errors:   errorHandler,
		logger:   logger,
	}
}

// ImportSongs accepts a multipart CSV upload and reports per-row outcomes.
// A response with rejected rows is still a 200; only a broken stream or a
// storage failure is an error.
func (h *ImportHandler) ImportSongs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid multipart body"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("missing file"))
		return
	}
	defer file.Close()

	result, err := h.importer.Import(r.Context(), file)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "import failed"))
		return
	}

	if result.Imported > 0 {
		h.pages.InvalidateCache()
		h.notifier.NotifyMutation(r.Context(), "songs", "imported", "")
	}
	common.RespondJSON(w, http.StatusOK, result)
}
