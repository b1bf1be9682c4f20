package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"songarchive-backend/application/pagination"
	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/pkg/common"
	apperrors "songarchive-backend/pkg/errors"
	"songarchive-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const songsCollection = "songs"

// maxImageSize caps image uploads at 10 MB.
const maxImageSize = 10 << 20

// SongHandler serves the song CRUD and list endpoints.
type SongHandler struct {
	repo     ports.SongRepository
	pages    *pagination.Manager[domain.Song]
	objects  ports.ObjectStore
	notifier *Notifier
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewSongHandler creates the song handler.
func NewSongHandler(
	repo ports.SongRepository,
	pages *pagination.Manager[domain.Song],
	objects ports.ObjectStore,
	notifier *Notifier,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *SongHandler {
	return &SongHandler{
		repo:     repo,
		pages:    pages,
		objects:  objects,
		notifier: notifier,
		errors:   errorHandler,
		logger:   logger,
	}
}

// songRequest is the create/update payload.
type songRequest struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description" validate:"max=5000"`
	Lyrics      string   `json:"lyrics"`
	RegionID    string   `json:"regionId"`
	LanguageID  string   `json:"languageId"`
	ThemeID     string   `json:"themeId"`
	CountryID   string   `json:"countryId"`
	Keywords    []string `json:"keywords" validate:"max=50"`
}

// List serves the paginated song list.
func (h *SongHandler) List(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractListParams(r)

	items, state, err := navigate(r.Context(), h.pages, params)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to load songs"))
		return
	}
	common.RespondWithMeta(w, http.StatusOK, items, paginationMeta(state))
}

// Get serves one song by id.
func (h *SongHandler) Get(w http.ResponseWriter, r *http.Request) {
	song, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "song"))
		return
	}
	common.RespondJSON(w, http.StatusOK, song)
}

// Create stores a new song.
func (h *SongHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	now := time.Now().UTC()
	song := &domain.Song{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Lyrics:      req.Lyrics,
		RegionID:    req.RegionID,
		LanguageID:  req.LanguageID,
		ThemeID:     req.ThemeID,
		CountryID:   req.CountryID,
		Keywords:    req.Keywords,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.repo.Put(r.Context(), song); err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to create song"))
		return
	}

	h.pages.InvalidateCache()
	h.notifier.NotifyMutation(r.Context(), songsCollection, "created", song.ID)
	common.RespondJSON(w, http.StatusCreated, song)
}

// Update replaces a song's editable fields.
func (h *SongHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req songRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	song, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "song"))
		return
	}

	song.Title = req.Title
	song.Description = req.Description
	song.Lyrics = req.Lyrics
	song.RegionID = req.RegionID
	song.LanguageID = req.LanguageID
	song.ThemeID = req.ThemeID
	song.CountryID = req.CountryID
	song.Keywords = req.Keywords
	song.UpdatedAt = time.Now().UTC()

	if err := h.repo.Put(r.Context(), song); err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to update song"))
		return
	}

	h.pages.InvalidateCache()
	h.notifier.NotifyMutation(r.Context(), songsCollection, "updated", song.ID)
	common.RespondJSON(w, http.StatusOK, song)
}

// Delete removes a song and its stored image, if any.
func (h *SongHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	song, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "song"))
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to delete song"))
		return
	}

	if song.ImageRef != "" {
		ext := strings.TrimPrefix(filepath.Ext(song.ImageRef), ".")
		if err := h.objects.Delete(r.Context(), id, ext); err != nil {
			h.logger.Warn("Failed to delete song image", zap.String("songId", id), zap.Error(err))
		}
	}

	h.pages.InvalidateCache()
	h.notifier.NotifyMutation(r.Context(), songsCollection, "deleted", id)
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// UploadImage stores the song's image blob and records its ref.
func (h *SongHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	song, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "song"))
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("missing image file"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	switch ext {
	case "jpg", "jpeg", "png", "webp":
	default:
		h.errors.Handle(w, r, apperrors.NewValidationError("unsupported image type"))
		return
	}

	ref, err := h.objects.Put(r.Context(), id, ext, file)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to store image"))
		return
	}

	song.ImageRef = ref
	song.UpdatedAt = time.Now().UTC()
	if err := h.repo.Put(r.Context(), song); err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to update song"))
		return
	}

	h.pages.InvalidateCache()
	h.notifier.NotifyMutation(r.Context(), songsCollection, "updated", id)
	common.RespondJSON(w, http.StatusOK, map[string]string{"imageRef": ref})
}

// DeleteImage removes the song's image. A song without one is not an error.
func (h *SongHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	song, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "song"))
		return
	}

	if song.ImageRef != "" {
		ext := strings.TrimPrefix(filepath.Ext(song.ImageRef), ".")
		if err := h.objects.Delete(r.Context(), id, ext); err != nil {
			h.errors.Handle(w, r, apperrors.Wrap(err, "failed to delete image"))
			return
		}
		song.ImageRef = ""
		song.UpdatedAt = time.Now().UTC()
		if err := h.repo.Put(r.Context(), song); err != nil {
			h.errors.Handle(w, r, apperrors.Wrap(err, "failed to update song"))
			return
		}
		h.pages.InvalidateCache()
		h.notifier.NotifyMutation(r.Context(), songsCollection, "updated", id)
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"id": id})
}
