package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"songarchive-backend/application/aggregation"
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

const eventsCollection = "events"

// EventHandler serves the archive event endpoints and the merged
// internal+external aggregation endpoint.
type EventHandler struct {
	repo       ports.EventRepository
	pages      *pagination.Manager[domain.Event]
	aggregator *aggregation.Service
	notifier   *Notifier
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewEventHandler creates the event handler.
func NewEventHandler(
	repo ports.EventRepository,
	pages *pagination.Manager[domain.Event],
	aggregator *aggregation.Service,
	notifier *Notifier,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *EventHandler {
	return &EventHandler{
		repo:       repo,
		pages:      pages,
		aggregator: aggregator,
		notifier:   notifier,
		errors:     errorHandler,
		logger:     logger,
	}
}

// eventRequest is the create/update payload for archive events.
type eventRequest struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description" validate:"max=5000"`
	StartDate   string   `json:"startDate" validate:"required"`
	EndDate     string   `json:"endDate"`
	Venue       string   `json:"venue"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Organizer   string   `json:"organizer"`
	TicketURL   string   `json:"ticketUrl"`
	WebsiteURL  string   `json:"websiteUrl"`
	Keywords    []string `json:"keywords"`
}

func (req eventRequest) apply(event *domain.Event) error {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return apperrors.NewValidationError("startDate must be RFC 3339 or YYYY-MM-DD")
	}
	var end time.Time
	if req.EndDate != "" {
		end, err = parseDate(req.EndDate)
		if err != nil {
			return apperrors.NewValidationError("endDate must be RFC 3339 or YYYY-MM-DD")
		}
	}

	event.Title = req.Title
	event.Description = req.Description
	event.StartDate = start
	event.EndDate = end
	event.Venue = req.Venue
	event.Address = req.Address
	event.City = req.City
	event.Country = req.Country
	event.Latitude = req.Latitude
	event.Longitude = req.Longitude
	event.Organizer = req.Organizer
	event.TicketURL = req.TicketURL
	event.WebsiteURL = req.WebsiteURL
	event.Keywords = req.Keywords
	event.Source = domain.SourceArchive
	return nil
}

// parseDate normalizes an incoming date string to time.Time at the boundary.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// List serves the paginated archive event list.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractListParams(r)

	items, state, err := navigate(r.Context(), h.pages, params)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to load events"))
		return
	}
	common.RespondWithMeta(w, http.StatusOK, items, paginationMeta(state))
}

// Get serves one archive event.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "event"))
		return
	}
	common.RespondJSON(w, http.StatusOK, event)
}

// Create stores a new archive event.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	event := &domain.Event{ID: uuid.NewString()}
	if err := req.apply(event); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := h.repo.Put(r.Context(), event); err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to create event"))
		return
	}

	h.invalidate(r, "created", event.ID)
	common.RespondJSON(w, http.StatusCreated, event)
}

// Update replaces an archive event's fields.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	event, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "event"))
		return
	}
	if err := req.apply(event); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := h.repo.Put(r.Context(), event); err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to update event"))
		return
	}

	h.invalidate(r, "updated", id)
	common.RespondJSON(w, http.StatusOK, event)
}

// Delete removes an archive event.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to delete event"))
		return
	}

	h.invalidate(r, "deleted", id)
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Aggregated serves the merged internal+external event list. Degraded
// responses carry a status flag instead of an error.
func (h *EventHandler) Aggregated(w http.ResponseWriter, r *http.Request) {
	filters, err := extractAggregationFilters(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.aggregator.Aggregate(r.Context(), filters)
	if err != nil {
		h.errors.Handle(w, r, apperrors.Wrap(err, "failed to aggregate events"))
		return
	}

	common.RespondWithMeta(w, http.StatusOK, result.Events, &common.MetaInfo{
		Status: string(result.Status),
		Cached: result.Cached,
	})
}

// invalidate drops both cache tiers an internal event mutation touches.
func (h *EventHandler) invalidate(r *http.Request, action, id string) {
	h.pages.InvalidateCache()
	h.aggregator.InvalidateInternal()
	h.notifier.NotifyMutation(r.Context(), eventsCollection, action, id)
}

func extractAggregationFilters(r *http.Request) (aggregation.Filters, error) {
	q := r.URL.Query()
	filters := aggregation.Filters{
		Search:     q.Get("search"),
		SearchType: aggregation.SearchType(q.Get("search_type")),
	}

	switch filters.SearchType {
	case "", aggregation.SearchByName, aggregation.SearchByCity,
		aggregation.SearchByCountry, aggregation.SearchByKeywords:
	default:
		return filters, apperrors.NewValidationError("unknown search_type")
	}

	if limit := q.Get("internal_limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return filters, apperrors.NewValidationError("internal_limit must be a non-negative integer")
		}
		filters.InternalLimit = n
	}
	if limit := q.Get("external_limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return filters, apperrors.NewValidationError("external_limit must be a non-negative integer")
		}
		filters.ExternalLimit = n
	}

	if bbox := q.Get("bbox"); bbox != "" {
		bounds, err := parseBoundingBox(bbox)
		if err != nil {
			return filters, err
		}
		filters.Bounds = bounds
	}
	return filters, nil
}

// parseBoundingBox parses "north,south,east,west".
func parseBoundingBox(raw string) (*aggregation.BoundingBox, error) {
	fields := strings.Split(raw, ",")
	if len(fields) != 4 {
		return nil, apperrors.NewValidationError("bbox must be north,south,east,west")
	}
	values := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, apperrors.NewValidationError("bbox must be north,south,east,west")
		}
		values[i] = v
	}
	if values[0] < values[1] {
		return nil, apperrors.NewValidationError("bbox north must be >= south")
	}
	return &aggregation.BoundingBox{North: values[0], South: values[1], East: values[2], West: values[3]}, nil
}
