// Package v1 keeps the read-only surface the previous backoffice client
// still calls. It predates the session-scoped pagination in v2: lists are
// returned whole, in flat JSON, and will be removed once the old client is
// retired.
package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/interfaces/http/rest/middleware"
	"songarchive-backend/pkg/auth"
)

// listPageSize bounds each backing query while draining a collection.
const listPageSize = 100

// NewRouter creates the v1 API router.
func NewRouter(
	songs ports.SongRepository,
	events ports.EventRepository,
	validator *auth.Validator,
	identity ports.IdentityProvider,
	logger *zap.Logger,
) *mux.Router {
	api := &legacyAPI{songs: songs, events: events, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/health", healthCheck).Methods("GET")

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(mux.MiddlewareFunc(middleware.Authenticate(validator, identity, logger)))

	v1.HandleFunc("/songs", api.listSongs).Methods("GET")
	v1.HandleFunc("/songs/{id}", api.getSong).Methods("GET")
	v1.HandleFunc("/events", api.listEvents).Methods("GET")
	v1.HandleFunc("/events/{id}", api.getEvent).Methods("GET")

	return router
}

type legacyAPI struct {
	songs  ports.SongRepository
	events ports.EventRepository
	logger *zap.Logger
}

// listSongs drains the whole collection in title order, the only shape the
// old client understands.
func (a *legacyAPI) listSongs(w http.ResponseWriter, r *http.Request) {
	var all []domain.Song
	req := ports.PageRequest{SortField: "title", Limit: listPageSize}
	for {
		page, err := a.songs.Page(r.Context(), req)
		if err != nil {
			a.fail(w, err, "failed to list songs")
			return
		}
		all = append(all, page.Items...)
		if len(page.Items) < listPageSize || page.Last == "" {
			break
		}
		req.After = page.Last
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"songs": all, "total": len(all)})
}

func (a *legacyAPI) getSong(w http.ResponseWriter, r *http.Request) {
	song, err := a.songs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, err, "failed to load song")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (a *legacyAPI) listEvents(w http.ResponseWriter, r *http.Request) {
	all, err := a.events.ListAll(r.Context())
	if err != nil {
		a.fail(w, err, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": all, "total": len(all)})
}

func (a *legacyAPI) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := a.events.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, err, "failed to load event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// fail maps errors into the flat {"error": ...} shape v1 clients expect.
func (a *legacyAPI) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	a.logger.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// healthCheck responds without touching any backing store.
func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": "v1"})
}
