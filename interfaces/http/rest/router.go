// Package rest wires the HTTP surface: the current /api/v2 router and the
// legacy /api/v1 surface kept for the old backoffice client.
package rest

import (
	"net/http"
	"strings"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
	"songarchive-backend/interfaces/http/rest/handlers"
	"songarchive-backend/interfaces/http/rest/middleware"
	"songarchive-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers bundles the endpoint handlers the router mounts. Legacy is the
// prebuilt /api/v1 surface.
type Handlers struct {
	Songs    *handlers.SongHandler
	Events   *handlers.EventHandler
	Taxonomy *handlers.TaxonomyHandler
	Users    *handlers.UserHandler
	Import   *handlers.ImportHandler
	System   *handlers.SystemHandler
	Legacy   http.Handler
}

// Router creates and configures the HTTP router.
type Router struct {
	handlers    Handlers
	validator   *auth.Validator
	identity    ports.IdentityProvider
	registry    *prometheus.Registry
	corsOrigins []string
	logger      *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	h Handlers,
	validator *auth.Validator,
	identity ports.IdentityProvider,
	registry *prometheus.Registry,
	corsOrigins []string,
	logger *zap.Logger,
) *Router {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:3000"}
	}
	return &Router{
		handlers:    h,
		validator:   validator,
		identity:    identity,
		registry:    registry,
		corsOrigins: corsOrigins,
		logger:      logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(versionMiddleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Session-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	// Legacy surface for the old backoffice client.
	if rt.handlers.Legacy != nil {
		router.Mount("/api/v1", rt.handlers.Legacy)
	}

	router.Route("/api/v2", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.identity, rt.logger))

		r.Route("/songs", func(r chi.Router) {
			r.Get("/", rt.handlers.Songs.List)
			r.Get("/{id}", rt.handlers.Songs.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))
				r.Post("/", rt.handlers.Songs.Create)
				r.Put("/{id}", rt.handlers.Songs.Update)
				r.Delete("/{id}", rt.handlers.Songs.Delete)
				r.Post("/{id}/image", rt.handlers.Songs.UploadImage)
				r.Delete("/{id}/image", rt.handlers.Songs.DeleteImage)
				r.Post("/import", rt.handlers.Import.ImportSongs)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", rt.handlers.Events.List)
			r.Get("/aggregated", rt.handlers.Events.Aggregated)
			r.Get("/{id}", rt.handlers.Events.Get)

			// Organizers may manage events alongside admins.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireEventManager())
				r.Post("/", rt.handlers.Events.Create)
				r.Put("/{id}", rt.handlers.Events.Update)
				r.Delete("/{id}", rt.handlers.Events.Delete)
			})
		})

		r.Route("/taxonomy", func(r chi.Router) {
			r.Get("/{category}", rt.handlers.Taxonomy.List)
			r.With(middleware.RequireRole(domain.RoleAdmin)).
				Put("/{category}", rt.handlers.Taxonomy.Replace)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Get("/", rt.handlers.Users.List)
			r.Put("/{id}/role", rt.handlers.Users.UpdateRole)
			r.Delete("/{id}", rt.handlers.Users.Delete)
		})

		r.Route("/system", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Get("/cache", rt.handlers.System.CacheStats)
			r.Post("/cache/flush", rt.handlers.System.FlushCache)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds API version headers to all responses.
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.Contains(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
		}

		next.ServeHTTP(w, r)
	})
}
