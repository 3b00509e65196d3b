package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"senkou-backend/application/ports"
	"senkou-backend/interfaces/http/rest/handlers"
	"senkou-backend/interfaces/http/rest/middleware"
	pkgerrors "senkou-backend/pkg/errors"
	"senkou-backend/pkg/observability"
)

// Options configures the router's cross-cutting behaviour
type Options struct {
	EnableCORS     bool
	AllowedOrigins []string
	// ExposeMetrics mounts /metrics; Lambda deployments leave it off.
	ExposeMetrics bool
	Debug         bool
}

// Router creates and configures the HTTP router
type Router struct {
	service   handlers.RecordService
	publisher ports.EventPublisher
	metrics   *observability.Collector
	options   Options
	logger    *zap.Logger
}

// NewRouter creates a new router instance. metrics and publisher may be nil.
func NewRouter(
	service handlers.RecordService,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	options Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		service:   service,
		publisher: publisher,
		metrics:   metrics,
		options:   options,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.options.Debug)
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}
	router.Use(errorHandler.Middleware)

	if rt.options.EnableCORS {
		origins := rt.options.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"OPTIONS", "GET", "PUT", "POST", "DELETE"},
			AllowedHeaders: []string{"Content-Type", "X-Amz-Date", "Authorization", "X-Api-Key", "X-Amz-Security-Token", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.options.ExposeMetrics && rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	recordHandler := handlers.NewRecordHandler(rt.service, rt.publisher, errorHandler, rt.logger)
	router.Route("/senkous", func(r chi.Router) {
		r.Post("/", recordHandler.CreateRecord)
		r.Get("/", recordHandler.ListRecords)
		r.Get("/{recordId}", recordHandler.GetRecord)
		r.Put("/{recordId}", recordHandler.UpdateRecord)
		r.Delete("/{recordId}", recordHandler.DeleteRecord)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
