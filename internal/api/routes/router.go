package routes

import (
	"net/http"

	"github.com/zatekoja/druglabels/backend/internal/api/handlers"
	"github.com/zatekoja/druglabels/backend/internal/api/middleware"
	"github.com/zatekoja/druglabels/backend/internal/api/tools"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	drugHandler   *handlers.DrugHandler
	toolAdapter   *tools.Adapter
	searchCache   *middleware.ResponseCache
	metrics       *observability.Metrics
	allowedOrigin []string
}

// NewRouter creates a new router. searchCache may be nil.
func NewRouter(
	drugHandler *handlers.DrugHandler,
	toolAdapter *tools.Adapter,
	searchCache *middleware.ResponseCache,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:           http.NewServeMux(),
		drugHandler:   drugHandler,
		toolAdapter:   toolAdapter,
		searchCache:   searchCache,
		metrics:       metrics,
		allowedOrigin: allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Drug label endpoints
	r.mux.HandleFunc("GET /api/drugs", r.searchCache.Wrap(r.drugHandler.SearchDrugs))
	r.mux.HandleFunc("GET /api/drugs/{id}", r.drugHandler.GetDrug)
	r.mux.HandleFunc("GET /api/drugs/{id}/enhanced", r.drugHandler.GetEnhancedDrug)

	// Tool protocol endpoint
	r.mux.Handle("POST /mcp", tools.ServeHTTP(r.toolAdapter))

	// The observability middleware must wrap the mux directly so it can read
	// the matched route pattern.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigin)(handler)

	return handler
}
