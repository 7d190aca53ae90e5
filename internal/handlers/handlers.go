package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"teamdir.dev/internal/middleware"
	"teamdir.dev/internal/services"
)

// Deps are the collaborators the routes need
type Deps struct {
	Directory *services.DirectoryService
	DataPath  string
	Logger    *zap.Logger
}

// SetupRoutes configures all routes and returns the router
func SetupRoutes(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	useMiddleware(r, logger)

	directoryHandler := NewDirectoryHandler(deps.Directory, logger)

	r.Get("/", directoryHandler.Page)
	r.Post("/filter", directoryHandler.FilterForm)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/view", directoryHandler.GetView)
		r.Get("/dataset", directoryHandler.GetDataset)
		r.Post("/filter", directoryHandler.Filter)
		r.Post("/cards/{index}/press", directoryHandler.Press)
		r.Get("/scroll", directoryHandler.Scroll)

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	// Dataset document the loader fetches
	r.Get("/data.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, filepath.Join(deps.DataPath, "data.json"))
	})

	return r
}

// useMiddleware installs the shared chain. Logger wraps Recovery so a
// panicking request still gets its access line with the 500.
func useMiddleware(r chi.Router, logger *zap.Logger) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Error encoding JSON", zap.Error(err))
	}
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]string{"error": message})
}
