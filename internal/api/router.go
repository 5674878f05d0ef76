package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tradepulse/backend/internal/api/handlers"
	"github.com/tradepulse/backend/pkg/logger"
)

// NewRouter wires the API routes and middleware.
func NewRouter(
	picksHandler *handlers.PicksHandler,
	pipelineHandler *handlers.PipelineHandler,
	hub *Hub,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Pick listing
	api.HandleFunc("/picks", picksHandler.GetPicks).Methods("GET")
	api.HandleFunc("/picks/categories", picksHandler.GetCategories).Methods("GET")

	// Pipeline control
	api.HandleFunc("/pipeline/run", pipelineHandler.TriggerRun).Methods("POST")
	api.HandleFunc("/pipeline/status", pipelineHandler.GetStatus).Methods("GET")

	// Scheduler job control
	api.HandleFunc("/jobs/{name}/run", pipelineHandler.RunJob).Methods("POST")

	// Progress feed
	r.HandleFunc("/ws/pipeline", hub.Handle)

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "tradepulse-picks-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from handler panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
