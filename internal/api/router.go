package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/api/handlers"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(
	planHandler *handlers.PlanHandler,
	executionHandler *handlers.ExecutionHandler,
	controlHandler *handlers.ControlHandler,
	portfolioHandler *handlers.PortfolioHandler,
	auditHandler *handlers.AuditHandler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Plan endpoints
	api.HandleFunc("/plans/generate", planHandler.Generate).Methods("POST")
	api.HandleFunc("/plans", planHandler.List).Methods("GET")
	api.HandleFunc("/plans/{id}", planHandler.Get).Methods("GET")
	api.HandleFunc("/plans/{id}/approve", planHandler.Approve).Methods("POST")
	api.HandleFunc("/plans/{id}/reject", planHandler.Reject).Methods("POST")
	api.HandleFunc("/plans/{id}/expire", planHandler.Expire).Methods("POST")

	// Execution endpoints
	api.HandleFunc("/executions/{plan_id}/start", executionHandler.Start).Methods("POST")
	api.HandleFunc("/executions", executionHandler.List).Methods("GET")
	api.HandleFunc("/executions/{id}", executionHandler.Get).Methods("GET")

	// Control endpoints
	api.HandleFunc("/controls", controlHandler.Get).Methods("GET")
	api.HandleFunc("/controls/kill-switch", controlHandler.SetKillSwitch).Methods("POST")

	// Portfolio endpoints
	api.HandleFunc("/portfolio/snapshot", portfolioHandler.GetSnapshot).Methods("GET")

	// Audit endpoints
	api.HandleFunc("/audit/events", auditHandler.ListEvents).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "trading-system-api",
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

// recoveryMiddleware recovers from panics
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
