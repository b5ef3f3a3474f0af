package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"resumerank/internal/ai"
)

const defaultModelCheckTimeout = 10 * time.Second

// healthHandler is a liveness probe
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OK"})
}

// statusHandler reports version, model availability, breaker and rate-limit state
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "resumerank",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_upload_files":       s.MaxUploadFiles,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
	}

	if info := s.checkModelHealth(r.Context()); info != nil {
		response["model"] = info
		if !info.Available {
			response["status"] = "degraded"
		}
	}

	if stats, ok := s.Model.(ai.StatsProvider); ok {
		response["circuit_breakers"] = stats.CircuitBreakerStats()
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	status := http.StatusOK
	if response["status"] != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkModelHealth asks the model client for availability when it supports it
func (s *Server) checkModelHealth(ctx context.Context) *ai.ModelInfo {
	provider, ok := s.Model.(ai.ModelInfoProvider)
	if !ok {
		return nil
	}

	timeout := defaultModelCheckTimeout
	if s.AppConfig != nil && s.AppConfig.Observability.HealthCheck.Timeout > 0 {
		timeout = s.AppConfig.Observability.HealthCheck.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return provider.ModelInfo(ctx)
}

// writeEnvelope writes a dashboard response envelope
func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	if env.Data == nil {
		env.Data = map[string]any{}
	}
	writeJSON(w, status, env)
}

// writeErrorEnvelope writes an envelope with empty data
func writeErrorEnvelope(w http.ResponseWriter, status int, message, detail string) {
	writeEnvelope(w, status, Envelope{Message: message, Error: &detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
