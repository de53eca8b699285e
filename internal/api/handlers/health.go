package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services,omitempty"`
}

// Check reports nil when a component is healthy.
type Check func() error

// HealthHandler runs every check and answers 200 when all pass, 503
// otherwise.
func HealthHandler(version string, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		services := make(map[string]string, len(checks))

		for _, name := range names {
			if err := checks[name](); err != nil {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
				services[name] = "unhealthy: " + err.Error()
			} else {
				services[name] = "healthy"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:   status,
			Version:  version,
			Services: services,
		})
	}
}
