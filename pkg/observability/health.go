package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult is the result of a health check.
type HealthCheckResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// HealthChecker performs one check.
type HealthChecker func(ctx context.Context) HealthCheckResult

// PingChecker turns a ping into a checker. A failed ping reports
// failStatus, so optional dependencies can degrade instead of fail.
func PingChecker(ping func(ctx context.Context) error, failStatus HealthStatus) HealthChecker {
	return func(ctx context.Context) HealthCheckResult {
		if err := ping(ctx); err != nil {
			return HealthCheckResult{Status: failStatus, Message: err.Error()}
		}
		return HealthCheckResult{Status: HealthStatusHealthy}
	}
}

// OverallHealth is the aggregate of every registered check.
type OverallHealth struct {
	Status HealthStatus                 `json:"status"`
	Checks map[string]HealthCheckResult `json:"checks"`
}

// HealthRegistry runs named health checks concurrently.
type HealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthRegistry creates a new health registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checkers: make(map[string]HealthChecker)}
}

// Register adds a health checker for a component.
func (r *HealthRegistry) Register(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Check runs every checker. The worst individual status wins.
func (r *HealthRegistry) Check(ctx context.Context) OverallHealth {
	r.mu.RLock()
	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]HealthChecker, len(names))
	for i, name := range names {
		checkers[i] = r.checkers[name]
	}
	r.mu.RUnlock()

	results := make([]HealthCheckResult, len(names))
	var wg sync.WaitGroup
	for i, check := range checkers {
		wg.Add(1)
		go func(i int, check HealthChecker) {
			defer wg.Done()
			start := time.Now()
			res := check(ctx)
			res.Duration = time.Since(start)
			results[i] = res
		}(i, check)
	}
	wg.Wait()

	overall := OverallHealth{Status: HealthStatusHealthy, Checks: make(map[string]HealthCheckResult, len(names))}
	for i, name := range names {
		overall.Checks[name] = results[i]
		switch results[i].Status {
		case HealthStatusUnhealthy:
			overall.Status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall.Status == HealthStatusHealthy {
				overall.Status = HealthStatusDegraded
			}
		}
	}
	return overall
}

// Handler serves the aggregate as JSON, with 503 when unhealthy.
func (r *HealthRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		health := r.Check(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
}
