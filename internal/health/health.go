package health

import (
	"context"
	"sync"
	"time"

	"github.com/vzahanych/vision-portal/internal/logger"
	"github.com/vzahanych/vision-portal/internal/service"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents one health check result
type Check struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Report represents the overall health report
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]Check       `json:"checks"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// Checker is an interface for health checkers
type Checker interface {
	Name() string
	Check(ctx context.Context) Check
}

// Registry aggregates health checkers and service statuses into reports.
// The web server exposes the result; the registry itself serves no traffic.
type Registry struct {
	logger     *logger.Logger
	checkers   []Checker
	svcManager *service.Manager
	startTime  time.Time
	mu         sync.RWMutex
}

// NewRegistry creates a health check registry
func NewRegistry(log *logger.Logger, svcManager *service.Manager) *Registry {
	return &Registry{
		logger:     log,
		checkers:   make([]Checker, 0),
		svcManager: svcManager,
		startTime:  time.Now(),
	}
}

// RegisterChecker registers a health checker
func (r *Registry) RegisterChecker(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, checker)
}

// Uptime returns how long the process has been up
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.startTime)
}

// Check runs all registered checkers and aggregates the result. Any
// unhealthy check makes the whole report unhealthy; degraded checks
// degrade it.
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	checks := make(map[string]Check)
	overall := StatusHealthy

	for _, checker := range r.checkers {
		check := checker.Check(ctx)
		checks[check.Name] = check

		if check.Status == StatusUnhealthy {
			overall = StatusUnhealthy
		} else if check.Status == StatusDegraded && overall == StatusHealthy {
			overall = StatusDegraded
		}
	}

	services := make(map[string]interface{})
	if r.svcManager != nil {
		for name, status := range r.svcManager.GetAllStatuses() {
			entry := map[string]interface{}{
				"status": status.GetStatus(),
			}
			if err := status.GetError(); err != nil {
				entry["error"] = err.Error()
			}
			services[name] = entry
		}
	}

	return Report{
		Status:    overall,
		Timestamp: time.Now(),
		Uptime:    time.Since(r.startTime).String(),
		Checks:    checks,
		Services:  services,
	}
}
