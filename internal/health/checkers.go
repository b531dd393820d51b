package health

import (
	"context"
	"os"
	"time"

	"github.com/vzahanych/vision-portal/internal/detect"
)

// Pinger is the database surface the health check needs
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker verifies the user database responds
type DatabaseChecker struct {
	db Pinger
}

// NewDatabaseChecker creates a database health checker
func NewDatabaseChecker(db Pinger) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string { return "database" }

func (c *DatabaseChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(pingCtx); err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// DetectorChecker reports whether the model service is reachable. An
// unavailable model degrades the portal (uploads and listings still work)
// rather than making it unhealthy.
type DetectorChecker struct {
	detector detect.Detector
}

// NewDetectorChecker creates a detector health checker
func NewDetectorChecker(detector detect.Detector) *DetectorChecker {
	return &DetectorChecker{detector: detector}
}

func (c *DetectorChecker) Name() string { return "detector" }

func (c *DetectorChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	if !c.detector.Ready() {
		check.Status = StatusDegraded
		check.Message = "model service unavailable"
	}
	return check
}

// StorageChecker verifies the upload and output roots exist and are
// directories.
type StorageChecker struct {
	paths []string
}

// NewStorageChecker creates a storage health checker over the given roots
func NewStorageChecker(paths ...string) *StorageChecker {
	return &StorageChecker{paths: paths}
}

func (c *StorageChecker) Name() string { return "storage" }

func (c *StorageChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Details:   map[string]interface{}{"paths": c.paths},
	}

	for _, path := range c.paths {
		info, err := os.Stat(path)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		if !info.IsDir() {
			check.Status = StatusUnhealthy
			check.Message = path + " is not a directory"
			return check
		}
	}
	return check
}
