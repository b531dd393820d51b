package service

import (
	"context"

	"github.com/vzahanych/vision-portal/internal/logger"
)

// Service represents a long-running component that can be started and stopped
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}

// ServiceBase provides common plumbing for services: a named logger and a
// status tracker. Concrete services embed it.
type ServiceBase struct {
	name   string
	logger *logger.Logger
	status *ServiceStatus
}

// NewServiceBase creates the shared base for a named service
func NewServiceBase(name string, log *logger.Logger) *ServiceBase {
	return &ServiceBase{
		name:   name,
		logger: log,
		status: NewServiceStatus(name),
	}
}

// Name returns the service name
func (b *ServiceBase) Name() string {
	return b.name
}

// GetStatus returns the status tracker
func (b *ServiceBase) GetStatus() *ServiceStatus {
	return b.status
}

// SetStatus updates the service's lifecycle state
func (b *ServiceBase) SetStatus(status Status) {
	b.status.SetStatus(status)
}

// LogInfo logs an info message tagged with the service name
func (b *ServiceBase) LogInfo(msg string, fields ...interface{}) {
	b.logger.Info(msg, append([]interface{}{"service", b.name}, fields...)...)
}

// LogWarn logs a warning message tagged with the service name
func (b *ServiceBase) LogWarn(msg string, fields ...interface{}) {
	b.logger.Warn(msg, append([]interface{}{"service", b.name}, fields...)...)
}

// LogError logs an error message tagged with the service name
func (b *ServiceBase) LogError(msg string, err error, fields ...interface{}) {
	b.logger.Error(msg, append([]interface{}{"service", b.name, "error", err}, fields...)...)
}
