package service

import (
	"sync"
	"time"
)

// Status represents the lifecycle state of a service
type Status string

const (
	StatusCreated  Status = "created"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// ServiceStatus tracks the status of a single service
type ServiceStatus struct {
	name      string
	status    Status
	err       error
	changedAt time.Time
	mu        sync.RWMutex
}

// NewServiceStatus creates a status tracker for the named service
func NewServiceStatus(name string) *ServiceStatus {
	return &ServiceStatus{
		name:      name,
		status:    StatusCreated,
		changedAt: time.Now(),
	}
}

// Name returns the service name
func (s *ServiceStatus) Name() string {
	return s.name
}

// GetStatus returns the current status
func (s *ServiceStatus) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus updates the current status
func (s *ServiceStatus) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.changedAt = time.Now()
}

// SetError records an error and moves the service into the error state
func (s *ServiceStatus) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.status = StatusError
	s.changedAt = time.Now()
}

// GetError returns the last recorded error, if any
func (s *ServiceStatus) GetError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ChangedAt returns when the status last changed
func (s *ServiceStatus) ChangedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changedAt
}
