package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/vision-portal/internal/logger"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	started  bool
	stopped  bool
	order    *[]string
}

func (f *fakeService) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	if f.order != nil {
		*f.order = append(*f.order, "start:"+f.name)
	}
	return nil
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.stopped = true
	if f.order != nil {
		*f.order = append(*f.order, "stop:"+f.name)
	}
	return f.stopErr
}

func (f *fakeService) Name() string { return f.name }

func TestManagerStartAndShutdown(t *testing.T) {
	var order []string
	mgr := NewManager(logger.NewNopLogger())

	a := &fakeService{name: "a", order: &order}
	b := &fakeService{name: "b", order: &order}
	mgr.Register(a)
	mgr.Register(b)

	ctx := context.Background()
	require.NoError(t, mgr.Start(ctx))
	assert.Equal(t, 2, mgr.GetServiceCount())
	assert.Equal(t, StatusRunning, mgr.GetServiceStatus("a").GetStatus())
	assert.Equal(t, StatusRunning, mgr.GetServiceStatus("b").GetStatus())

	require.NoError(t, mgr.Shutdown(ctx))

	// Stopped in reverse start order
	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, order)
	assert.Equal(t, StatusStopped, mgr.GetServiceStatus("a").GetStatus())
}

func TestManagerStartFailureRollsBack(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())

	a := &fakeService{name: "a"}
	bad := &fakeService{name: "bad", startErr: errors.New("boom")}
	mgr.Register(a)
	mgr.Register(bad)

	err := mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	// The already-started service must have been stopped again
	assert.True(t, a.stopped)
	assert.Equal(t, StatusError, mgr.GetServiceStatus("bad").GetStatus())
}

func TestServiceStatusTransitions(t *testing.T) {
	status := NewServiceStatus("test")
	assert.Equal(t, StatusCreated, status.GetStatus())

	status.SetStatus(StatusRunning)
	assert.Equal(t, StatusRunning, status.GetStatus())

	status.SetError(errors.New("failed"))
	assert.Equal(t, StatusError, status.GetStatus())
	assert.EqualError(t, status.GetError(), "failed")
}
