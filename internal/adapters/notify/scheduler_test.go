package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/campusgate/portal-api/internal/errors"
	"github.com/campusgate/portal-api/internal/ports"
)

type captureSink struct {
	mu    sync.Mutex
	fired []ports.Notification
}

func (c *captureSink) sink(n ports.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fired = append(c.fired, n)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fired)
}

func TestScheduleNow(t *testing.T) {
	capture := &captureSink{}
	s := NewScheduler(SchedulerOptions{Sink: capture.sink})

	id, err := s.ScheduleNow(context.Background(), ports.Notification{Title: "Due soon"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, capture.count())
}

func TestScheduleAfter_Fires(t *testing.T) {
	capture := &captureSink{}
	s := NewScheduler(SchedulerOptions{Sink: capture.sink})

	_, err := s.ScheduleAfter(context.Background(), 5*time.Millisecond, ports.Notification{Title: "Due soon"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return capture.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduleAfter_Validation(t *testing.T) {
	s := NewScheduler(SchedulerOptions{MaxDelay: time.Minute})

	_, err := s.ScheduleAfter(context.Background(), -time.Second, ports.Notification{})
	assert.True(t, apperrors.IsValidation(err))

	_, err = s.ScheduleAfter(context.Background(), time.Hour, ports.Notification{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCancel(t *testing.T) {
	capture := &captureSink{}
	s := NewScheduler(SchedulerOptions{Sink: capture.sink})

	id, err := s.ScheduleAfter(context.Background(), time.Hour, ports.Notification{Title: "Never"})
	require.NoError(t, err)
	require.Equal(t, 1, s.Pending())

	require.NoError(t, s.Cancel(context.Background(), id))
	assert.Equal(t, 0, s.Pending())

	// Unknown id is a no-op.
	require.NoError(t, s.Cancel(context.Background(), "missing"))
	assert.Equal(t, 0, capture.count())
}

func TestCancelAll(t *testing.T) {
	s := NewScheduler(SchedulerOptions{})

	for range 3 {
		_, err := s.ScheduleAfter(context.Background(), time.Hour, ports.Notification{})
		require.NoError(t, err)
	}
	require.Equal(t, 3, s.Pending())

	require.NoError(t, s.CancelAll(context.Background()))
	assert.Equal(t, 0, s.Pending())
}
