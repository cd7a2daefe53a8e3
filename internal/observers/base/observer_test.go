package base

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/capable/pkg/domain"
	"go.uber.org/zap/zaptest"
)

func TestBaseObserverCounters(t *testing.T) {
	bo := NewBaseObserver("test", 5*time.Minute)

	bo.RecordEvent()
	bo.RecordEvent()
	bo.RecordDrop()
	bo.RecordError(errors.New("boom"))
	bo.RecordLost(context.Background(), 7)

	assert.Equal(t, int64(2), bo.GetEventCount())
	assert.Equal(t, int64(1), bo.GetDroppedCount())
	assert.Equal(t, int64(1), bo.GetErrorCount())
	assert.Equal(t, int64(7), bo.GetLostCount())

	stats := bo.Statistics()
	require.NotNil(t, stats)
	assert.Equal(t, int64(2), stats.EventsProcessed)
	assert.Equal(t, int64(1), stats.EventsDropped)
	assert.Equal(t, "7", stats.CustomMetrics["ring_lost"])
	assert.False(t, stats.LastEventTime.IsZero())
}

func TestBaseObserverHealth(t *testing.T) {
	bo := NewBaseObserver("test", 50*time.Millisecond)

	// Healthy with no events: a silent target is not an error
	health := bo.Health()
	assert.True(t, health.IsHealthy())

	// Degraded once events stop flowing past the timeout
	bo.RecordEvent()
	time.Sleep(80 * time.Millisecond)
	health = bo.Health()
	assert.Equal(t, domain.HealthDegraded, health.Status)

	// Explicitly unhealthy wins
	bo.RecordError(errors.New("verifier rejected program"))
	bo.SetHealthy(false)
	health = bo.Health()
	assert.Equal(t, domain.HealthUnhealthy, health.Status)
	assert.Contains(t, health.LastErrorText, "verifier")
}

func TestLifecycleManagerStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	lm := NewLifecycleManager(context.Background(), logger)

	started := make(chan struct{})
	lm.Start("worker", func() {
		close(started)
		<-lm.Context().Done()
	})
	<-started

	assert.False(t, lm.IsShuttingDown())
	require.NoError(t, lm.Stop(time.Second))
	assert.True(t, lm.IsShuttingDown())
}

func TestLifecycleManagerStopTimeout(t *testing.T) {
	lm := NewLifecycleManager(context.Background(), nil)

	release := make(chan struct{})
	lm.Start("stuck", func() {
		<-release
	})

	err := lm.Stop(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	close(release)
}

func TestEventChannelManagerSendAndDrop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ecm := NewEventChannelManager(2, "test", logger)

	ev := &domain.CapabilityEvent{Cap: 21, CapName: "CAP_SYS_ADMIN"}
	assert.True(t, ecm.SendEvent(ev))
	assert.True(t, ecm.SendEvent(ev))

	// Channel full: non-blocking send drops
	assert.False(t, ecm.SendEvent(ev))
	assert.Equal(t, int64(2), ecm.GetSentCount())
	assert.Equal(t, int64(1), ecm.GetDroppedCount())
	assert.Equal(t, float64(100), ecm.GetChannelUtilization())

	got := <-ecm.GetChannel()
	assert.Equal(t, ev, got)
}

func TestEventChannelManagerClose(t *testing.T) {
	ecm := NewEventChannelManager(1, "test", nil)
	ecm.Close()
	ecm.Close() // idempotent

	assert.False(t, ecm.SendEvent(&domain.CapabilityEvent{}))
}
