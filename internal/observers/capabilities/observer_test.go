package capabilities

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/capable/pkg/caps"
	"github.com/yairfalse/capable/pkg/domain"
	"go.uber.org/zap/zaptest"
)

func mockConfig() *Config {
	cfg := DefaultConfig()
	cfg.TargetPID = targetTGID
	cfg.Unique = UniqueTGID
	cfg.MockMode = true
	cfg.BufferSize = 64
	return cfg
}

func TestNewObserver(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:   "mock config",
			config: mockConfig(),
		},
		{
			name:    "nil config fails validation without target",
			config:  nil,
			wantErr: true,
		},
		{
			name: "invalid buffer size",
			config: func() *Config {
				c := mockConfig()
				c.BufferSize = -1
				return c
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			observer, err := NewObserver("test-caps", tt.config, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, observer)

			assert.Equal(t, "test-caps", observer.Name())
			assert.NotNil(t, observer.BaseObserver)
			assert.NotNil(t, observer.EventChannelManager)
			assert.NotNil(t, observer.LifecycleManager)

			observer.Stop()
		})
	}
}

func TestObserverMockLifecycle(t *testing.T) {
	logger := zaptest.NewLogger(t)
	observer, err := NewObserver("test-caps", mockConfig(), logger)
	require.NoError(t, err)

	require.NoError(t, observer.Start(context.Background()))
	assert.True(t, observer.IsHealthy())

	require.NoError(t, observer.Stop())
	assert.False(t, observer.IsHealthy())
}

func TestObserverMockEndToEnd(t *testing.T) {
	logger := zaptest.NewLogger(t)
	observer, err := NewObserver("test-caps", mockConfig(), logger)
	require.NoError(t, err)
	require.NoError(t, observer.Start(context.Background()))
	defer observer.Stop()

	// Target binds its cgroup on first sight and the event flows through
	observer.InjectCheck(check(targetTGID, targetCgroup, caps.CAP_SYS_ADMIN, 0))
	// Duplicate is suppressed
	observer.InjectCheck(check(targetTGID, targetCgroup, caps.CAP_SYS_ADMIN, 0))
	// Child in the same cgroup is in scope
	observer.InjectCheck(check(5678, targetCgroup, caps.CAP_NET_BIND_SERVICE, 0))
	// Foreign cgroup is not
	observer.InjectCheck(check(9999, otherCgroup, caps.CAP_CHOWN, 0))

	var events []*domain.CapabilityEvent
	timeout := time.After(time.Second)
loop:
	for {
		select {
		case ev := <-observer.Events():
			events = append(events, ev)
			if len(events) == 2 {
				break loop
			}
		case <-timeout:
			break loop
		}
	}

	require.Len(t, events, 2)
	assert.Equal(t, "CAP_SYS_ADMIN", events[0].CapName)
	assert.Equal(t, "test-caps", events[0].Source)
	assert.Equal(t, "CAP_NET_BIND_SERVICE", events[1].CapName)

	stats := observer.Statistics()
	assert.Equal(t, int64(2), stats.EventsProcessed)
	assert.Equal(t, "2", stats.CustomMetrics["seen_entries"])
}

func TestObserverResetSeen(t *testing.T) {
	logger := zaptest.NewLogger(t)
	observer, err := NewObserver("test-caps", mockConfig(), logger)
	require.NoError(t, err)
	require.NoError(t, observer.Start(context.Background()))
	defer observer.Stop()

	observer.InjectCheck(check(targetTGID, targetCgroup, caps.CAP_SYS_ADMIN, 0))
	observer.InjectCheck(check(targetTGID, targetCgroup, caps.CAP_SYS_ADMIN, 0))

	require.NoError(t, observer.ResetSeen())
	observer.InjectCheck(check(targetTGID, targetCgroup, caps.CAP_SYS_ADMIN, 0))

	count := 0
	deadline := time.After(time.Second)
	for count < 2 {
		select {
		case <-observer.Events():
			count++
		case <-deadline:
			t.Fatalf("expected 2 events after reset, got %d", count)
		}
	}
	assert.Equal(t, 2, count)
}

func TestObserverHealthReporting(t *testing.T) {
	logger := zaptest.NewLogger(t)
	observer, err := NewObserver("test-caps", mockConfig(), logger)
	require.NoError(t, err)

	health := observer.Health()
	require.NotNil(t, health)
	assert.Equal(t, domain.HealthHealthy, health.Status)
}
