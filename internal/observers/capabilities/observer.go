// Package capabilities traces capability checks made by a target container.
//
// A kprobe on cap_capable observes every capability arbitration in the
// kernel. The probe discovers the target's cgroup from the configured pid,
// then admits every task in that cgroup, so forks and short-lived workers
// stay in scope. Admitted checks are deduplicated kernel-side and streamed
// to user space over a per-CPU perf ring.
package capabilities

import (
	"context"
	"fmt"
	"time"

	"github.com/yairfalse/capable/internal/observers/base"
	"github.com/yairfalse/capable/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Observer traces capability checks scoped to a target cgroup.
type Observer struct {
	*base.BaseObserver        // Embed for stats/health
	*base.EventChannelManager // Embed for events
	*base.LifecycleManager    // Embed for lifecycle

	config *Config
	logger *zap.Logger
	name   string

	// eBPF state (platform-specific)
	ebpfState interface{}

	// User-space mirror of the kernel pipeline, active in mock mode
	mockFilter *checkFilter

	// OpenTelemetry instrumentation
	checksTraced   metric.Int64Counter
	capsDiscovered metric.Int64Counter
}

// NewObserver creates a new capability observer.
func NewObserver(name string, config *Config, logger *zap.Logger) (*Observer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if name == "" {
		name = config.Name
	}
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	meter := otel.Meter(name)
	checksTraced, _ := meter.Int64Counter(
		fmt.Sprintf("%s_checks_traced_total", name),
		metric.WithDescription("Capability check events received from the kernel"),
	)
	capsDiscovered, _ := meter.Int64Counter(
		fmt.Sprintf("%s_caps_discovered_total", name),
		metric.WithDescription("Distinct capabilities surfaced for the target"),
	)

	o := &Observer{
		BaseObserver:        base.NewBaseObserver(name, config.HealthCheckTimeout),
		EventChannelManager: base.NewEventChannelManager(config.BufferSize, name, logger),
		LifecycleManager:    base.NewLifecycleManager(context.Background(), logger),
		config:              config,
		logger:              logger.Named(name),
		name:                name,
		checksTraced:        checksTraced,
		capsDiscovered:      capsDiscovered,
	}

	if config.MockMode {
		// Mock mode assumes a modern kernel's cap_opt encoding
		o.mockFilter = newCheckFilter(config, true)
	}

	return o, nil
}

// Name returns the observer name.
func (o *Observer) Name() string {
	return o.name
}

// Start attaches the probe and begins streaming events.
func (o *Observer) Start(ctx context.Context) error {
	o.logger.Info("Starting capability observer",
		zap.Uint32("target_pid", o.config.TargetPID),
		zap.Bool("verbose", o.config.Verbose),
		zap.String("unique", o.config.Unique.String()),
		zap.String("cgroup_path", o.config.CgroupPath),
		zap.Bool("mock", o.config.MockMode),
	)

	if o.config.MockMode {
		o.BaseObserver.SetHealthy(true)
		o.logger.Info("Capability observer started in mock mode")
		return nil
	}

	if err := o.startEBPF(); err != nil {
		return fmt.Errorf("failed to start eBPF: %w", err)
	}

	o.BaseObserver.SetHealthy(true)
	o.logger.Info("Capability observer started")
	return nil
}

// Stop detaches the probe and closes the event channel.
func (o *Observer) Stop() error {
	o.logger.Info("Stopping capability observer")

	o.stopEBPF()

	if err := o.LifecycleManager.Stop(5 * time.Second); err != nil {
		o.logger.Warn("Timeout during shutdown", zap.Error(err))
	}

	o.EventChannelManager.Close()
	o.BaseObserver.SetHealthy(false)
	o.logger.Info("Capability observer stopped")
	return nil
}

// Events returns the events channel.
func (o *Observer) Events() <-chan *domain.CapabilityEvent {
	return o.EventChannelManager.GetChannel()
}

// Statistics returns observer statistics.
func (o *Observer) Statistics() *domain.CollectorStats {
	stats := o.BaseObserver.Statistics()
	if o.mockFilter != nil {
		stats.CustomMetrics["seen_entries"] = fmt.Sprintf("%d", o.mockFilter.seenCount())
	}
	return stats
}

// Health returns health status.
func (o *Observer) Health() *domain.HealthStatus {
	return o.BaseObserver.Health()
}

// ResetSeen clears the deduplication table so a subsequent run reports
// every capability again. The target binding is left in place.
func (o *Observer) ResetSeen() error {
	if o.config.MockMode {
		o.mockFilter.reset()
		return nil
	}
	return o.resetSeenMap()
}

// InjectCheck feeds one synthetic capability check through the user-space
// pipeline. Mock mode only; the kernel performs this work in production.
func (o *Observer) InjectCheck(c capCheck) {
	if o.mockFilter == nil {
		return
	}
	event := o.mockFilter.evaluate(c)
	if event == nil {
		return
	}
	event.Source = o.name
	o.emit(event)
}

// emit delivers a decoded event to the consumer channel with accounting.
func (o *Observer) emit(event *domain.CapabilityEvent) {
	ctx := o.LifecycleManager.Context()
	if o.checksTraced != nil {
		o.checksTraced.Add(ctx, 1)
	}
	if o.EventChannelManager.SendEvent(event) {
		o.BaseObserver.RecordEvent()
		if o.capsDiscovered != nil && o.config.Unique != UniqueOff {
			// With dedup on, every delivered event is a new discovery
			o.capsDiscovered.Add(ctx, 1)
		}
	} else {
		o.BaseObserver.RecordDrop()
	}
}
