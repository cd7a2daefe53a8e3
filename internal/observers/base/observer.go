// Package base provides common functionality for observers: statistics,
// health tracking, OTEL instrumentation, lifecycle and event channels.
package base

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yairfalse/capable/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// BaseObserver provides statistics and health tracking for observers.
// Embed it to get Statistics() and Health() for free.
type BaseObserver struct {
	name      string
	startTime time.Time

	eventsProcessed atomic.Int64
	eventsDropped   atomic.Int64
	eventsLost      atomic.Int64
	errorCount      atomic.Int64

	lastEventTime atomic.Value // time.Time
	lastError     atomic.Value // error

	isHealthy          atomic.Bool
	healthCheckTimeout time.Duration

	tracer trace.Tracer
	meter  metric.Meter

	eventsProcessedCounter metric.Int64Counter
	eventsDroppedCounter   metric.Int64Counter
	eventsLostCounter      metric.Int64Counter
	errorCounter           metric.Int64Counter
	processingDuration     metric.Float64Histogram
	eventSizeHistogram     metric.Int64Histogram
}

// NewBaseObserver creates a new base observer with the given name.
// healthCheckTimeout determines how long without events before marking degraded.
func NewBaseObserver(name string, healthCheckTimeout time.Duration) *BaseObserver {
	bo := &BaseObserver{
		name:               name,
		startTime:          time.Now(),
		healthCheckTimeout: healthCheckTimeout,
		tracer:             otel.Tracer(name),
		meter:              otel.Meter(name),
	}
	bo.isHealthy.Store(true)
	bo.lastEventTime.Store(time.Now())
	bo.initializeMetrics()
	return bo
}

// initializeMetrics registers standard OTEL metrics. Metric creation
// failures leave the instrument nil; recording paths tolerate that.
func (bo *BaseObserver) initializeMetrics() {
	bo.eventsProcessedCounter, _ = bo.meter.Int64Counter(
		fmt.Sprintf("%s_events_processed_total", bo.name),
		metric.WithDescription("Total events processed"),
		metric.WithUnit("1"),
	)
	bo.eventsDroppedCounter, _ = bo.meter.Int64Counter(
		fmt.Sprintf("%s_events_dropped_total", bo.name),
		metric.WithDescription("Total events dropped"),
		metric.WithUnit("1"),
	)
	bo.eventsLostCounter, _ = bo.meter.Int64Counter(
		fmt.Sprintf("%s_ring_lost_total", bo.name),
		metric.WithDescription("Samples lost by the kernel ring before user space read them"),
		metric.WithUnit("1"),
	)
	bo.errorCounter, _ = bo.meter.Int64Counter(
		fmt.Sprintf("%s_errors_total", bo.name),
		metric.WithDescription("Total errors encountered"),
		metric.WithUnit("1"),
	)
	bo.processingDuration, _ = bo.meter.Float64Histogram(
		fmt.Sprintf("%s_processing_duration_seconds", bo.name),
		metric.WithDescription("Event processing duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05),
	)
	bo.eventSizeHistogram, _ = bo.meter.Int64Histogram(
		fmt.Sprintf("%s_event_size_bytes", bo.name),
		metric.WithDescription("Event size distribution"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(16, 32, 64, 128, 256),
	)
}

// RecordEvent should be called when an event is successfully processed.
func (bo *BaseObserver) RecordEvent() {
	bo.eventsProcessed.Add(1)
	bo.lastEventTime.Store(time.Now())
	if bo.eventsProcessedCounter != nil {
		bo.eventsProcessedCounter.Add(context.Background(), 1)
	}
}

// RecordError should be called when an error occurs.
func (bo *BaseObserver) RecordError(err error) {
	bo.errorCount.Add(1)
	if err != nil {
		bo.lastError.Store(err)
	}
	if bo.errorCounter != nil {
		attrs := []attribute.KeyValue{}
		if err != nil {
			attrs = append(attrs, attribute.String("error_type", fmt.Sprintf("%T", err)))
		}
		bo.errorCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	}
}

// RecordDrop should be called when an event is dropped in user space.
func (bo *BaseObserver) RecordDrop() {
	bo.eventsDropped.Add(1)
	if bo.eventsDroppedCounter != nil {
		bo.eventsDroppedCounter.Add(context.Background(), 1)
	}
}

// RecordLost accounts samples the kernel ring discarded before the reader
// caught up. These never reached user space; only the count survives.
func (bo *BaseObserver) RecordLost(ctx context.Context, count uint64) {
	bo.eventsLost.Add(int64(count))
	if bo.eventsLostCounter != nil {
		bo.eventsLostCounter.Add(ctx, int64(count))
	}
}

// RecordProcessingDuration records the time taken to process an event.
func (bo *BaseObserver) RecordProcessingDuration(ctx context.Context, d time.Duration) {
	if bo.processingDuration != nil {
		bo.processingDuration.Record(ctx, d.Seconds())
	}
}

// RecordEventSize records the size of a raw event in bytes.
func (bo *BaseObserver) RecordEventSize(ctx context.Context, sizeBytes int64) {
	if bo.eventSizeHistogram != nil {
		bo.eventSizeHistogram.Record(ctx, sizeBytes)
	}
}

// StartSpan starts a new span for event processing.
func (bo *BaseObserver) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return bo.tracer.Start(ctx, name, opts...)
}

// SetHealthy sets the observer health status.
func (bo *BaseObserver) SetHealthy(healthy bool) {
	bo.isHealthy.Store(healthy)
}

// IsHealthy returns true if the observer is healthy.
func (bo *BaseObserver) IsHealthy() bool {
	return bo.isHealthy.Load()
}

// GetName returns the observer name.
func (bo *BaseObserver) GetName() string {
	return bo.name
}

// GetEventCount returns the total number of events processed.
func (bo *BaseObserver) GetEventCount() int64 {
	return bo.eventsProcessed.Load()
}

// GetDroppedCount returns the total number of dropped events.
func (bo *BaseObserver) GetDroppedCount() int64 {
	return bo.eventsDropped.Load()
}

// GetLostCount returns the total number of kernel-side lost samples.
func (bo *BaseObserver) GetLostCount() int64 {
	return bo.eventsLost.Load()
}

// GetErrorCount returns the total number of errors.
func (bo *BaseObserver) GetErrorCount() int64 {
	return bo.errorCount.Load()
}

// Statistics returns a snapshot of the observer counters.
func (bo *BaseObserver) Statistics() *domain.CollectorStats {
	lastEventTime := time.Time{}
	if t, ok := bo.lastEventTime.Load().(time.Time); ok {
		lastEventTime = t
	}

	return &domain.CollectorStats{
		EventsProcessed: bo.eventsProcessed.Load(),
		EventsDropped:   bo.eventsDropped.Load(),
		ErrorCount:      bo.errorCount.Load(),
		LastEventTime:   lastEventTime,
		Uptime:          time.Since(bo.startTime),
		CustomMetrics: map[string]string{
			"ring_lost": fmt.Sprintf("%d", bo.eventsLost.Load()),
		},
	}
}

// Health returns the observer health status.
func (bo *BaseObserver) Health() *domain.HealthStatus {
	if !bo.isHealthy.Load() {
		var lastErr error
		if e := bo.lastError.Load(); e != nil {
			lastErr = e.(error)
		}
		return domain.NewUnhealthyStatus(
			fmt.Sprintf("%s observer is unhealthy", bo.name),
			lastErr,
		)
	}

	// Only flag staleness once at least one event has been seen; a target
	// that never runs legitimately produces nothing.
	if bo.eventsProcessed.Load() > 0 && bo.healthCheckTimeout > 0 {
		lastEventTime := time.Time{}
		if t, ok := bo.lastEventTime.Load().(time.Time); ok {
			lastEventTime = t
		}
		if since := time.Since(lastEventTime); since > bo.healthCheckTimeout {
			return domain.NewHealthStatus(
				domain.HealthDegraded,
				fmt.Sprintf("no events received for %v", since),
			)
		}
	}

	return domain.NewHealthyStatus(fmt.Sprintf("%s observer operating normally", bo.name))
}
