package domain

import "time"

// CollectorStats is a point-in-time snapshot of observer counters.
type CollectorStats struct {
	EventsProcessed int64             `json:"events_processed"`
	EventsDropped   int64             `json:"events_dropped"`
	ErrorCount      int64             `json:"error_count"`
	LastEventTime   time.Time         `json:"last_event_time"`
	Uptime          time.Duration     `json:"uptime"`
	CustomMetrics   map[string]string `json:"custom_metrics,omitempty"`
}
