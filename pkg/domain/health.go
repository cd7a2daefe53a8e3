package domain

import "time"

// HealthStatusValue represents the health state of a component.
type HealthStatusValue string

const (
	HealthHealthy   HealthStatusValue = "healthy"
	HealthDegraded  HealthStatusValue = "degraded"
	HealthUnhealthy HealthStatusValue = "unhealthy"
)

// String returns the string representation of the health status.
func (h HealthStatusValue) String() string {
	return string(h)
}

// IsHealthy returns true if the status represents a healthy state.
func (h HealthStatusValue) IsHealthy() bool {
	return h == HealthHealthy
}

// HealthStatus reports the health of a component with context.
type HealthStatus struct {
	Status        HealthStatusValue `json:"status"`
	Message       string            `json:"message"`
	Timestamp     time.Time         `json:"timestamp"`
	LastError     error             `json:"-"`
	LastErrorText string            `json:"last_error,omitempty"`
}

// NewHealthStatus creates a new health status with the given values.
func NewHealthStatus(status HealthStatusValue, message string) *HealthStatus {
	return &HealthStatus{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthyStatus creates a healthy status.
func NewHealthyStatus(message string) *HealthStatus {
	return NewHealthStatus(HealthHealthy, message)
}

// NewUnhealthyStatus creates an unhealthy status carrying the last error.
func NewUnhealthyStatus(message string, err error) *HealthStatus {
	hs := NewHealthStatus(HealthUnhealthy, message)
	if err != nil {
		hs.LastError = err
		hs.LastErrorText = err.Error()
	}
	return hs
}

// IsHealthy returns true if the status is healthy.
func (h *HealthStatus) IsHealthy() bool {
	return h.Status.IsHealthy()
}
