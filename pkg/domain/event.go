// Package domain defines the event model shared by the capability observer
// and its consumers (CLI rendering, downstream pipelines).
package domain

import (
	"fmt"
	"time"
)

// TriState represents a boolean that may be unknown on older kernels.
// The wire encoding is 0/1/-1 where -1 means the kernel predates the field.
type TriState int32

const (
	TriStateNo      TriState = 0
	TriStateYes     TriState = 1
	TriStateUnknown TriState = -1
)

// String returns the human-readable form used in column output.
func (t TriState) String() string {
	switch t {
	case TriStateYes:
		return "1"
	case TriStateNo:
		return "0"
	default:
		return "N/A"
	}
}

// Known reports whether the value carries real information.
func (t TriState) Known() bool {
	return t == TriStateYes || t == TriStateNo
}

// CapabilityEvent is one observed capability check, fully decoded.
// Every event originates from a single cap_capable() invocation in the
// kernel; fields mirror the fixed-layout wire record plus decoded extras.
type CapabilityEvent struct {
	// Timestamp is assigned at decode time in user space. The kernel side
	// does not carry a clock; per-CPU ordering is preserved by the ring.
	Timestamp time.Time `json:"timestamp"`

	// TGID is the task-group id (the pid as user space knows it).
	TGID uint32 `json:"tgid"`
	// PID is the thread id of the task that performed the check.
	PID uint32 `json:"pid"`
	// UID is the real user id of the caller.
	UID uint32 `json:"uid"`

	// Cap is the Linux capability number that was checked.
	Cap int32 `json:"cap"`
	// CapName is the symbolic name for Cap, "?" if unknown.
	CapName string `json:"cap_name"`

	// Audit is true when the kernel considered this check auditable.
	// With verbose tracing disabled, every emitted event has Audit=true.
	Audit bool `json:"audit"`

	// InSetID reports whether the check happened inside a set*id call.
	// Unknown on kernels older than 5.1.
	InSetID TriState `json:"insetid"`

	// Comm is the short task name, NUL-truncated.
	Comm string `json:"comm"`

	// Source is the observer instance that produced the event.
	Source string `json:"source"`
}

// Key returns a stable identity for deduplication in consumers that
// aggregate across runs: capability plus task group.
func (e *CapabilityEvent) Key() string {
	return fmt.Sprintf("%d/%d", e.Cap, e.TGID)
}

// String renders a compact single-line summary for logs.
func (e *CapabilityEvent) String() string {
	return fmt.Sprintf("cap=%s tgid=%d pid=%d uid=%d comm=%s audit=%t insetid=%s",
		e.CapName, e.TGID, e.PID, e.UID, e.Comm, e.Audit, e.InSetID)
}
