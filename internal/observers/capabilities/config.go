package capabilities

import (
	"fmt"
	"strings"
	"time"
)

// UniqueMode controls the scope key of kernel-side deduplication.
type UniqueMode uint32

const (
	// UniqueOff emits every admitted check.
	UniqueOff UniqueMode = 0
	// UniqueTGID emits each (capability, tgid) pair once.
	UniqueTGID UniqueMode = 1
	// UniqueCgroup emits each (capability, cgroup) pair once.
	UniqueCgroup UniqueMode = 2
)

// String returns the flag spelling of the mode.
func (u UniqueMode) String() string {
	switch u {
	case UniqueTGID:
		return "pid"
	case UniqueCgroup:
		return "cgroup"
	default:
		return "off"
	}
}

// ParseUniqueMode resolves a flag value to a UniqueMode.
func ParseUniqueMode(s string) (UniqueMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return UniqueOff, nil
	case "pid", "tgid":
		return UniqueTGID, nil
	case "cgroup":
		return UniqueCgroup, nil
	default:
		return UniqueOff, fmt.Errorf("invalid unique mode %q (want off, pid or cgroup)", s)
	}
}

// Config holds capability observer configuration. It is read-only once the
// observer has started; the kernel side receives it as rodata constants.
type Config struct {
	// Name identifies the observer instance in logs and metrics.
	Name string `json:"name" yaml:"name"`

	// BufferSize is the capacity of the user-space event channel.
	BufferSize int `json:"buffer_size" yaml:"buffer_size"`

	// TargetPID is the task group to discover the trace scope from.
	// 0 leaves the probe effectively disabled unless CgroupPath is set.
	TargetPID uint32 `json:"target_pid" yaml:"target_pid"`

	// Verbose includes checks the kernel would not audit.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Unique suppresses repeats of the same capability per scope key.
	Unique UniqueMode `json:"unique" yaml:"unique"`

	// CgroupPath optionally pre-binds the trace scope to a cgroup v2
	// directory instead of waiting for the target's first check.
	CgroupPath string `json:"cgroup_path" yaml:"cgroup_path"`

	// PerfPagesPerCPU sizes the per-CPU ring in pages (power of two).
	PerfPagesPerCPU int `json:"perf_pages_per_cpu" yaml:"perf_pages_per_cpu"`

	// HealthCheckTimeout marks the observer degraded after this long
	// without events, once at least one event has been seen.
	HealthCheckTimeout time.Duration `json:"health_check_timeout" yaml:"health_check_timeout"`

	// MockMode runs the decision pipeline in user space without loading
	// eBPF. Development and testing only.
	MockMode bool `json:"mock_mode" yaml:"mock_mode"`
}

// DefaultConfig returns the default capability observer configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:               "capabilities",
		BufferSize:         8192,
		TargetPID:          0,
		Verbose:            false,
		Unique:             UniqueOff,
		PerfPagesPerCPU:    8,
		HealthCheckTimeout: 5 * time.Minute,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive")
	}
	if c.Unique > UniqueCgroup {
		return fmt.Errorf("unique must be one of off, pid, cgroup")
	}
	if c.PerfPagesPerCPU <= 0 || c.PerfPagesPerCPU&(c.PerfPagesPerCPU-1) != 0 {
		return fmt.Errorf("perf_pages_per_cpu must be a positive power of two")
	}
	if c.TargetPID == 0 && c.CgroupPath == "" && !c.MockMode {
		return fmt.Errorf("either target_pid or cgroup_path must be set")
	}
	return nil
}
