package capabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "capabilities", cfg.Name)
	assert.Equal(t, UniqueOff, cfg.Unique)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, uint32(0), cfg.TargetPID)
	assert.Positive(t, cfg.BufferSize)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid with target pid",
			mutate: func(c *Config) { c.TargetPID = 1234 },
		},
		{
			name:   "valid with cgroup path only",
			mutate: func(c *Config) { c.CgroupPath = "/sys/fs/cgroup/test" },
		},
		{
			name:   "valid in mock mode without target",
			mutate: func(c *Config) { c.MockMode = true },
		},
		{
			name:    "no target at all",
			mutate:  func(c *Config) {},
			wantErr: "target_pid or cgroup_path",
		},
		{
			name:    "empty name",
			mutate:  func(c *Config) { c.TargetPID = 1; c.Name = "" },
			wantErr: "name",
		},
		{
			name:    "zero buffer",
			mutate:  func(c *Config) { c.TargetPID = 1; c.BufferSize = 0 },
			wantErr: "buffer_size",
		},
		{
			name:    "bad unique mode",
			mutate:  func(c *Config) { c.TargetPID = 1; c.Unique = UniqueMode(9) },
			wantErr: "unique",
		},
		{
			name:    "perf pages not power of two",
			mutate:  func(c *Config) { c.TargetPID = 1; c.PerfPagesPerCPU = 3 },
			wantErr: "perf_pages_per_cpu",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseUniqueMode(t *testing.T) {
	tests := []struct {
		in      string
		want    UniqueMode
		wantErr bool
	}{
		{"off", UniqueOff, false},
		{"none", UniqueOff, false},
		{"", UniqueOff, false},
		{"pid", UniqueTGID, false},
		{"tgid", UniqueTGID, false},
		{"CGROUP", UniqueCgroup, false},
		{"bogus", UniqueOff, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUniqueMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniqueModeString(t *testing.T) {
	assert.Equal(t, "off", UniqueOff.String())
	assert.Equal(t, "pid", UniqueTGID.String())
	assert.Equal(t, "cgroup", UniqueCgroup.String())
}
