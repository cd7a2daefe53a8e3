//go:build linux
// +build linux

package bpf

import "runtime"

// IsSupported checks if eBPF is supported on this platform
func IsSupported() bool {
	return runtime.GOOS == "linux"
}

// Export generated types for the capability probe
type CapableObjects = capableObjects
type CapableMaps = capableMaps
type CapablePrograms = capablePrograms

// Export the generated loader functions
var LoadCapable = loadCapable
var LoadCapableObjects = loadCapableObjects
