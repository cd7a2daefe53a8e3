//go:build !linux
// +build !linux

package bpf

import (
	"fmt"

	"github.com/cilium/ebpf"
)

// Stub types and functions for non-Linux platforms. The real struct types
// come from the bpf2go-generated files on Linux.

// CapableObjects contains the eBPF objects (stub for non-Linux)
type CapableObjects struct {
	CapablePrograms
	CapableMaps
}

func (o *CapableObjects) Close() error {
	return nil
}

// CapablePrograms contains the eBPF programs (stub for non-Linux)
type CapablePrograms struct {
	KprobeCapCapable *ebpf.Program
}

func (p *CapablePrograms) Close() error {
	return nil
}

// CapableMaps contains the eBPF maps (stub for non-Linux)
type CapableMaps struct {
	Events       *ebpf.Map
	Seen         *ebpf.Map
	TargetCgroup *ebpf.Map
}

func (m *CapableMaps) Close() error {
	return nil
}

func LoadCapable() (*ebpf.CollectionSpec, error) {
	return nil, fmt.Errorf("eBPF not supported on this platform")
}

func LoadCapableObjects(obj interface{}, opts *ebpf.CollectionOptions) error {
	return fmt.Errorf("eBPF not supported on this platform")
}
