// Code generated by bpf2go; DO NOT EDIT.
//go:build arm64

package bpf

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"github.com/cilium/ebpf"
)

type capableUniqueKey struct {
	Cap      int32
	Tgid     uint32
	Cgroupid uint64
}

// loadCapable returns the embedded CollectionSpec for capable.
func loadCapable() (*ebpf.CollectionSpec, error) {
	reader := bytes.NewReader(_CapableBytes)
	spec, err := ebpf.LoadCollectionSpecFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("can't load capable: %w", err)
	}

	return spec, err
}

// loadCapableObjects loads capable and converts it into a struct.
//
// The following types are suitable as obj argument:
//
//	*capableObjects
//	*capablePrograms
//	*capableMaps
//
// See ebpf.CollectionSpec.LoadAndAssign documentation for details.
func loadCapableObjects(obj interface{}, opts *ebpf.CollectionOptions) error {
	spec, err := loadCapable()
	if err != nil {
		return err
	}

	return spec.LoadAndAssign(obj, opts)
}

// capableSpecs contains maps and programs before they are loaded into the kernel.
//
// It can be passed ebpf.CollectionSpec.Assign.
type capableSpecs struct {
	capableProgramSpecs
	capableMapSpecs
}

// capableSpecs contains programs before they are loaded into the kernel.
//
// It can be passed ebpf.CollectionSpec.Assign.
type capableProgramSpecs struct {
	KprobeCapCapable *ebpf.ProgramSpec `ebpf:"kprobe__cap_capable"`
}

// capableMapSpecs contains maps before they are loaded into the kernel.
//
// It can be passed ebpf.CollectionSpec.Assign.
type capableMapSpecs struct {
	Events       *ebpf.MapSpec `ebpf:"events"`
	Seen         *ebpf.MapSpec `ebpf:"seen"`
	TargetCgroup *ebpf.MapSpec `ebpf:"target_cgroup"`
}

// capableObjects contains all objects after they have been loaded into the kernel.
//
// It can be passed to loadCapableObjects or ebpf.CollectionSpec.LoadAndAssign.
type capableObjects struct {
	capablePrograms
	capableMaps
}

func (o *capableObjects) Close() error {
	return _CapableClose(
		&o.capablePrograms,
		&o.capableMaps,
	)
}

// capableMaps contains all maps after they have been loaded into the kernel.
//
// It can be passed to loadCapableObjects or ebpf.CollectionSpec.LoadAndAssign.
type capableMaps struct {
	Events       *ebpf.Map `ebpf:"events"`
	Seen         *ebpf.Map `ebpf:"seen"`
	TargetCgroup *ebpf.Map `ebpf:"target_cgroup"`
}

func (m *capableMaps) Close() error {
	return _CapableClose(
		m.Events,
		m.Seen,
		m.TargetCgroup,
	)
}

// capablePrograms contains all programs after they have been loaded into the kernel.
//
// It can be passed to loadCapableObjects or ebpf.CollectionSpec.LoadAndAssign.
type capablePrograms struct {
	KprobeCapCapable *ebpf.Program `ebpf:"kprobe__cap_capable"`
}

func (p *capablePrograms) Close() error {
	return _CapableClose(
		p.KprobeCapCapable,
	)
}

func _CapableClose(closers ...io.Closer) error {
	for _, closer := range closers {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Do not access this directly.
//
//go:embed capable_arm64_bpfel.o
var _CapableBytes []byte
