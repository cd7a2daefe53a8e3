package capabilities

import (
	"sync"
	"time"

	"github.com/yairfalse/capable/internal/observers/capabilities/bpf"
	"github.com/yairfalse/capable/pkg/caps"
	"github.com/yairfalse/capable/pkg/domain"
)

// capCheck is one cap_capable invocation as the hook adapter sees it.
type capCheck struct {
	TGID     uint32
	PID      uint32
	UID      uint32
	CgroupID uint64
	Cap      int32
	OptBits  int32
	Comm     string
}

// uniqueKey mirrors struct unique_key in capable.bpf.c: unused fields stay
// zero so the composite key is stable across modes.
type uniqueKey struct {
	Cap      int32
	TGID     uint32
	CgroupID uint64
}

// checkFilter is the user-space mirror of the kernel decision pipeline:
// target discovery, cgroup admission, audit gating and bounded dedup. It
// drives mock mode and gives the kernel semantics a testable form. The
// kernel program is the authority; this must follow it, not the reverse.
type checkFilter struct {
	mu sync.Mutex

	targetTGID uint32
	verbose    bool
	unique     UniqueMode
	hasOptBits bool

	// Single-slot target binding, write-once like the kernel map.
	bound      bool
	boundCgrp  uint64
	seen       map[uniqueKey]struct{}
	maxEntries int
}

func newCheckFilter(cfg *Config, hasOptBits bool) *checkFilter {
	return &checkFilter{
		targetTGID: cfg.TargetPID,
		verbose:    cfg.Verbose,
		unique:     cfg.Unique,
		hasOptBits: hasOptBits,
		seen:       make(map[uniqueKey]struct{}),
		maxEntries: bpf.SeenMaxEntries,
	}
}

// bindCgroup pre-seeds the scope, the user-space analogue of the loader
// writing target_cgroup before attach. Fails silently if already bound.
func (f *checkFilter) bindCgroup(cgroupID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.bound {
		f.bound = true
		f.boundCgrp = cgroupID
	}
}

// evaluate runs one check through the pipeline and returns the event to
// emit, or nil when the check is filtered. Mirrors kprobe__cap_capable
// followed by record_cap.
func (f *checkFilter) evaluate(c capCheck) *domain.CapabilityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Phase A: target discovery, write-once
	if f.targetTGID != 0 && c.TGID == f.targetTGID && !f.bound {
		f.bound = true
		f.boundCgrp = c.CgroupID
	}

	// Phase B: scope admission by cgroup
	if !f.bound || c.CgroupID != f.boundCgrp {
		return nil
	}

	audit, insetid := decodeCapOpt(c.OptBits, f.hasOptBits)
	if !f.verbose && !audit {
		return nil
	}

	if f.unique != UniqueOff {
		key := uniqueKey{Cap: c.Cap}
		if f.unique == UniqueCgroup {
			key.CgroupID = c.CgroupID
		} else {
			key.TGID = c.TGID
		}

		if _, ok := f.seen[key]; ok {
			return nil
		}
		// A full table behaves like the kernel map: the insert fails
		// and the key counts as already seen.
		if len(f.seen) >= f.maxEntries {
			return nil
		}
		f.seen[key] = struct{}{}
	}

	return &domain.CapabilityEvent{
		Timestamp: time.Now(),
		TGID:      c.TGID,
		PID:       c.PID,
		UID:       c.UID,
		Cap:       c.Cap,
		CapName:   caps.Name(c.Cap),
		Audit:     audit,
		InSetID:   insetid,
		Comm:      c.Comm,
	}
}

// reset clears the dedup table, the user-space analogue of the consumer
// clearing the seen map between runs. The target binding survives.
func (f *checkFilter) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = make(map[uniqueKey]struct{})
}

// seenCount reports the dedup table size, for stats.
func (f *checkFilter) seenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
