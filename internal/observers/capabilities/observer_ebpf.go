//go:build linux
// +build linux

package capabilities

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/perf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/yairfalse/capable/internal/observers/capabilities/bpf"
	"go.uber.org/zap"
)

// ebpfComponents holds Linux-specific eBPF state.
type ebpfComponents struct {
	mu     sync.Mutex
	objs   *bpf.CapableObjects
	link   link.Link
	reader *perf.Reader
}

// startEBPF loads the probe, rewrites its configuration constants, attaches
// the cap_capable kprobe and starts the perf reader.
func (o *Observer) startEBPF() error {
	o.logger.Debug("Starting eBPF capability tracing")

	if err := rlimit.RemoveMemlock(); err != nil {
		o.logger.Warn("Failed to remove memlock limit", zap.Error(err))
	}

	if kv, err := currentKernelVersion(); err != nil {
		o.logger.Warn("Could not determine kernel version", zap.Error(err))
	} else if !kv.HasCapOptBits() {
		// The probe itself branches on LINUX_KERNEL_VERSION at load
		// time; this only affects what consumers should expect.
		o.logger.Info("Kernel predates cap_opt bits, insetid will be unknown",
			zap.String("kernel", kv.String()))
	}

	spec, err := bpf.LoadCapable()
	if err != nil {
		return fmt.Errorf("failed to load eBPF spec: %w", err)
	}

	cfg := bpf.ToolConfig{
		Tgid:       o.config.TargetPID,
		Verbose:    o.config.Verbose,
		UniqueType: uint32(o.config.Unique),
	}
	if err := spec.RewriteConstants(map[string]interface{}{"tool_config": cfg}); err != nil {
		return fmt.Errorf("failed to rewrite probe configuration: %w", err)
	}

	objs := &bpf.CapableObjects{}
	if err := spec.LoadAndAssign(objs, nil); err != nil {
		var ve *ebpf.VerifierError
		if errors.As(err, &ve) {
			o.logger.Error("eBPF verifier error", zap.String("details", ve.Error()))
		}
		return fmt.Errorf("failed to load eBPF objects: %w", err)
	}

	// Pre-bind the scope when a cgroup path is given, so tracing does not
	// wait for the target's first capability check. BPF_NOEXIST keeps the
	// binding write-once, same as the probe's own discovery path.
	if o.config.CgroupPath != "" {
		cgid, err := cgroupIDForPath(o.config.CgroupPath)
		if err != nil {
			objs.Close()
			return fmt.Errorf("failed to resolve cgroup path: %w", err)
		}
		err = objs.TargetCgroup.Update(o.config.TargetPID, cgid, ebpf.UpdateNoExist)
		if err != nil {
			objs.Close()
			return fmt.Errorf("failed to seed target cgroup: %w", err)
		}
		o.logger.Info("Pre-bound trace scope to cgroup",
			zap.String("path", o.config.CgroupPath),
			zap.Uint64("cgroup_id", cgid))
	}

	reader, err := perf.NewReader(objs.Events, o.config.PerfPagesPerCPU*os.Getpagesize())
	if err != nil {
		objs.Close()
		return fmt.Errorf("failed to create perf reader: %w", err)
	}

	kp, err := link.Kprobe("cap_capable", objs.KprobeCapCapable, nil)
	if err != nil {
		reader.Close()
		objs.Close()
		return fmt.Errorf("failed to attach cap_capable kprobe: %w", err)
	}

	state := &ebpfComponents{
		objs:   objs,
		link:   kp,
		reader: reader,
	}
	o.ebpfState = state

	o.LifecycleManager.Start("perf-reader", func() {
		o.processEvents(state)
	})

	o.logger.Info("eBPF capability tracing started")
	return nil
}

// stopEBPF detaches and releases eBPF resources.
func (o *Observer) stopEBPF() {
	state, ok := o.ebpfState.(*ebpfComponents)
	if !ok || state == nil {
		return
	}

	o.logger.Debug("Stopping eBPF capability tracing")

	// Detach first so no new events are produced, then unblock the reader
	if state.link != nil {
		if err := state.link.Close(); err != nil {
			o.logger.Warn("Failed to close kprobe link", zap.Error(err))
		}
	}
	if state.reader != nil {
		if err := state.reader.Close(); err != nil {
			o.logger.Warn("Failed to close perf reader", zap.Error(err))
		}
	}
	if state.objs != nil {
		if err := state.objs.Close(); err != nil {
			o.logger.Warn("Failed to close eBPF objects", zap.Error(err))
		}
	}

	o.ebpfState = nil
	o.logger.Info("eBPF capability tracing stopped")
}

// processEvents drains the per-CPU perf ring until shutdown.
func (o *Observer) processEvents(state *ebpfComponents) {
	ctx := o.LifecycleManager.Context()
	o.logger.Debug("Starting perf event loop")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, err := state.reader.Read()
		if err != nil {
			if errors.Is(err, perf.ErrClosed) {
				o.logger.Debug("Perf reader closed, exiting event loop")
				return
			}
			o.logger.Warn("Perf read error", zap.Error(err))
			o.BaseObserver.RecordError(err)
			continue
		}

		// The kernel ring reports samples it had to discard; only the
		// count survives, surfaced to consumers via stats and metrics.
		if record.LostSamples > 0 {
			o.BaseObserver.RecordLost(ctx, record.LostSamples)
			o.logger.Warn("Lost events on perf ring",
				zap.Uint64("count", record.LostSamples),
				zap.Int("cpu", record.CPU))
			continue
		}

		start := time.Now()
		o.BaseObserver.RecordEventSize(ctx, int64(len(record.RawSample)))

		event, err := decodeEvent(record.RawSample, o.name)
		if err != nil {
			o.logger.Warn("Failed to decode event", zap.Error(err))
			o.BaseObserver.RecordError(err)
			continue
		}

		o.emit(event)
		o.BaseObserver.RecordProcessingDuration(ctx, time.Since(start))
	}
}

// resetSeenMap deletes every entry in the kernel dedup map.
func (o *Observer) resetSeenMap() error {
	state, ok := o.ebpfState.(*ebpfComponents)
	if !ok || state == nil {
		return fmt.Errorf("observer is not running")
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	var (
		key  [16]byte // sizeof(struct unique_key)
		val  uint64
		keys [][16]byte
	)
	iter := state.objs.Seen.Iterate()
	for iter.Next(&key, &val) {
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate seen map: %w", err)
	}
	for i := range keys {
		if err := state.objs.Seen.Delete(keys[i]); err != nil {
			return fmt.Errorf("failed to clear seen map: %w", err)
		}
	}

	o.logger.Info("Cleared dedup table", zap.Int("entries", len(keys)))
	return nil
}
