//go:build !linux
// +build !linux

package capabilities

import "fmt"

// Platform fallback for non-Linux systems (development only).

// startEBPF - eBPF is Linux-only, logs a warning on other platforms.
func (o *Observer) startEBPF() error {
	o.logger.Warn("eBPF capability tracing not available on this platform (Linux-only)")
	o.logger.Info("Use mock mode for development on non-Linux systems")
	return nil
}

// stopEBPF - no-op on non-Linux platforms.
func (o *Observer) stopEBPF() {
	o.logger.Debug("No eBPF resources to clean up (non-Linux platform)")
}

// resetSeenMap - there is no kernel map to clear off-Linux.
func (o *Observer) resetSeenMap() error {
	return fmt.Errorf("eBPF not supported on this platform")
}
