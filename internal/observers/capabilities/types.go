package capabilities

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/yairfalse/capable/internal/observers/capabilities/bpf"
	"github.com/yairfalse/capable/pkg/caps"
	"github.com/yairfalse/capable/pkg/domain"
)

// cap_opt bit layout on kernels >= 5.1. Older kernels pass the audit flag
// directly in the same argument.
const (
	capOptNoAudit int32 = 1 << 1
	capOptInSetID int32 = 1 << 2
)

// rawEvent mirrors struct event in bpf/capable.h. Field order and widths
// are ABI; binary.Read decodes the perf sample directly into it.
type rawEvent struct {
	TGID    uint32
	PID     uint32
	UID     uint32
	Cap     int32
	Audit   int32
	InSetID int32
	Comm    [16]byte
}

// decodeEvent parses one perf ring sample into a domain event. The sample
// may carry trailing padding from the ring; only the first EventSize bytes
// are significant.
func decodeEvent(data []byte, source string) (*domain.CapabilityEvent, error) {
	if len(data) < bpf.EventSize {
		return nil, fmt.Errorf("event too small: got %d bytes, need %d", len(data), bpf.EventSize)
	}

	var raw rawEvent
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}

	return raw.toDomain(source), nil
}

func (r *rawEvent) toDomain(source string) *domain.CapabilityEvent {
	return &domain.CapabilityEvent{
		Timestamp: time.Now(),
		TGID:      r.TGID,
		PID:       r.PID,
		UID:       r.UID,
		Cap:       r.Cap,
		CapName:   caps.Name(r.Cap),
		Audit:     r.Audit != 0,
		InSetID:   domain.TriState(r.InSetID),
		Comm:      commString(r.Comm[:]),
		Source:    source,
	}
}

// commString truncates a fixed-size task name at the first NUL.
func commString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// decodeCapOpt normalizes the fourth cap_capable argument. On kernels with
// option bits (>= 5.1) the argument is a bitmask; before that it is the
// audit flag itself and insetid is unknowable.
func decodeCapOpt(opt int32, hasOptBits bool) (audit bool, insetid domain.TriState) {
	if hasOptBits {
		audit = opt&capOptNoAudit == 0
		if opt&capOptInSetID != 0 {
			insetid = domain.TriStateYes
		} else {
			insetid = domain.TriStateNo
		}
		return audit, insetid
	}
	return opt != 0, domain.TriStateUnknown
}
