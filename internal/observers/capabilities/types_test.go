package capabilities

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/capable/internal/observers/capabilities/bpf"
	"github.com/yairfalse/capable/pkg/domain"
)

// The Go mirror must match the C struct size exactly; a drift here means
// the wire ABI changed.
func TestRawEventSizeMatchesABI(t *testing.T) {
	assert.Equal(t, bpf.EventSize, int(unsafe.Sizeof(rawEvent{})))
}

func encodeRaw(t *testing.T, raw rawEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &raw))
	return buf.Bytes()
}

func TestDecodeEventRoundTrip(t *testing.T) {
	raw := rawEvent{
		TGID:    1234,
		PID:     1235,
		UID:     1000,
		Cap:     21,
		Audit:   1,
		InSetID: 0,
	}
	copy(raw.Comm[:], "nginx")

	ev, err := decodeEvent(encodeRaw(t, raw), "capabilities")
	require.NoError(t, err)

	assert.Equal(t, uint32(1234), ev.TGID)
	assert.Equal(t, uint32(1235), ev.PID)
	assert.Equal(t, uint32(1000), ev.UID)
	assert.Equal(t, int32(21), ev.Cap)
	assert.Equal(t, "CAP_SYS_ADMIN", ev.CapName)
	assert.True(t, ev.Audit)
	assert.Equal(t, domain.TriStateNo, ev.InSetID)
	assert.Equal(t, "nginx", ev.Comm)
	assert.Equal(t, "capabilities", ev.Source)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestDecodeEventUnknownInsetid(t *testing.T) {
	raw := rawEvent{Cap: 12, Audit: 1, InSetID: -1}
	copy(raw.Comm[:], "legacy")

	ev, err := decodeEvent(encodeRaw(t, raw), "capabilities")
	require.NoError(t, err)
	assert.Equal(t, domain.TriStateUnknown, ev.InSetID)
	assert.Equal(t, "CAP_NET_ADMIN", ev.CapName)
}

func TestDecodeEventTooShort(t *testing.T) {
	_, err := decodeEvent(make([]byte, bpf.EventSize-1), "capabilities")
	assert.Error(t, err)
}

func TestDecodeEventToleratesRingPadding(t *testing.T) {
	raw := rawEvent{TGID: 77, Cap: 0, Audit: 1}
	copy(raw.Comm[:], "padded")

	data := append(encodeRaw(t, raw), 0, 0, 0, 0)
	ev, err := decodeEvent(data, "capabilities")
	require.NoError(t, err)
	assert.Equal(t, uint32(77), ev.TGID)
	assert.Equal(t, "padded", ev.Comm)
}

func TestCommStringTruncation(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"nul terminated", []byte("bash\x00\x00\x00"), "bash"},
		{"full buffer no nul", []byte("0123456789abcdef"), "0123456789abcdef"},
		{"empty", []byte{0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commString(tt.in))
		})
	}
}

func TestDecodeCapOpt(t *testing.T) {
	tests := []struct {
		name        string
		opt         int32
		hasOptBits  bool
		wantAudit   bool
		wantInsetid domain.TriState
	}{
		{"modern audited", 0b000, true, true, domain.TriStateNo},
		{"modern noaudit", 0b010, true, false, domain.TriStateNo},
		{"modern insetid", 0b100, true, true, domain.TriStateYes},
		{"modern noaudit insetid", 0b110, true, false, domain.TriStateYes},
		{"legacy audit", 1, false, true, domain.TriStateUnknown},
		{"legacy no audit", 0, false, false, domain.TriStateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit, insetid := decodeCapOpt(tt.opt, tt.hasOptBits)
			assert.Equal(t, tt.wantAudit, audit)
			assert.Equal(t, tt.wantInsetid, insetid)
		})
	}
}

// The rodata mirror must match the C layout: u32 + bool + padding + u32.
func TestToolConfigLayout(t *testing.T) {
	assert.Equal(t, uintptr(12), unsafe.Sizeof(bpf.ToolConfig{}))
	assert.Equal(t, uintptr(0), unsafe.Offsetof(bpf.ToolConfig{}.Tgid))
	assert.Equal(t, uintptr(4), unsafe.Offsetof(bpf.ToolConfig{}.Verbose))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(bpf.ToolConfig{}.UniqueType))
}
