package bpf

// Uniqueness values mirror enum uniqueness in capable.h.
const (
	UniqueOff    uint32 = 0
	UniqueTGID   uint32 = 1
	UniqueCgroup uint32 = 2
)

// ToolConfig mirrors the const volatile tool_config rodata struct in
// capable.bpf.c. The layout must match the C struct byte for byte; the
// loader rewrites the constant before the program is loaded.
type ToolConfig struct {
	Tgid       uint32
	Verbose    bool
	_          [3]byte
	UniqueType uint32
}

// EventSize is the wire size of struct event in capable.h.
const EventSize = 40

// SeenMaxEntries is the dedup map capacity. Fixed at load time; once full,
// new distinct keys fail to insert and are treated as already seen.
const SeenMaxEntries = 10240
