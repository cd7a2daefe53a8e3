package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/capable/pkg/domain"
)

func sampleEvent() *domain.CapabilityEvent {
	return &domain.CapabilityEvent{
		Timestamp: time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC),
		TGID:      1234,
		PID:       1235,
		UID:       1000,
		Cap:       21,
		CapName:   "CAP_SYS_ADMIN",
		Audit:     true,
		InSetID:   domain.TriStateNo,
		Comm:      "nginx",
	}
}

func TestPrinterBasicColumns(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, nil, false)

	require.NoError(t, p.Banner())
	require.NoError(t, p.Event(sampleEvent()))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], "TIME")
	assert.Contains(t, lines[0], "NAME")
	assert.NotContains(t, lines[0], "INSETID")

	assert.Contains(t, lines[1], "09:30:15")
	assert.Contains(t, lines[1], "1234")
	assert.Contains(t, lines[1], "CAP_SYS_ADMIN")
	assert.NotContains(t, lines[1], "1235") // TID only in extra mode
}

func TestPrinterExtraColumns(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, nil, true)

	require.NoError(t, p.Banner())
	ev := sampleEvent()
	ev.InSetID = domain.TriStateUnknown
	require.NoError(t, p.Event(ev))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], "TID")
	assert.Contains(t, lines[0], "INSETID")
	assert.Contains(t, lines[1], "1235")
	assert.Contains(t, lines[1], "N/A")
}

func TestPrinterTee(t *testing.T) {
	var out, tee bytes.Buffer
	p := NewPrinter(&out, &tee, false)

	require.NoError(t, p.Banner())
	require.NoError(t, p.Event(sampleEvent()))

	assert.Equal(t, out.String(), tee.String())
}

func TestPrinterAuditRendering(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, nil, false)

	ev := sampleEvent()
	ev.Audit = false
	require.NoError(t, p.Event(ev))

	line := strings.TrimRight(out.String(), "\n")
	assert.True(t, strings.HasSuffix(line, "0"), "audit column should render 0, got %q", line)
}
