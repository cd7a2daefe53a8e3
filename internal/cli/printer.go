package cli

import (
	"fmt"
	"io"

	"github.com/yairfalse/capable/pkg/domain"
)

// Printer renders capability events as fixed-width columns, optionally
// teeing every line to a secondary writer (the output file).
type Printer struct {
	out   io.Writer
	tee   io.Writer
	extra bool
}

// NewPrinter creates a printer writing to out. tee may be nil.
func NewPrinter(out, tee io.Writer, extra bool) *Printer {
	return &Printer{out: out, tee: tee, extra: extra}
}

// Banner writes the column header.
func (p *Printer) Banner() error {
	var line string
	if p.extra {
		line = fmt.Sprintf("%-9s %-6s %-6s %-6s %-16s %-4s %-20s %-6s %s",
			"TIME", "UID", "PID", "TID", "COMM", "CAP", "NAME", "AUDIT", "INSETID")
	} else {
		line = fmt.Sprintf("%-9s %-6s %-6s %-16s %-4s %-20s %s",
			"TIME", "UID", "PID", "COMM", "CAP", "NAME", "AUDIT")
	}
	return p.writeLine(line)
}

// Event writes one event row.
func (p *Printer) Event(ev *domain.CapabilityEvent) error {
	audit := 0
	if ev.Audit {
		audit = 1
	}

	ts := ev.Timestamp.Format("15:04:05")

	var line string
	if p.extra {
		line = fmt.Sprintf("%-9s %-6d %-6d %-6d %-16s %-4d %-20s %-6d %s",
			ts, ev.UID, ev.TGID, ev.PID, ev.Comm, ev.Cap, ev.CapName, audit, ev.InSetID)
	} else {
		line = fmt.Sprintf("%-9s %-6d %-6d %-16s %-4d %-20s %d",
			ts, ev.UID, ev.TGID, ev.Comm, ev.Cap, ev.CapName, audit)
	}
	return p.writeLine(line)
}

func (p *Printer) writeLine(line string) error {
	if _, err := fmt.Fprintln(p.out, line); err != nil {
		return err
	}
	if p.tee != nil {
		if _, err := fmt.Fprintln(p.tee, line); err != nil {
			return fmt.Errorf("failed to write to output file: %w", err)
		}
	}
	return nil
}
