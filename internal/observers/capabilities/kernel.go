package capabilities

import (
	"fmt"
	"strconv"
	"strings"
)

// KernelVersion is a parsed kernel release number.
type KernelVersion struct {
	Major int
	Minor int
	Patch int
}

// capOptBitsSince is the first kernel where cap_capable's fourth argument
// carries option bits instead of a bare audit flag.
var capOptBitsSince = KernelVersion{Major: 5, Minor: 1}

// String returns the dotted form.
func (v KernelVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether v is the same as or newer than other.
func (v KernelVersion) AtLeast(other KernelVersion) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch >= other.Patch
}

// HasCapOptBits reports whether this kernel encodes audit and insetid as
// bits in cap_opt.
func (v KernelVersion) HasCapOptBits() bool {
	return v.AtLeast(capOptBitsSince)
}

// parseKernelRelease parses a uname release string such as
// "5.15.0-105-generic" or "6.8.0-rc2". Suffixes after the patch number
// are ignored.
func parseKernelRelease(release string) (KernelVersion, error) {
	var v KernelVersion

	parts := strings.SplitN(release, ".", 3)
	if len(parts) < 2 {
		return v, fmt.Errorf("malformed kernel release %q", release)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return v, fmt.Errorf("malformed kernel release %q: %w", release, err)
	}
	minor, err := strconv.Atoi(leadingDigits(parts[1]))
	if err != nil {
		return v, fmt.Errorf("malformed kernel release %q: %w", release, err)
	}

	patch := 0
	if len(parts) == 3 {
		// Best effort: "0-105-generic" -> 0; a missing patch is not an error
		if p, err := strconv.Atoi(leadingDigits(parts[2])); err == nil {
			patch = p
		}
	}

	return KernelVersion{Major: major, Minor: minor, Patch: patch}, nil
}

func leadingDigits(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s[:i]
		}
	}
	return s
}
