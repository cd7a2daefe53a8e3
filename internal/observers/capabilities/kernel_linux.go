//go:build linux
// +build linux

package capabilities

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// currentKernelVersion reads the running kernel's release via uname.
func currentKernelVersion() (KernelVersion, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return KernelVersion{}, fmt.Errorf("uname failed: %w", err)
	}
	return parseKernelRelease(unix.ByteSliceToString(uts.Release[:]))
}

// cgroupIDForPath resolves a cgroup v2 directory to its kernel cgroup id.
// On cgroup2 the id is the inode number of the cgroup directory, the same
// value bpf_get_current_cgroup_id() reports for member tasks.
func cgroupIDForPath(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, fmt.Errorf("failed to stat cgroup path %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return 0, fmt.Errorf("cgroup path %s is not a directory", path)
	}
	return st.Ino, nil
}
