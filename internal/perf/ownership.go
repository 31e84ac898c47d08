package perf

import (
	"os"

	"golang.org/x/sys/unix"
)

// Identity is the caller's effective identity, threaded explicitly so
// stages stay testable with injected values.
type Identity struct {
	UID int
	GID int
}

// Root reports whether the identity is the superuser.
func (id Identity) Root() bool {
	return id.UID == 0
}

// CurrentIdentity captures the process's effective uid and gid.
func CurrentIdentity() Identity {
	return Identity{UID: os.Geteuid(), GID: os.Getegid()}
}

// statFunc stats a path; swapped in tests.
type statFunc func(path string, stat *unix.Stat_t) error

// forceFlagNeeded inspects path's owning user and group against the caller's
// effective identity and reports whether the profiler's ownership guard must
// be bypassed. Root-owned files are trusted; the group is only consulted
// when the owning user matches. A failed inspection forces the flag
// unconditionally and returns the failure for the caller to report.
func forceFlagNeeded(stat statFunc, path string, id Identity) (bool, error) {
	var st unix.Stat_t
	if err := stat(path, &st); err != nil {
		return true, err
	}

	uid, gid := uint32(id.UID), uint32(id.GID) //nolint:gosec // G115: effective ids are non-negative
	switch {
	case st.Uid != uid && st.Uid != 0:
		return true, nil
	case st.Gid != gid && st.Gid != 0:
		return true, nil
	}

	return false, nil
}
