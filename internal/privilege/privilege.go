// Package privilege provides utilities for handling privilege separation and
// user context detection when running with elevated privileges.
package privilege

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
)

// UserContext represents the identity of the user who invoked the program,
// accounting for privilege escalation.
type UserContext struct {
	Username string
	UID      int
	GID      int
}

// DetectInvokingUser resolves the identity profiling artifacts should belong
// to. Under sudo that is the original user named by SUDO_USER; otherwise the
// USER environment variable is used, falling back to the current user when
// neither is set. The name is resolved to uid/gid through the user database.
func DetectInvokingUser() (*UserContext, error) {
	name := os.Getenv("SUDO_USER")
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("failed to determine invoking user: %w", err)
		}
		name = u.Username
	}

	u, err := user.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user %s: %w", name, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, fmt.Errorf("invalid uid %q for user %s: %w", u.Uid, name, err)
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return nil, fmt.Errorf("invalid gid %q for user %s: %w", u.Gid, name, err)
	}

	return &UserContext{
		Username: name,
		UID:      uid,
		GID:      gid,
	}, nil
}

// IsRoot checks if the current process is running with root privileges (euid
// == 0).
func IsRoot() bool {
	return os.Geteuid() == 0
}

// IsRunningUnderSudo checks if the process is running under sudo by checking
// for the SUDO_USER environment variable.
func IsRunningUnderSudo() bool {
	return os.Getenv("SUDO_USER") != ""
}

// ChownToInvokingUser changes the ownership of path to the invoking user.
// Callers should treat a failure as a warning; artifacts then stay owned by
// the elevated identity.
func ChownToInvokingUser(path string) (*UserContext, error) {
	userCtx, err := DetectInvokingUser()
	if err != nil {
		return nil, err
	}

	if err := os.Chown(path, userCtx.UID, userCtx.GID); err != nil {
		return nil, fmt.Errorf("failed to chown %s to %d:%d: %w", path, userCtx.UID, userCtx.GID, err)
	}

	return userCtx, nil
}
