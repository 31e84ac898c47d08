// Package proc inspects profiling target processes.
package proc

import (
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// InvalidTargetError reports that a pid does not reference an observable
// process.
type InvalidTargetError struct {
	PID int32
}

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("pid %d is not valid or not running", e.PID)
}

// Exists reports whether a process with the given pid is currently
// observable on the system. Existence only; the target can still exit
// between this check and a later profiler attach.
func Exists(pid int32) bool {
	ok, err := process.PidExists(pid)
	if err != nil {
		return false
	}
	return ok
}

// Target holds best-effort details about the process being profiled,
// used to enrich logs before recording starts.
type Target struct {
	PID      int32
	Name     string
	Username string
	Cmdline  string
}

// Describe returns details for pid. Fields that cannot be read (e.g. due to
// permissions) are left empty; only a missing process yields an error.
func Describe(pid int32) (*Target, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect pid %d: %w", pid, err)
	}

	t := &Target{PID: pid}
	if name, err := p.Name(); err == nil {
		t.Name = name
	}
	if username, err := p.Username(); err == nil {
		t.Username = username
	}
	if cmdline, err := p.Cmdline(); err == nil {
		t.Cmdline = cmdline
	}

	return t, nil
}

// GetKernelVersion reads the kernel version from /proc/version.
func GetKernelVersion() string {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return "unknown"
	}

	// Parse version from output like "Linux version 5.15.0-xxx...".
	version := string(data)
	if idx := strings.Index(version, "Linux version "); idx >= 0 {
		version = version[idx+14:] // Skip "Linux version ".
		if idx := strings.Index(version, " "); idx >= 0 {
			version = version[:idx]
		}
		return version
	}

	return "unknown"
}
