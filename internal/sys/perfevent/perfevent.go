// Package perfevent reads the kernel interface governing perf_event access.
package perfevent

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PermissionError reports that profiling is not permitted for the current
// identity, or that the permission setting could not be determined.
type PermissionError struct {
	// Paranoid is the perf_event_paranoid value when it was readable.
	Paranoid int
	// Err is the underlying failure when the setting could not be read.
	Err error
}

// Error implements the error interface.
func (e *PermissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("perf access check failed: %v", e.Err)
	}
	return fmt.Sprintf("root privileges required unless perf_event_paranoid is -1 (currently %d)", e.Paranoid)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// ReadParanoid reads the perf_event_paranoid value from path.
func ReadParanoid(path string) (int, error) {
	//nolint:gosec // G304: Path is a kernel interface under /proc.
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	val, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return val, nil
}

// CheckAccess decides whether profiling may proceed. Access is granted when
// the paranoid setting at path is -1 or lower, or when the caller is root.
// A setting that cannot be read is a denial carrying the read error.
func CheckAccess(path string, root bool) error {
	val, err := ReadParanoid(path)
	if err != nil {
		return &PermissionError{Err: err}
	}

	if val > -1 && !root {
		return &PermissionError{Paranoid: val}
	}

	return nil
}
