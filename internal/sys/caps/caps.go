// Package caps inspects the Linux capability bits of the current process.
package caps

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Capability bit positions (from include/uapi/linux/capability.h).
const (
	capSysAdmin = 21 // CAP_SYS_ADMIN
	capPerfmon  = 38 // CAP_PERFMON (kernel 5.8+)
)

// Set is an effective capability bitmask.
type Set uint64

// Perfmon reports whether CAP_PERFMON is present.
func (s Set) Perfmon() bool {
	return s.has(capPerfmon)
}

// SysAdmin reports whether CAP_SYS_ADMIN is present.
func (s Set) SysAdmin() bool {
	return s.has(capSysAdmin)
}

func (s Set) has(bit int) bool {
	return s&(1<<uint(bit)) != 0
}

// Effective reads the current process's effective capability set.
func Effective() (Set, error) {
	return readEffective("/proc/self/status")
}

// readEffective parses the CapEff bitmask from a /proc status file.
func readEffective(statusPath string) (Set, error) {
	//nolint:gosec // G304: Path is a /proc interface.
	file, err := os.Open(statusPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", statusPath, err)
	}
	defer file.Close() // nolint:errcheck

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "CapEff:") {
			continue
		}

		// Format: "CapEff:\t00000000a80435fb"
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return 0, fmt.Errorf("invalid CapEff format: %s", line)
		}

		bitmask, err := strconv.ParseUint(parts[1], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse CapEff bitmask: %w", err)
		}

		return Set(bitmask), nil
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", statusPath, err)
	}

	return 0, fmt.Errorf("CapEff not found in %s", statusPath)
}
