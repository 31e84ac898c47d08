// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".perfrun"

	// DefaultPerfBin is the profiler binary invoked for every stage.
	DefaultPerfBin = "perf"

	// DefaultPerfOpts is the default event selection passed to perf record.
	DefaultPerfOpts = "-e cpu-clock:pp"

	// ParanoidPath is the kernel interface controlling unprivileged
	// perf_event access.
	ParanoidPath = "/proc/sys/kernel/perf_event_paranoid"
)

// Default artifact name components. Generated names follow
// <base>_<YYYYMMDD_HHMMSS>.<ext>.
const (
	RawBase    = "perf"
	RawExt     = "data"
	ReportBase = "perf_report"
	ReportExt  = "txt"
	StacksBase = "flamegraph"
	StacksExt  = "txt"
)
