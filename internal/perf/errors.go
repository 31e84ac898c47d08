package perf

import (
	"errors"
	"fmt"
	"os/exec"
)

// Stage identifies one external profiler invocation mode.
type Stage string

const (
	StageRecord Stage = "record"
	StageReport Stage = "report"
	StageScript Stage = "script"
)

// ToolError reports a profiler invocation that failed. It ends the current
// cycle; callers do not retry.
type ToolError struct {
	// Stage is the invocation mode that failed.
	Stage Stage
	// Command is the full command line, for diagnostics.
	Command string
	// Err is the underlying execution failure.
	Err error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return fmt.Sprintf("perf %s failed: %v", e.Stage, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExitCode returns the subprocess exit status, or -1 when the command never
// ran or was terminated by a signal.
func (e *ToolError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
