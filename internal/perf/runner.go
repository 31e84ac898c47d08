// Package perf orchestrates the Linux perf profiler against a running
// process: a timed recording, an optional textual report, and an optional
// per-sample stack dump for flamegraph tooling.
package perf

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/perfrun/perfrun/internal/constants"
	"github.com/perfrun/perfrun/internal/privilege"
	"github.com/perfrun/perfrun/internal/safe"
)

// Request describes one profiling cycle. It is immutable once parsed and
// lives for exactly one cycle of the interactive loop.
type Request struct {
	// PID is the target process; it must exist when the cycle starts.
	PID int32
	// Duration bounds the recording, in seconds.
	Duration int
	// StartDelay is how long to wait before recording, in seconds.
	StartDelay int
	// PerfOpts is passed verbatim to perf record, split on whitespace.
	// There is no quoting support; an option value containing a literal
	// space will be split incorrectly.
	PerfOpts string
	// OutputPath is the raw recording destination; empty means a
	// timestamped name in the configured output directory.
	OutputPath string
	// ReportPath is the report destination; empty means a timestamped name.
	ReportPath string
	// Report requests a textual report after recording.
	Report bool
	// Flamegraph requests a per-sample stack dump after recording.
	Flamegraph bool
	// DryRun prints each command instead of executing anything.
	DryRun bool
}

// Artifacts is the set of files produced by one cycle. Report and Stacks
// are empty unless their producing stages were requested.
type Artifacts struct {
	Raw    string
	Report string
	Stacks string
}

// Config configures the runner.
type Config struct {
	// PerfBin is the profiler binary to invoke.
	PerfBin string
	// OutputDir receives generated artifact names. Explicit paths in a
	// Request are used verbatim.
	OutputDir string
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		PerfBin:   constants.DefaultPerfBin,
		OutputDir: ".",
	}
}

// Runner drives the external profiler through one profiling cycle. All
// invocations are synchronous and blocking; the recording stage blocks for
// the full requested duration.
type Runner struct {
	cfg      Config
	executor Executor
	identity Identity
	logger   zerolog.Logger
	stdout   io.Writer

	// Test seams; production values are set by NewRunner.
	chown func(path string) (*privilege.UserContext, error)
	stat  statFunc
}

// NewRunner creates a runner executing through executor on behalf of the
// given identity.
func NewRunner(cfg Config, executor Executor, identity Identity, logger zerolog.Logger) *Runner {
	if cfg.PerfBin == "" {
		cfg.PerfBin = constants.DefaultPerfBin
	}
	return &Runner{
		cfg:      cfg,
		executor: executor,
		identity: identity,
		logger:   logger.With().Str("component", "perf").Logger(),
		stdout:   os.Stdout,
		chown:    privilege.ChownToInvokingUser,
		stat:     unix.Stat,
	}
}

// Run executes one full cycle: optional start delay, artifact naming,
// recording, then the requested post-processing stages. The first failing
// stage aborts the rest of the cycle; there is no retry.
func (r *Runner) Run(ctx context.Context, req Request) (*Artifacts, error) {
	if err := r.wait(ctx, req.StartDelay); err != nil {
		return nil, err
	}

	art := r.resolveArtifacts(req)

	if err := r.Record(ctx, req, art.Raw); err != nil {
		return nil, err
	}

	if req.Report {
		if err := r.Report(ctx, req, art.Raw, art.Report); err != nil {
			return nil, err
		}
	}

	if req.Flamegraph {
		if err := r.DumpStacks(ctx, req, art.Raw, art.Stacks); err != nil {
			return nil, err
		}
	}

	return art, nil
}

// wait sleeps for the requested start delay, honoring cancellation.
func (r *Runner) wait(ctx context.Context, seconds int) error {
	if seconds <= 0 {
		return nil
	}

	r.logger.Info().Int("seconds", seconds).Msg("Waiting before profiling starts")
	select {
	case <-time.After(time.Duration(seconds) * time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolveArtifacts fills in timestamped names for any path the request left
// unset. Each required name is generated exactly once per cycle.
func (r *Runner) resolveArtifacts(req Request) *Artifacts {
	art := &Artifacts{Raw: req.OutputPath}
	if art.Raw == "" {
		art.Raw = r.generatedPath(constants.RawBase, constants.RawExt)
	}

	if req.Report {
		art.Report = req.ReportPath
		if art.Report == "" {
			art.Report = r.generatedPath(constants.ReportBase, constants.ReportExt)
		}
	}

	if req.Flamegraph {
		art.Stacks = r.generatedPath(constants.StacksBase, constants.StacksExt)
	}

	return art
}

func (r *Runner) generatedPath(base, ext string) string {
	dir := r.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, TimestampedName(base, ext))
}

// Record captures a timed recording of the target process into rawPath:
//
//	perf record <opts...> -p <pid> -o <rawPath> -- sleep <duration>
//
// The trailing sleep bounds the recording; the call blocks until it
// elapses. On success under root, ownership of rawPath is repaired to the
// invoking user; a repair failure is logged and non-fatal.
func (r *Runner) Record(ctx context.Context, req Request, rawPath string) error {
	args := []string{"record"}
	args = append(args, strings.Fields(req.PerfOpts)...)
	args = append(args,
		"-p", strconv.Itoa(int(req.PID)),
		"-o", rawPath,
		"--", "sleep", strconv.Itoa(req.Duration),
	)
	cmd := Command{Path: r.cfg.PerfBin, Args: args}

	if req.DryRun {
		fmt.Fprintf(r.stdout, "Running: %s\n", cmd)
		return nil
	}

	r.logger.Info().
		Int32("pid", req.PID).
		Int("duration", req.Duration).
		Str("output", rawPath).
		Msg("Starting recording")

	if err := r.executor.Run(ctx, cmd); err != nil {
		return &ToolError{Stage: StageRecord, Command: cmd.String(), Err: err}
	}

	r.logRecordingSize(rawPath)

	if r.identity.Root() {
		r.repairOwnership(rawPath)
	}

	return nil
}

// Report renders the raw recording into a plain-text summary at reportPath:
//
//	perf report -i <rawPath> --stdio -f
//
// with stdout redirected to reportPath.
func (r *Runner) Report(ctx context.Context, req Request, rawPath, reportPath string) error {
	cmd := Command{
		Path:       r.cfg.PerfBin,
		Args:       []string{"report", "-i", rawPath, "--stdio", "-f"},
		OutputPath: reportPath,
	}

	if req.DryRun {
		fmt.Fprintf(r.stdout, "Generating report: %s\n", cmd)
		return nil
	}

	r.logger.Info().Str("input", rawPath).Str("report", reportPath).Msg("Generating report")

	if err := r.executor.Run(ctx, cmd); err != nil {
		return &ToolError{Stage: StageReport, Command: cmd.String(), Err: err}
	}

	return nil
}

// DumpStacks emits per-sample stack traces for flamegraph tooling:
//
//	perf script -i <rawPath> [-f]
//
// with stdout redirected to dumpPath. The force flag is appended when
// rawPath's ownership does not match the caller's effective identity, or
// unconditionally when the inspection itself fails (reported, non-fatal).
func (r *Runner) DumpStacks(ctx context.Context, req Request, rawPath, dumpPath string) error {
	args := []string{"script", "-i", rawPath}

	force, err := forceFlagNeeded(r.stat, rawPath, r.identity)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", rawPath).Msg("Ownership check failed; proceeding with -f as fallback")
	}
	if force {
		args = append(args, "-f")
	}

	cmd := Command{Path: r.cfg.PerfBin, Args: args, OutputPath: dumpPath}

	if req.DryRun {
		fmt.Fprintf(r.stdout, "Generating flamegraph data: %s\n", cmd)
		return nil
	}

	r.logger.Info().
		Str("input", rawPath).
		Str("stacks", dumpPath).
		Bool("force", force).
		Msg("Generating stack dump")

	if err := r.executor.Run(ctx, cmd); err != nil {
		return &ToolError{Stage: StageScript, Command: cmd.String(), Err: err}
	}

	return nil
}

// logRecordingSize reports the finished recording's size. Best effort.
func (r *Runner) logRecordingSize(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	size, _ := safe.Int64ToUint64(info.Size())
	r.logger.Info().Str("path", path).Str("size", humanize.Bytes(size)).Msg("Recording complete")
}

// repairOwnership hands the artifact back to the invoking user after a
// privileged recording. Failure leaves the file root-owned and is only
// logged.
func (r *Runner) repairOwnership(path string) {
	userCtx, err := r.chown(path)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to change artifact ownership")
		return
	}

	r.logger.Debug().
		Str("path", path).
		Str("user", userCtx.Username).
		Msg("Changed artifact ownership to invoking user")
}
