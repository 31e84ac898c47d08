// Package cli implements the perfrun command-line interface: flag parsing,
// configuration layering, and the interactive profiling loop.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/perfrun/perfrun/internal/config"
	"github.com/perfrun/perfrun/internal/constants"
	"github.com/perfrun/perfrun/internal/logging"
	"github.com/perfrun/perfrun/internal/perf"
	"github.com/perfrun/perfrun/internal/safe"
	"github.com/perfrun/perfrun/internal/sys/caps"
	"github.com/perfrun/perfrun/internal/sys/perfevent"
	"github.com/perfrun/perfrun/internal/sys/proc"
	"github.com/perfrun/perfrun/pkg/version"
)

// options holds the raw flag values for one invocation.
type options struct {
	pid         int
	duration    int
	startDelay  int
	perfOpts    string
	output      string
	reportFile  string
	report      bool
	flamegraph  bool
	dryRun      bool
	verbose     bool
	logfile     string
	configPath  string
	selfProfile string
}

// NewRootCmd creates the perfrun root command.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "perfrun",
		Short: "Linux perf profiler runner",
		Long: `perfrun orchestrates the Linux perf sampling profiler against a running
process: it validates profiling permissions, records for a fixed duration,
and optionally renders a textual report and a per-sample stack dump for
flamegraph tooling. After each cycle it offers to run again.

Profiling other processes requires perf_event_paranoid set to -1, or root
privileges. When run under sudo, recorded artifacts are chowned back to
the invoking user.

Configuration is layered: defaults, then ~/.perfrun/config.yaml (or the
--config file), then PERFRUN_* environment variables, then flags.

Environment Variables:
  PERFRUN_PERF_BIN    - Profiler binary to invoke (default: perf)
  PERFRUN_PERF_OPTS   - Options passed to perf record
  PERFRUN_OUTPUT_DIR  - Directory receiving generated artifact names
  PERFRUN_REPORT      - Generate a report after profiling (true/false)
  PERFRUN_FLAMEGRAPH  - Generate stack-dump output (true/false)
  PERFRUN_VERBOSE     - Enable debug logging (true/false)
  PERFRUN_LOGFILE     - Send JSON logs to a file

Examples:
  # Profile PID 1234 for 30 seconds
  sudo perfrun --pid 1234 --duration 30

  # Record at 99Hz with call graphs and render a report
  sudo perfrun --pid 1234 --duration 30 --perf-opts "-F 99 -g" --report

  # Emit per-sample stacks for flamegraph tooling
  sudo perfrun --pid 1234 --duration 30 --flamegraph
  # then: stackcollapse-perf.pl flamegraph_*.txt | flamegraph.pl > flame.svg

  # Show the commands without executing anything
  perfrun --pid 1234 --duration 5 --report --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	registerFlags(cmd.Flags(), opts)
	_ = cmd.MarkFlagRequired("pid")
	_ = cmd.MarkFlagRequired("duration")

	cmd.AddCommand(newVersionCmd())

	return cmd
}

// registerFlags declares the profiling flags on the given flag set.
func registerFlags(flags *pflag.FlagSet, opts *options) {
	flags.IntVar(&opts.pid, "pid", 0, "PID to profile")
	flags.IntVar(&opts.duration, "duration", 0, "Duration in seconds")
	flags.IntVar(&opts.startDelay, "start-delay", 0, "Delay in seconds before profiling starts")
	flags.StringVar(&opts.perfOpts, "perf-opts", constants.DefaultPerfOpts,
		"Options passed to perf record (split on whitespace, no quoting)")
	flags.StringVar(&opts.output, "output", "", "Raw perf output file (timestamped if not set)")
	flags.StringVar(&opts.reportFile, "report-file", "", "Readable summary file (timestamped if not set)")
	flags.BoolVar(&opts.report, "report", false, "Generate report after profiling")
	flags.BoolVar(&opts.flamegraph, "flamegraph", false, "Generate perf script output for flamegraph")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Simulate execution without running perf")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose output")
	flags.StringVar(&opts.logfile, "logfile", "", "Optional log file (JSON)")
	flags.StringVar(&opts.configPath, "config", "", "Config file (default ~/.perfrun/config.yaml)")
	flags.StringVar(&opts.selfProfile, "self-profile", "", "Profile perfrun itself (cpu or mem)")
	_ = flags.MarkHidden("self-profile")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("perfrun version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// run drives the interactive profiling loop until the operator declines
// another cycle or a fatal error ends the program.
func run(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, cmd.Flags(), opts)

	logger, closeLog, err := newLogger(cfg, opts.dryRun)
	if err != nil {
		return err
	}
	defer closeLog()

	pid, clamped := safe.IntToInt32(opts.pid)
	if clamped {
		return fmt.Errorf("pid %d is not valid or not running", opts.pid)
	}

	if !opts.dryRun {
		if _, err := exec.LookPath(cfg.PerfBin); err != nil {
			return fmt.Errorf("%s not found in PATH (install linux-tools for your kernel): %w", cfg.PerfBin, err)
		}
	}

	if opts.selfProfile != "" && !opts.dryRun {
		if stop := startSelfProfile(opts.selfProfile, cfg.OutputDir, logger); stop != nil {
			defer stop()
		}
	}

	// An interrupt at any stage aborts the whole program with the
	// reserved exit status; in-flight subprocesses are left to the OS.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted by user. Exiting cleanly.")
		logger.Info().Msg("Execution interrupted by user")
		os.Exit(130)
	}()

	req := perf.Request{
		PID:        pid,
		Duration:   opts.duration,
		StartDelay: opts.startDelay,
		PerfOpts:   cfg.PerfOpts,
		OutputPath: opts.output,
		ReportPath: opts.reportFile,
		Report:     cfg.Report,
		Flamegraph: cfg.Flamegraph,
		DryRun:     opts.dryRun,
	}

	in := bufio.NewReader(cmd.InOrStdin())
	for {
		if err := cycle(cmd.Context(), cfg, req, logger); err != nil {
			return err
		}

		fmt.Println("\nRun complete.")

		// Without a terminal there is nobody to prompt; run once.
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return nil
		}
		if !promptAgain(in) {
			fmt.Println("Exiting perfrun.")
			return nil
		}
	}
}

// applyFlagOverrides lets explicitly set flags win over file and
// environment configuration.
func applyFlagOverrides(cfg *config.Config, flags *pflag.FlagSet, opts *options) {
	if flags.Changed("perf-opts") {
		cfg.PerfOpts = opts.perfOpts
	}
	if flags.Changed("report") {
		cfg.Report = opts.report
	}
	if flags.Changed("flamegraph") {
		cfg.Flamegraph = opts.flamegraph
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if flags.Changed("logfile") {
		cfg.Logfile = opts.logfile
	}
}

// newLogger builds the run logger. A configured logfile receives JSON logs;
// otherwise logs go to stderr, pretty-printed when stderr is a terminal.
// Dry-run never creates the logfile.
func newLogger(cfg *config.Config, dryRun bool) (zerolog.Logger, func(), error) {
	level := "info"
	if cfg.Verbose {
		level = "debug"
	}

	if cfg.Logfile != "" && !dryRun {
		f, err := logging.OpenLogFile(cfg.Logfile)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		logger := logging.New(logging.Config{Level: level, Output: f})
		return logger, func() { _ = f.Close() }, nil
	}

	logger := logging.New(logging.Config{
		Level:  level,
		Pretty: term.IsTerminal(int(os.Stderr.Fd())),
	})
	return logger, func() {}, nil
}

// cycle runs one full profiling cycle: preflight, then recording and the
// requested post-processing stages.
func cycle(ctx context.Context, cfg *config.Config, req perf.Request, logger zerolog.Logger) error {
	logger = logger.With().Str("run_id", uuid.NewString()).Logger()

	logger.Info().
		Int32("pid", req.PID).
		Int("duration", req.Duration).
		Str("perf_opts", req.PerfOpts).
		Bool("dry_run", req.DryRun).
		Msg("Starting perfrun")

	identity := perf.CurrentIdentity()
	if err := preflight(logger, constants.ParanoidPath, identity, req.PID); err != nil {
		return err
	}

	runner := perf.NewRunner(
		perf.Config{PerfBin: cfg.PerfBin, OutputDir: cfg.OutputDir},
		perf.NewExecExecutor(logger),
		identity,
		logger,
	)

	art, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}

	ev := logger.Info().Str("raw", art.Raw)
	if art.Report != "" {
		ev = ev.Str("report", art.Report)
	}
	if art.Stacks != "" {
		ev = ev.Str("stacks", art.Stacks)
	}
	ev.Msg("Profiling complete")

	return nil
}

// preflight verifies profiling permission and the target's existence before
// any artifact name is generated or subprocess spawned.
func preflight(logger zerolog.Logger, paranoidPath string, identity perf.Identity, pid int32) error {
	if err := perfevent.CheckAccess(paranoidPath, identity.Root()); err != nil {
		logPermissionHints(logger)
		return err
	}

	if !proc.Exists(pid) {
		return &proc.InvalidTargetError{PID: pid}
	}

	if target, err := proc.Describe(pid); err == nil {
		logger.Debug().
			Str("name", target.Name).
			Str("user", target.Username).
			Str("cmdline", target.Cmdline).
			Msg("Profiling target")
	}

	return nil
}

// logPermissionHints records privilege detail alongside an access denial:
// CAP_PERFMON (kernel 5.8+) or CAP_SYS_ADMIN would also grant access.
func logPermissionHints(logger zerolog.Logger) {
	ev := logger.Debug().Str("kernel", proc.GetKernelVersion())
	if set, err := caps.Effective(); err == nil {
		ev = ev.Bool("cap_perfmon", set.Perfmon()).Bool("cap_sys_admin", set.SysAdmin())
	}
	ev.Msg("Profiling permission denied")
}

// promptAgain asks the operator for another cycle. Anything other than a
// case-insensitive y declines, as does a closed stdin.
func promptAgain(in *bufio.Reader) bool {
	fmt.Print("Run again? [y/N]: ")

	line, err := in.ReadString('\n')
	if err != nil && len(line) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// startSelfProfile profiles perfrun itself, for development use. The
// returned stop function flushes the profile; nil when mode is unknown.
func startSelfProfile(mode, dir string, logger zerolog.Logger) func() {
	var p interface{ Stop() }
	switch mode {
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.Quiet)
	case "mem":
		p = profile.Start(profile.MemProfile, profile.ProfilePath(dir), profile.Quiet)
	default:
		logger.Warn().Str("mode", mode).Msg("Unknown self-profile mode, ignoring")
		return nil
	}

	logger.Debug().Str("mode", mode).Str("dir", dir).Msg("Self-profiling enabled")
	return p.Stop
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
