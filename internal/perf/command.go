package perf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/perfrun/perfrun/internal/errors"
)

// Command is one external profiler invocation.
type Command struct {
	// Path is the binary to execute.
	Path string
	// Args are the arguments, in order.
	Args []string
	// OutputPath, when set, receives the command's stdout.
	OutputPath string
}

// String renders the command line as the operator would type it. Redirection
// to OutputPath is not part of the argv and is not shown.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Executor runs an external command to completion, capturing its exit
// status. Implementations block until the subprocess exits; there is exactly
// one active invocation at a time.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecExecutor invokes commands through os/exec. The subprocess inherits
// stdin and stderr; stdout passes through unless Command.OutputPath
// redirects it to a file.
type ExecExecutor struct {
	logger zerolog.Logger
}

// NewExecExecutor creates an executor logging through the given logger.
func NewExecExecutor(logger zerolog.Logger) *ExecExecutor {
	return &ExecExecutor{
		logger: logger.With().Str("component", "executor").Logger(),
	}
}

// Run executes cmd and blocks until it exits. A non-zero exit surfaces as
// the *exec.ExitError from os/exec; callers wrap it with the failing stage.
func (e *ExecExecutor) Run(ctx context.Context, cmd Command) error {
	//nolint:gosec // G204: argv is assembled by the runner from its own flags.
	execCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	execCmd.Stdin = os.Stdin
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr

	if cmd.OutputPath != "" {
		f, err := os.Create(cmd.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", cmd.OutputPath, err)
		}
		defer errors.DeferClose(e.logger, f, "failed to close redirected output")
		execCmd.Stdout = f
	}

	start := time.Now()
	if err := execCmd.Run(); err != nil {
		return err
	}

	e.logger.Debug().
		Str("command", cmd.String()).
		Dur("elapsed", time.Since(start)).
		Msg("Command completed")

	return nil
}
