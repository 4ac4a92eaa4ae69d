package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/logging"
	"github.com/rs/zerolog"
	"mvdan.cc/sh/v3/syntax"
)

// Command describes one external process invocation
type Command struct {
	Name        string
	Args        []string
	Dir         string   // Working directory; empty means the current one
	Env         []string // Extra KEY=VALUE pairs appended to the process environment
	SkipOnError bool     // Log a failure instead of returning it
}

// String renders the command line with shell quoting
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range append([]string{c.Name}, c.Args...) {
		q, err := syntax.Quote(p, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", p)
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}

// Runner executes external commands
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// CommandError reports a command that could not start or exited non-zero
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q", e.Command)
	if e.ExitCode > 0 {
		msg = fmt.Sprintf("%s exited with status %d", msg, e.ExitCode)
	} else {
		msg = fmt.Sprintf("%s failed: %v", msg, e.Err)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// Unwrap lets errors.Is match ErrBuildFailure
func (e *CommandError) Unwrap() []error {
	return []error{core.ErrBuildFailure, e.Err}
}

// ExecRunner runs commands with os/exec. Standard output is discarded,
// standard error is kept for the error message.
type ExecRunner struct {
	Stdout io.Writer
	logger zerolog.Logger
}

// NewExecRunner creates a runner that discards standard output
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdout: io.Discard,
		logger: logging.GetLogger("runner"),
	}
}

// Run executes cmd and waits for it to finish
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	line := cmd.String()
	r.logger.Info().Str("dir", cmd.Dir).Msgf("$ %s", line)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stderr bytes.Buffer
	c.Stdout = r.Stdout
	c.Stderr = &stderr

	err := c.Run()
	if err == nil {
		return nil
	}

	cerr := &CommandError{
		Command: line,
		Stderr:  strings.TrimSpace(stderr.String()),
		Err:     err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}

	if cmd.SkipOnError {
		r.logger.Warn().
			Err(err).
			Str("command", line).
			Str("stderr", cerr.Stderr).
			Msg("Command failed, continuing")
		return nil
	}
	return cerr
}
