package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/scaii/sky-install/pkg/telemetry"
)

// ErrOutputNotText is returned when a process writes bytes to stdout that
// are not valid UTF-8.
var ErrOutputNotText = errors.New("process output is not valid text")

// Command describes a single process invocation.
type Command struct {
	// Name is the program to run.
	Name string
	// Args are passed to the program verbatim.
	Args []string
	// Dir is the working directory. Empty means the installer's own
	// directory, which callers in this module never rely on.
	Dir string
}

// String renders the command line for logs and messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner launches processes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// LaunchError means the process could not be started at all.
type LaunchError struct {
	Command Command
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Command.Name, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ProcessError means the process ran and exited with a non-zero status.
type ProcessError struct {
	Command  Command
	ExitCode int
	Stderr   string
}

// Error returns the captured error stream when there is one, so the
// user sees the tool's own diagnostic.
func (e *ProcessError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("command %q exited with status %d", e.Command.String(), e.ExitCode)
}

// CheckResult converts a non-zero exit status into a ProcessError.
func CheckResult(cmd Command, res *Result) error {
	if res.Success() {
		return nil
	}
	return &ProcessError{Command: cmd, ExitCode: res.ExitCode, Stderr: res.Stderr}
}

// ExecRunner runs processes on the local host. Standard output is echoed
// to Stdout while being captured; standard error is captured only.
type ExecRunner struct {
	// Shell, when set, prefixes every invocation, e.g. {"cmd", "/C"}.
	Shell []string
	// Stdout receives a live copy of the child's standard output.
	Stdout io.Writer
}

// NewExecRunner returns a runner that echoes output to os.Stdout.
func NewExecRunner(shell ...string) *ExecRunner {
	return &ExecRunner{Shell: shell, Stdout: os.Stdout}
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, &LaunchError{Command: cmd, Err: errors.New("command is required")}
	}
	cmd.Name = NormalizeCommandName(cmd.Name)
	name, args := r.argv(cmd)

	logger := telemetry.FromContext(ctx).NewComponentLogger("runner").WithField("command", cmd.Name)
	logger.WithFields(map[string]interface{}{
		"args": cmd.Args,
		"dir":  cmd.Dir,
	}).Info("Running command")

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	if r.Stdout != nil {
		c.Stdout = io.MultiWriter(&stdout, r.Stdout)
	} else {
		c.Stdout = &stdout
	}
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	result := &Result{Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &LaunchError{Command: cmd, Err: err}
		}
		result.ExitCode = exitErr.ExitCode()
	}

	// Undecodable output only fails a run that otherwise succeeded; a
	// non-zero exit keeps its status and stderr for CheckResult.
	if result.ExitCode == 0 && !utf8.Valid(stdout.Bytes()) {
		return nil, fmt.Errorf("%s: %w", cmd.Name, ErrOutputNotText)
	}
	result.Stdout = strings.ToValidUTF8(stdout.String(), "\uFFFD")
	result.Stderr = strings.ToValidUTF8(stderr.String(), "\uFFFD")

	logger = logger.WithField("exit_code", result.ExitCode)
	if result.Stderr != "" {
		logger.Warn(strings.TrimSpace(result.Stderr))
	}
	logger.WithField("duration", result.Duration.String()).Debug("Command finished")

	return result, nil
}

// argv returns the program and arguments actually executed, wrapping cmd
// in the configured shell.
func (r *ExecRunner) argv(cmd Command) (string, []string) {
	if len(r.Shell) == 0 {
		return cmd.Name, cmd.Args
	}
	args := make([]string, 0, len(r.Shell)+len(cmd.Args))
	args = append(args, r.Shell[1:]...)
	args = append(args, cmd.Name)
	args = append(args, cmd.Args...)
	return r.Shell[0], args
}

// NormalizeCommandName strips quotes that some shells leave around the
// protoc program name when it is passed through from a build script.
func NormalizeCommandName(name string) string {
	trimmed := strings.Trim(name, `"'`)
	if strings.EqualFold(trimmed, "protoc") {
		return trimmed
	}
	return name
}
