package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/catalystcommunity/anvil/v1/internal/logging"
)

// Result contains the captured output of a finished command
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external command-line tools
type Runner interface {
	// Run executes name with args and returns its output.
	// A non-zero exit status is reported as an *ExitError.
	Run(ctx context.Context, name string, args ...string) (*Result, error)

	// LookPath resolves a tool name to an executable path
	LookPath(name string) (string, error)
}

// ExitError is returned when a tool runs but exits with a non-zero status
type ExitError struct {
	Tool   string
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s %s exited with code %d", e.Tool, strings.Join(e.Args, " "), e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// AsExitError extracts an *ExitError from err's chain
func AsExitError(err error) (*ExitError, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr, true
	}
	return nil, false
}

// LocalRunner runs tools as child processes of the current process
type LocalRunner struct{}

// NewLocalRunner creates a runner that inherits the process environment
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// Run executes the tool and captures stdout and stderr separately
func (r *LocalRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	path, err := r.LookPath(name)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("exec", "tool", name, "args", strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, path, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	result := &Result{}
	runErr := command.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{
				Tool:   name,
				Args:   args,
				Code:   result.ExitCode,
				Stderr: strings.TrimSpace(result.Stderr),
			}
		}
		return nil, fmt.Errorf("failed to run %s: %w", name, runErr)
	}

	return result, nil
}

// LookPath resolves name on PATH
func (r *LocalRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", name, err)
	}
	return path, nil
}
