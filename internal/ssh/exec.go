package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultExecTimeout bounds a single remote command
const DefaultExecTimeout = 60 * time.Second

// ExecResult contains the result of a command execution
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Exec executes a command on the remote host and returns the result
func (c *Connection) Exec(command string) (*ExecResult, error) {
	return c.ExecWithTimeout(command, DefaultExecTimeout)
}

// ExecWithTimeout executes a command with a specified timeout
func (c *Connection) ExecWithTimeout(command string, timeout time.Duration) (*ExecResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.ExecContext(ctx, command)
}

// ExecContext executes a command until it finishes or ctx is done. A
// non-zero remote exit status is reported in ExecResult, not as an error.
func (c *Connection) ExecContext(ctx context.Context, command string) (*ExecResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("connection is not established")
	}

	if command == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}

	session, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		// best effort
		session.Signal(ssh.SIGTERM)
		session.Close()
		return nil, fmt.Errorf("command %q interrupted: %w", command, ctx.Err())
	case err := <-done:
		result := &ExecResult{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}

		if err != nil {
			var exitErr *ssh.ExitError
			if !errors.As(err, &exitErr) {
				return nil, fmt.Errorf("failed to execute command: %w", err)
			}
			result.ExitCode = exitErr.ExitStatus()
		}

		return result, nil
	}
}

// Execute runs command and returns its stdout, turning a non-zero exit
// status into an error that carries the remote stderr
func (c *Connection) Execute(command string) (string, error) {
	result, err := c.Exec(command)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return result.Stdout, fmt.Errorf("%q exited with code %d: %s",
			command, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return result.Stdout, nil
}
