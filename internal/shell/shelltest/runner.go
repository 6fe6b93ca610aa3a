// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/catalystcommunity/anvil/v1/internal/shell"
)

// Response is the scripted outcome of a command
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner answers commands by longest matching prefix and records every call.
// Commands are matched on "name arg1 arg2 ...".
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	paths     map[string]string
	calls     []string
}

// NewRunner creates an empty scripted runner
func NewRunner() *Runner {
	return &Runner{
		responses: make(map[string]Response),
		paths:     make(map[string]string),
	}
}

// On scripts a successful response for commands starting with prefix
func (r *Runner) On(prefix, stdout string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[prefix] = Response{Stdout: stdout}
	return r
}

// Fail scripts a non-zero exit for commands starting with prefix
func (r *Runner) Fail(prefix string, code int, stderr string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[prefix] = Response{Stderr: stderr, ExitCode: code}
	return r
}

// Install makes LookPath resolve name
func (r *Runner) Install(names ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.paths[name] = "/usr/bin/" + name
	}
	return r
}

// Run implements shell.Runner
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*shell.Result, error) {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))

	r.mu.Lock()
	r.calls = append(r.calls, line)
	resp, ok := r.match(line)
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unexpected command: %s", line)
	}

	result := &shell.Result{Stdout: resp.Stdout, Stderr: resp.Stderr, ExitCode: resp.ExitCode}
	if resp.ExitCode != 0 {
		return result, &shell.ExitError{Tool: name, Args: args, Code: resp.ExitCode, Stderr: resp.Stderr}
	}
	return result, nil
}

// LookPath implements shell.Runner
func (r *Runner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path, ok := r.paths[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%s not found on PATH", name)
}

// Calls returns every command line run so far
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Called reports whether any recorded command starts with prefix
func (r *Runner) Called(prefix string) bool {
	for _, call := range r.Calls() {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

// Find returns the first recorded command starting with prefix
func (r *Runner) Find(prefix string) string {
	for _, call := range r.Calls() {
		if strings.HasPrefix(call, prefix) {
			return call
		}
	}
	return ""
}

func (r *Runner) match(line string) (Response, bool) {
	best := -1
	var found Response
	for prefix, resp := range r.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best = len(prefix)
			found = resp
		}
	}
	return found, best >= 0
}
