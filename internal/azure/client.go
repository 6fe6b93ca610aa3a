// Package azure wraps the az command-line tool. Every call goes through a
// shell.Runner so a failing az invocation surfaces as a *shell.ExitError
// carrying az's own exit status.
package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/catalystcommunity/anvil/v1/internal/shell"
)

// Tool is the name of the Azure CLI binary
const Tool = "az"

// Client runs az subcommands against one subscription
type Client struct {
	runner       shell.Runner
	subscription string
}

// NewClient creates a Client. An empty subscription uses the az default.
func NewClient(runner shell.Runner, subscription string) *Client {
	return &Client{runner: runner, subscription: subscription}
}

// run executes an az subcommand and returns its trimmed stdout
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.subscription != "" {
		args = append(args, "--subscription", c.subscription)
	}
	result, err := c.runner.Run(ctx, Tool, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

// runJSON executes an az subcommand with JSON output and decodes it into out
func (c *Client) runJSON(ctx context.Context, out any, args ...string) error {
	stdout, err := c.run(ctx, append(args, "-o", "json")...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stdout), out); err != nil {
		return fmt.Errorf("failed to decode az %s output: %w", strings.Join(args[:min(2, len(args))], " "), err)
	}
	return nil
}

// query returns a single field selected with a JMESPath query
func (c *Client) query(ctx context.Context, jmes string, args ...string) (string, error) {
	return c.run(ctx, append(args, "--query", jmes, "-o", "tsv")...)
}

// mutate runs a create/update/delete subcommand and discards its output
func (c *Client) mutate(ctx context.Context, args ...string) error {
	_, err := c.run(ctx, append(args, "-o", "none")...)
	return err
}

// withTags appends --tags when any are set
func withTags(args []string, tags []string) []string {
	if len(tags) == 0 {
		return args
	}
	return append(append(args, "--tags"), tags...)
}

// Version returns the installed azure-cli version as reported by az version
func (c *Client) Version(ctx context.Context) (string, error) {
	result, err := c.runner.Run(ctx, Tool, "version", "-o", "json")
	if err != nil {
		return "", err
	}
	var versions map[string]any
	if err := json.Unmarshal([]byte(result.Stdout), &versions); err != nil {
		return "", fmt.Errorf("failed to decode az version output: %w", err)
	}
	v, ok := versions["azure-cli"].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("az version output has no azure-cli entry")
	}
	return v, nil
}
