// Package app holds what every script shares: the configuration loaded at
// startup, the process logger and the az runner.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/catalystcommunity/anvil/v1/internal/azure"
	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/deps"
	"github.com/catalystcommunity/anvil/v1/internal/logging"
	"github.com/catalystcommunity/anvil/v1/internal/shell"
)

type loaded struct {
	cfg *config.Config
	err error
}

type configKey struct{}

// Before is the root command's before hook. It loads the configuration
// once and installs the logger. A configuration error is kept and reported
// by the first script that needs the configuration, so usage errors and
// `anvil version` still work with a broken config file.
func Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err == nil && cmd.Bool("yes") {
		cfg.AssumeYes = true
	}

	level := "info"
	if cfg != nil {
		level = cfg.LogLevel
	}
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}

	logger, lerr := logging.New(Stderr(cmd), level)
	if lerr != nil {
		return ctx, lerr
	}

	ctx = logging.WithLogger(ctx, logger)
	return context.WithValue(ctx, configKey{}, loaded{cfg: cfg, err: err}), nil
}

// WithConfig returns a context carrying cfg, as Before does
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, loaded{cfg: cfg})
}

// ConfigFromContext returns the configuration loaded by Before
func ConfigFromContext(ctx context.Context) (*config.Config, error) {
	l, ok := ctx.Value(configKey{}).(loaded)
	if !ok {
		return nil, fmt.Errorf("configuration was not loaded")
	}
	return l.cfg, l.err
}

// Env is the environment a script service is built from
type Env struct {
	Config  *config.Config
	Runner  shell.Runner
	Azure   *azure.Client
	Out     io.Writer
	Confirm ConfirmFunc
}

// NewEnv builds the Env of a script from the startup configuration
func NewEnv(ctx context.Context, cmd *cli.Command) (*Env, error) {
	cfg, err := ConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}

	runner := shell.NewLocalRunner()
	out := Stdout(cmd)
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	return &Env{
		Config:  cfg,
		Runner:  runner,
		Azure:   azure.NewClient(runner, cfg.Azure.SubscriptionID),
		Out:     out,
		Confirm: NewConfirm(os.Stdin, out, cfg.AssumeYes, interactive),
	}, nil
}

// CheckDeps runs the check-deps report for tools
func (e *Env) CheckDeps(ctx context.Context, tools ...deps.Tool) error {
	return deps.NewChecker(e.Runner, e.Config.MinAzVersion, e.Out).Check(ctx, tools...)
}

// Kubeconfig fetches the AKS cluster's kubeconfig through az
func (e *Env) Kubeconfig(ctx context.Context) ([]byte, error) {
	return e.Azure.Kubeconfig(ctx, e.Config.Azure.ResourceGroup, e.Config.Cluster.Name, e.Config.Cluster.AdminCredentials)
}

// Stdout is where command output goes, the root command's Writer when set
func Stdout(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

// Stderr is where logs and errors go
func Stderr(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.ErrWriter != nil {
		return root.ErrWriter
	}
	return os.Stderr
}
