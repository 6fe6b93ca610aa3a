package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	akscmd "github.com/catalystcommunity/anvil/v1/cmd/anvil/commands/aks"
	configcmd "github.com/catalystcommunity/anvil/v1/cmd/anvil/commands/config"
	gpucmd "github.com/catalystcommunity/anvil/v1/cmd/anvil/commands/gpu"
	nvacmd "github.com/catalystcommunity/anvil/v1/cmd/anvil/commands/nva"
	schedulercmd "github.com/catalystcommunity/anvil/v1/cmd/anvil/commands/scheduler"
	vnetcmd "github.com/catalystcommunity/anvil/v1/cmd/anvil/commands/vnet"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
)

var (
	// Version information (will be set by build flags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit status
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := newRootCommand(stdout, stderr).Run(ctx, args)
	if err == nil {
		return 0
	}
	// usage errors were already printed with the usage text
	if !dispatch.IsUsage(err) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return dispatch.ExitStatus(err)
}

func newRootCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "anvil",
		Usage:     "Provision AKS clusters, a FreeBSD NVA, GPU node pools and a bin-packing scheduler",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("ANVIL_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides LOG_LEVEL)",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "do not ask before deleting resources",
			},
		},
		Before: app.Before,
		Commands: []*cli.Command{
			akscmd.Command,
			vnetcmd.Command,
			nvacmd.Command,
			gpucmd.Command,
			schedulercmd.Command,
			configcmd.Command,
			versionCommand,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := cli.ShowRootCommandHelp(cmd); err != nil {
				return err
			}
			return &dispatch.UsageError{Reason: "no command given"}
		},
	}
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version information",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		fmt.Fprintf(app.Stdout(cmd), "anvil %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return nil
	},
}
