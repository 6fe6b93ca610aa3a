package config

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
)

// ValidateCommand checks that the configuration loads and validates
var ValidateCommand = &cli.Command{
	Name:   "validate",
	Usage:  "Validate the configuration",
	Action: runValidate,
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := app.ConfigFromContext(ctx)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := app.Stdout(cmd)
	fmt.Fprintln(out, "✓ Configuration is valid")
	fmt.Fprintf(out, "  Resource group: %s (%s)\n", cfg.Azure.ResourceGroup, cfg.Azure.Location)
	fmt.Fprintf(out, "  Cluster: %s, %d x %s\n", cfg.Cluster.Name, cfg.Cluster.NodeCount, cfg.Cluster.NodeVMSize)
	fmt.Fprintf(out, "  GPU pool: %s, %d x %s (%s)\n", cfg.GPU.PoolName, cfg.GPU.NodeCount, cfg.GPU.VMSize, cfg.GPU.DriverMode)
	fmt.Fprintf(out, "  Scheduler: %s (%s)\n", cfg.Scheduler.Name, cfg.Scheduler.Strategy)
	return nil
}
