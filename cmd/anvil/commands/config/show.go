package config

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/config"
)

// ShowCommand prints the effective configuration
var ShowCommand = &cli.Command{
	Name:   "show",
	Usage:  "Display the effective configuration after defaults, file and environment",
	Action: runShow,
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := app.ConfigFromContext(ctx)
	if err != nil {
		return err
	}

	out := app.Stdout(cmd)
	if path, _ := config.FindConfig(cmd.String("config")); path != "" {
		fmt.Fprintf(out, "# Configuration: %s\n", path)
	}
	return config.Write(out, cfg)
}
