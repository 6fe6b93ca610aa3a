package config

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
)

// PathCommand prints the config file anvil reads
var PathCommand = &cli.Command{
	Name:   "path",
	Usage:  "Print the config file path",
	Action: runPath,
}

func runPath(ctx context.Context, cmd *cli.Command) error {
	path, err := targetPath(cmd.String("config"))
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Stdout(cmd), path)
	return nil
}
