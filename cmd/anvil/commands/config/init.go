package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/config"
)

// InitCommand writes a config file from the defaults and the current
// environment
var InitCommand = &cli.Command{
	Name:  "init",
	Usage: "Write a config file from the defaults and the current environment",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "overwrite an existing config file",
		},
	},
	Action: runInit,
}

func runInit(ctx context.Context, cmd *cli.Command) error {
	path, err := targetPath(cmd.String("config"))
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}

	cfg, err := config.FromEnvironment()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := config.Write(&buf, cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(app.Stdout(cmd), "✓ Configuration written to %s\n", path)
	return nil
}

func targetPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.DefaultConfigName), nil
}
