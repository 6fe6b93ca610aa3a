// Package config implements `anvil config`: inspect and bootstrap the
// configuration every script reads.
package config

import "github.com/urfave/cli/v3"

// Command is the top-level config command
var Command = &cli.Command{
	Name:  "config",
	Usage: "Inspect and create the anvil configuration",
	Commands: []*cli.Command{
		InitCommand,
		ValidateCommand,
		ShowCommand,
		PathCommand,
	},
}
