package nva

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/secrets"
)

// Dispatcher routes the nva actions
var Dispatcher = dispatch.New("nva", "anvil nva: manage the FreeBSD network virtual appliance",
	dispatch.Route[*Service]{Verb: dispatch.VerbInstall, Summary: "create the NVA, route the AKS subnet through it and configure it", Handler: (*Service).Install},
	dispatch.Route[*Service]{Verb: dispatch.VerbConfigure, Summary: "configure forwarding and pf NAT on the NVA over SSH", Handler: (*Service).Configure},
	dispatch.Route[*Service]{Verb: dispatch.VerbDelete, Summary: "delete the NVA and its network resources", Handler: (*Service).Delete},
	dispatch.Route[*Service]{Verb: dispatch.VerbShow, Summary: "show the NVA power state, addresses and pf status", Handler: (*Service).Show},
	dispatch.Route[*Service]{Verb: dispatch.VerbCheckDeps, Summary: "check for az and ssh", Handler: (*Service).CheckDeps},
)

// Command is the `anvil nva` command
var Command = Dispatcher.Command(build)

func build(ctx context.Context, cmd *cli.Command) (*Service, error) {
	env, err := app.NewEnv(ctx, cmd)
	if err != nil {
		return nil, err
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewService(env, secrets.NewKeyStore(dir), DialSSH), nil
}
