package vnet

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
)

// Dispatcher routes the vnet actions
var Dispatcher = dispatch.New("vnet", "anvil vnet: manage the virtual network and its subnets",
	dispatch.Route[*Service]{Verb: dispatch.VerbInstall, Summary: "create the virtual network, AKS subnet and NVA subnet", Handler: (*Service).Install},
	dispatch.Route[*Service]{Verb: dispatch.VerbDelete, Summary: "delete the virtual network", Handler: (*Service).Delete},
	dispatch.Route[*Service]{Verb: dispatch.VerbShow, Summary: "show the address space and subnets", Handler: (*Service).Show},
	dispatch.Route[*Service]{Verb: dispatch.VerbCheckDeps, Summary: "check for az", Handler: (*Service).CheckDeps},
)

// Command is the `anvil vnet` command
var Command = Dispatcher.Command(build)

func build(ctx context.Context, cmd *cli.Command) (*Service, error) {
	env, err := app.NewEnv(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return NewService(env), nil
}
