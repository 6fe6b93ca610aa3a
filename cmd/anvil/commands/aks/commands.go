package aks

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
)

// Dispatcher routes the aks actions
var Dispatcher = dispatch.New("aks", "anvil aks: manage the AKS cluster",
	dispatch.Route[*Service]{Verb: dispatch.VerbInstall, Summary: "create the resource group and the AKS cluster", Handler: (*Service).Install},
	dispatch.Route[*Service]{Verb: dispatch.VerbDelete, Summary: "delete the AKS cluster", Handler: (*Service).Delete},
	dispatch.Route[*Service]{Verb: dispatch.VerbShow, Summary: "show the AKS cluster and its node pools", Handler: (*Service).Show},
	dispatch.Route[*Service]{Verb: dispatch.VerbCredentials, Summary: "merge the cluster credentials into ~/.kube/config", Handler: (*Service).Credentials},
	dispatch.Route[*Service]{Verb: dispatch.VerbCheckDeps, Summary: "check for az and kubectl", Handler: (*Service).CheckDeps},
)

// Command is the `anvil aks` command
var Command = Dispatcher.Command(build)

func build(ctx context.Context, cmd *cli.Command) (*Service, error) {
	env, err := app.NewEnv(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return NewService(env), nil
}
