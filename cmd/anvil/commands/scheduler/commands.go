package scheduler

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/k8s"
)

// Dispatcher routes the scheduler actions
var Dispatcher = dispatch.New("scheduler", "anvil scheduler: manage the secondary bin-packing scheduler",
	dispatch.Route[*Service]{Verb: dispatch.VerbInstall, Summary: "deploy the scheduler with its RBAC and profile", Handler: (*Service).Install},
	dispatch.Route[*Service]{Verb: dispatch.VerbDelete, Summary: "remove the scheduler and its RBAC", Handler: (*Service).Delete},
	dispatch.Route[*Service]{Verb: dispatch.VerbShow, Summary: "show scheduler readiness and the rendered profile", Handler: (*Service).Show},
	dispatch.Route[*Service]{Verb: dispatch.VerbCheckDeps, Summary: "check for az and kubectl", Handler: (*Service).CheckDeps},
)

// Command is the `anvil scheduler` command
var Command = Dispatcher.Command(build)

func build(ctx context.Context, cmd *cli.Command) (*Service, error) {
	env, err := app.NewEnv(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return NewService(env, k8s.NewClientFromKubeconfig), nil
}
