package gpu

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/helm"
	"github.com/catalystcommunity/anvil/v1/internal/k8s"
)

// Dispatcher routes the gpu actions
var Dispatcher = dispatch.New("gpu", "anvil gpu: manage the GPU node pool and its NVIDIA drivers",
	dispatch.Route[*Service]{Verb: dispatch.VerbInstall, Summary: "add the tainted GPU node pool and install the device plugin or GPU operator", Handler: (*Service).Install},
	dispatch.Route[*Service]{Verb: dispatch.VerbDelete, Summary: "remove the device plugin, the GPU operator and the node pool", Handler: (*Service).Delete},
	dispatch.Route[*Service]{Verb: dispatch.VerbShow, Summary: "show the node pool and allocatable GPUs per node", Handler: (*Service).Show},
	dispatch.Route[*Service]{Verb: dispatch.VerbCheckDeps, Summary: "check for az and kubectl", Handler: (*Service).CheckDeps},
)

// Command is the `anvil gpu` command
var Command = Dispatcher.Command(build)

func build(ctx context.Context, cmd *cli.Command) (*Service, error) {
	env, err := app.NewEnv(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return NewService(env, k8s.NewClientFromKubeconfig, newHelmClient), nil
}

func newHelmClient(kubeconfig []byte, namespace string) (ChartClient, error) {
	client, err := helm.NewClient(kubeconfig, namespace)
	if err != nil {
		return nil, err
	}
	return client, nil
}
