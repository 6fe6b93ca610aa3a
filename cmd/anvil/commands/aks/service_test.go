package aks

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/azure"
	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/config/configtest"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/shell/shelltest"
)

func init() {
	color.NoColor = true
}

const subnetID = "/subscriptions/s/resourceGroups/anvil-rg/providers/Microsoft.Network/virtualNetworks/anvil-vnet/subnets/aks-subnet"

func newTestService(cfg *config.Config, runner *shelltest.Runner) (*Service, *bytes.Buffer) {
	var out bytes.Buffer
	return NewService(&app.Env{
		Config:  cfg,
		Runner:  runner,
		Azure:   azure.NewClient(runner, cfg.Azure.SubscriptionID),
		Out:     &out,
		Confirm: app.AlwaysConfirm,
	}), &out
}

func TestDispatcher_Verbs(t *testing.T) {
	assert.Equal(t, []dispatch.Verb{
		dispatch.VerbInstall, dispatch.VerbDelete, dispatch.VerbShow, dispatch.VerbCredentials, dispatch.VerbCheckDeps,
	}, Dispatcher.Verbs())
	assert.Equal(t, "aks", Command.Name)
}

func TestInstall_AttachesToExistingSubnet(t *testing.T) {
	runner := shelltest.NewRunner().
		On("az group exists", "false\n").
		On("az group create", "").
		On("az network vnet subnet show", subnetID+"\n").
		On("az aks create", "")
	svc, out := newTestService(configtest.New(), runner)

	require.NoError(t, svc.Install(context.Background()))

	assert.Equal(t, "az group create --name anvil-rg --location eastus -o none", runner.Find("az group create"))
	create := runner.Find("az aks create")
	assert.Contains(t, create, "--name anvil-aks")
	assert.Contains(t, create, "--node-count 3")
	assert.Contains(t, create, "--vnet-subnet-id "+subnetID)
	assert.Contains(t, create, "--outbound-type loadBalancer")
	assert.Contains(t, out.String(), "AKS cluster anvil-aks created")
}

func TestInstall_WithoutVNet(t *testing.T) {
	runner := shelltest.NewRunner().
		On("az group exists", "true\n").
		Fail("az network vnet subnet show", 3, "(ResourceNotFound) The Resource 'anvil-vnet' was not found.").
		On("az aks create", "")
	svc, _ := newTestService(configtest.New(), runner)

	require.NoError(t, svc.Install(context.Background()))

	assert.False(t, runner.Called("az group create"))
	assert.NotContains(t, runner.Find("az aks create"), "--vnet-subnet-id")
}

func TestInstall_HonorsOverrides(t *testing.T) {
	cfg := configtest.New()
	cfg.Azure.Location = "westus2"
	cfg.Azure.SubscriptionID = "sub-1"
	cfg.Azure.Tags = "env=dev team=ml"
	cfg.Cluster.KubernetesVersion = "1.30.3"

	runner := shelltest.NewRunner().
		On("az group exists", "false\n").
		On("az group create", "").
		On("az network vnet subnet show", subnetID).
		On("az aks create", "")
	svc, _ := newTestService(cfg, runner)

	require.NoError(t, svc.Install(context.Background()))

	assert.Equal(t, "az group create --name anvil-rg --location westus2 --tags env=dev team=ml -o none --subscription sub-1",
		runner.Find("az group create"))
	create := runner.Find("az aks create")
	assert.Contains(t, create, "--location westus2")
	assert.Contains(t, create, "--kubernetes-version 1.30.3")
}

func TestInstall_UserDefinedRoutingNeedsSubnet(t *testing.T) {
	cfg := configtest.New()
	cfg.Cluster.OutboundType = config.OutboundUserDefinedRouting

	runner := shelltest.NewRunner().
		On("az group exists", "true\n").
		Fail("az network vnet subnet show", 3, "ResourceNotFound")
	svc, _ := newTestService(cfg, runner)

	err := svc.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anvil vnet -x install")
	assert.False(t, runner.Called("az aks create"))
}

func TestInstall_PropagatesAzExitCode(t *testing.T) {
	runner := shelltest.NewRunner().
		On("az group exists", "true\n").
		On("az network vnet subnet show", subnetID).
		Fail("az aks create", 2, "QuotaExceeded")
	svc, _ := newTestService(configtest.New(), runner)

	err := svc.Install(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, dispatch.ExitStatus(err))
}

func TestShow(t *testing.T) {
	runner := shelltest.NewRunner().On("az aks show", `{
  "name": "anvil-aks",
  "location": "eastus",
  "kubernetesVersion": "1.30.3",
  "provisioningState": "Succeeded",
  "fqdn": "anvil-aks-dns.hcp.eastus.azmk8s.io",
  "powerState": {"code": "Running"},
  "networkProfile": {"networkPlugin": "azure", "outboundType": "loadBalancer"},
  "agentPoolProfiles": [
    {"name": "nodepool1", "count": 3, "vmSize": "Standard_D4s_v5", "mode": "System", "provisioningState": "Succeeded"},
    {"name": "gpupool", "count": 1, "vmSize": "Standard_NC6s_v3", "mode": "User", "nodeTaints": ["sku=gpu:NoSchedule"], "provisioningState": "Succeeded"}
  ]
}`)
	svc, out := newTestService(configtest.New(), runner)

	require.NoError(t, svc.Show(context.Background()))
	assert.Contains(t, out.String(), "Succeeded (Running)")
	assert.Contains(t, out.String(), "azure, outbound loadBalancer")
	assert.Regexp(t, `gpupool\s+User\s+1\s+Standard_NC6s_v3\s+sku=gpu:NoSchedule`, out.String())
	assert.Regexp(t, `nodepool1\s+System\s+3\s+Standard_D4s_v5\s+-`, out.String())
}

func TestShow_NotFound(t *testing.T) {
	runner := shelltest.NewRunner().
		Fail("az aks show", 3, "(ResourceNotFound) The Resource 'Microsoft.ContainerService/managedClusters/anvil-aks' was not found.")
	svc, _ := newTestService(configtest.New(), runner)

	err := svc.Show(context.Background())
	require.Error(t, err)
	assert.Equal(t, "AKS cluster anvil-aks not found", err.Error())
	assert.Equal(t, 1, dispatch.ExitStatus(err))
}

func TestDelete(t *testing.T) {
	t.Run("deletes", func(t *testing.T) {
		runner := shelltest.NewRunner().On("az aks delete", "")
		svc, out := newTestService(configtest.New(), runner)

		require.NoError(t, svc.Delete(context.Background()))
		assert.Contains(t, runner.Find("az aks delete"), "--yes")
		assert.Contains(t, out.String(), "deleted")
	})

	t.Run("missing cluster is not an error", func(t *testing.T) {
		runner := shelltest.NewRunner().Fail("az aks delete", 3, "ResourceNotFound")
		svc, out := newTestService(configtest.New(), runner)

		require.NoError(t, svc.Delete(context.Background()))
		assert.Contains(t, out.String(), "does not exist")
	})

	t.Run("declined", func(t *testing.T) {
		runner := shelltest.NewRunner()
		svc, out := newTestService(configtest.New(), runner)
		svc.env.Confirm = func(string) (bool, error) { return false, nil }

		require.NoError(t, svc.Delete(context.Background()))
		assert.Empty(t, runner.Calls())
		assert.Contains(t, out.String(), "Aborted")
	})
}

func TestCredentials(t *testing.T) {
	cfg := configtest.New()
	cfg.Cluster.AdminCredentials = true
	runner := shelltest.NewRunner().On("az aks get-credentials", "")
	svc, _ := newTestService(cfg, runner)

	require.NoError(t, svc.Credentials(context.Background()))
	assert.Equal(t, "az aks get-credentials --resource-group anvil-rg --name anvil-aks --overwrite-existing --admin -o none",
		runner.Find("az aks get-credentials"))
}

func TestCheckDeps(t *testing.T) {
	t.Run("kubectl is optional", func(t *testing.T) {
		runner := shelltest.NewRunner().Install("az").On("az version", `{"azure-cli": "2.64.0"}`)
		svc, out := newTestService(configtest.New(), runner)

		require.NoError(t, svc.CheckDeps(context.Background()))
		assert.Regexp(t, `kubectl\s+NOT FOUND\s+optional`, out.String())
	})

	t.Run("az missing", func(t *testing.T) {
		runner := shelltest.NewRunner().Install("kubectl")
		svc, out := newTestService(configtest.New(), runner)

		err := svc.CheckDeps(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, dispatch.ExitStatus(err))
		assert.Regexp(t, `az\s+NOT FOUND\s+required`, out.String())
	})
}
