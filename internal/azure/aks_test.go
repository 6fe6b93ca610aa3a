package azure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalystcommunity/anvil/v1/internal/shell/shelltest"
)

func TestCreateCluster(t *testing.T) {
	runner := shelltest.NewRunner().On("az aks create", "")
	err := NewClient(runner, "").CreateCluster(context.Background(), ClusterOptions{
		ResourceGroup:     "rg",
		Name:              "aks",
		Location:          "eastus",
		KubernetesVersion: "1.30.3",
		NodeCount:         3,
		NodeVMSize:        "Standard_D4s_v5",
		NetworkPlugin:     "azure",
		OutboundType:      "userDefinedRouting",
		SubnetID:          "/subscriptions/x/subnets/aks-subnet",
		Tags:              []string{"env=dev"},
	})
	require.NoError(t, err)

	call := runner.Find("az aks create")
	assert.Contains(t, call, "--node-count 3")
	assert.Contains(t, call, "--kubernetes-version 1.30.3")
	assert.Contains(t, call, "--vnet-subnet-id /subscriptions/x/subnets/aks-subnet")
	assert.Contains(t, call, "--outbound-type userDefinedRouting")
	assert.Contains(t, call, "--tags env=dev")
}

func TestCreateCluster_OptionalFlagsOmitted(t *testing.T) {
	runner := shelltest.NewRunner().On("az aks create", "")
	require.NoError(t, NewClient(runner, "").CreateCluster(context.Background(), ClusterOptions{
		ResourceGroup: "rg", Name: "aks", Location: "eastus", NodeCount: 1,
		NodeVMSize: "Standard_D4s_v5", NetworkPlugin: "azure", OutboundType: "loadBalancer",
	}))

	call := runner.Find("az aks create")
	assert.NotContains(t, call, "--kubernetes-version")
	assert.NotContains(t, call, "--vnet-subnet-id")
	assert.NotContains(t, call, "--tags")
}

func TestShowCluster(t *testing.T) {
	runner := shelltest.NewRunner().On("az aks show", `{
  "name": "aks",
  "location": "eastus",
  "kubernetesVersion": "1.30",
  "currentKubernetesVersion": "1.30.3",
  "provisioningState": "Succeeded",
  "powerState": {"code": "Running"},
  "fqdn": "aks-dns.hcp.eastus.azmk8s.io",
  "networkProfile": {"networkPlugin": "azure", "outboundType": "loadBalancer"},
  "agentPoolProfiles": [
    {"name": "nodepool1", "count": 3, "vmSize": "Standard_D4s_v5", "mode": "System"},
    {"name": "gpupool", "count": 1, "vmSize": "Standard_NC6s_v3", "mode": "User", "nodeTaints": ["sku=gpu:NoSchedule"]}
  ]
}`)

	mc, err := NewClient(runner, "").ShowCluster(context.Background(), "rg", "aks")
	require.NoError(t, err)
	assert.Equal(t, "1.30", mc.KubernetesVersion)
	assert.Equal(t, "1.30.3", mc.CurrentKubernetesVersion)
	assert.Equal(t, "Running", mc.PowerState.Code)
	require.Len(t, mc.AgentPoolProfiles, 2)
	assert.Equal(t, []string{"sku=gpu:NoSchedule"}, mc.AgentPoolProfiles[1].NodeTaints)
	assert.Equal(t, "az aks show --resource-group rg --name aks -o json", runner.Calls()[0])
}

func TestShowCluster_NotFound(t *testing.T) {
	runner := shelltest.NewRunner().Fail("az aks show", 3,
		"ERROR: (ResourceNotFound) The Resource 'Microsoft.ContainerService/managedClusters/aks' under resource group 'rg' was not found.")

	_, err := NewClient(runner, "").ShowCluster(context.Background(), "rg", "aks")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestShowCluster_BadJSON(t *testing.T) {
	runner := shelltest.NewRunner().On("az aks show", "not json")
	_, err := NewClient(runner, "").ShowCluster(context.Background(), "rg", "aks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode az aks show output")
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	runner := shelltest.NewRunner().
		On("az aks get-credentials --resource-group rg --name aks --file -", "apiVersion: v1\nkind: Config\n").
		On("az aks get-credentials --resource-group rg --name aks --overwrite-existing", "")
	client := NewClient(runner, "")

	data, err := client.Kubeconfig(ctx, "rg", "aks", true)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: Config")
	assert.Contains(t, runner.Find("az aks get-credentials --resource-group rg --name aks --file -"), "--admin")

	require.NoError(t, client.MergeCredentials(ctx, "rg", "aks", false))
	assert.NotContains(t, runner.Find("az aks get-credentials --resource-group rg --name aks --overwrite-existing"), "--admin")
}

func TestNodePools(t *testing.T) {
	ctx := context.Background()
	runner := shelltest.NewRunner().
		On("az aks nodepool add", "").
		On("az aks nodepool delete", "").
		On("az aks nodepool show", `{"name":"gpupool","count":2,"vmSize":"Standard_NC6s_v3","provisioningState":"Succeeded"}`)
	client := NewClient(runner, "")

	require.NoError(t, client.AddNodePool(ctx, NodePoolOptions{
		ResourceGroup: "rg", Cluster: "aks", Name: "gpupool", NodeCount: 2,
		VMSize: "Standard_NC6s_v3", Taints: []string{"sku=gpu:NoSchedule"}, Labels: []string{"accelerator=nvidia"},
	}))
	call := runner.Find("az aks nodepool add")
	assert.Contains(t, call, "--node-taints sku=gpu:NoSchedule")
	assert.Contains(t, call, "--labels accelerator=nvidia")
	assert.Contains(t, call, "--mode User")

	pool, err := client.ShowNodePool(ctx, "rg", "aks", "gpupool")
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Count)

	require.NoError(t, client.DeleteNodePool(ctx, "rg", "aks", "gpupool"))
	assert.True(t, runner.Called("az aks nodepool delete --resource-group rg --cluster-name aks --name gpupool"))
}
