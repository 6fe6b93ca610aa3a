package vnet

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

func TestInstall(t *testing.T) {
	runner := shelltest.NewRunner().
		On("az group exists", "true").
		On("az network vnet create", "").
		On("az network vnet subnet create", "")
	svc, out := newTestService(configtest.New(), runner)

	require.NoError(t, svc.Install(context.Background()))

	assert.Equal(t, []string{
		"az group exists --name anvil-rg",
		"az network vnet create --resource-group anvil-rg --name anvil-vnet --address-prefixes 10.0.0.0/8 --location eastus -o none",
		"az network vnet subnet create --resource-group anvil-rg --vnet-name anvil-vnet --name aks-subnet --address-prefixes 10.240.0.0/16 -o none",
		"az network vnet subnet create --resource-group anvil-rg --vnet-name anvil-vnet --name nva-subnet --address-prefixes 10.241.0.0/24 -o none",
	}, runner.Calls())
	assert.Contains(t, out.String(), "Virtual network anvil-vnet (10.0.0.0/8) created")
}

func TestInstall_StopsOnFailure(t *testing.T) {
	runner := shelltest.NewRunner().
		On("az group exists", "true").
		Fail("az network vnet create", 1, "InUseSubnetCannotBeDeleted")
	svc, _ := newTestService(configtest.New(), runner)

	require.Error(t, svc.Install(context.Background()))
	assert.False(t, runner.Called("az network vnet subnet create"))
}

func TestShow(t *testing.T) {
	runner := shelltest.NewRunner().On("az network vnet show", `{
  "name": "anvil-vnet",
  "location": "eastus",
  "addressSpace": {"addressPrefixes": ["10.0.0.0/8"]},
  "subnets": [
    {"name": "aks-subnet", "addressPrefix": "10.240.0.0/16", "routeTable": {"id": "/subscriptions/s/resourceGroups/anvil-rg/providers/Microsoft.Network/routeTables/anvil-nva-rt"}},
    {"name": "nva-subnet", "addressPrefix": "10.241.0.0/24"}
  ]
}`)
	svc, out := newTestService(configtest.New(), runner)

	require.NoError(t, svc.Show(context.Background()))
	assert.Regexp(t, `Address space:\s+10.0.0.0/8`, out.String())
	assert.Regexp(t, `aks-subnet\s+10.240.0.0/16\s+anvil-nva-rt`, out.String())
	assert.Regexp(t, `nva-subnet\s+10.241.0.0/24\s+-`, out.String())
}

func TestShow_NotFound(t *testing.T) {
	runner := shelltest.NewRunner().Fail("az network vnet show", 3, "(ResourceNotFound) Resource anvil-vnet was not found")
	svc, _ := newTestService(configtest.New(), runner)

	err := svc.Show(context.Background())
	require.Error(t, err)
	assert.Equal(t, "virtual network anvil-vnet not found", err.Error())
	assert.Equal(t, 1, dispatch.ExitStatus(err))
}

func TestDelete(t *testing.T) {
	runner := shelltest.NewRunner().On("az network vnet delete", "")
	svc, out := newTestService(configtest.New(), runner)

	require.NoError(t, svc.Delete(context.Background()))
	assert.Equal(t, "az network vnet delete --resource-group anvil-rg --name anvil-vnet -o none", runner.Find("az network vnet delete"))
	assert.Contains(t, out.String(), "deleted")
}

func TestDelete_InUse(t *testing.T) {
	runner := shelltest.NewRunner().Fail("az network vnet delete", 1, "InUseSubnetCannotBeDeleted")
	svc, _ := newTestService(configtest.New(), runner)

	err := svc.Delete(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InUseSubnetCannotBeDeleted")
}

func TestCheckDeps(t *testing.T) {
	runner := shelltest.NewRunner().Install("az").On("az version", `{"azure-cli": "2.40.0"}`)
	svc, out := newTestService(configtest.New(), runner)

	err := svc.CheckDeps(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, dispatch.ExitStatus(err))
	assert.Contains(t, out.String(), "TOO OLD")
}
