// Package configtest provides configurations for tests that must not
// depend on the environment of the test process.
package configtest

import "github.com/catalystcommunity/anvil/v1/internal/config"

// New returns a configuration holding the documented defaults
func New() *config.Config {
	return &config.Config{
		Azure: config.AzureConfig{
			Location:      "eastus",
			ResourceGroup: "anvil-rg",
		},
		Cluster: config.ClusterConfig{
			Name:          "anvil-aks",
			NodeCount:     3,
			NodeVMSize:    "Standard_D4s_v5",
			NetworkPlugin: "azure",
			OutboundType:  config.OutboundLoadBalancer,
		},
		Network: config.NetworkConfig{
			VNetName:      "anvil-vnet",
			VNetCIDR:      "10.0.0.0/8",
			AKSSubnetName: "aks-subnet",
			AKSSubnetCIDR: "10.240.0.0/16",
			NVASubnetName: "nva-subnet",
			NVASubnetCIDR: "10.241.0.0/24",
		},
		NVA: config.NVAConfig{
			Name:       "anvil-nva",
			VMSize:     "Standard_B2s",
			Image:      "thefreebsdfoundation:freebsd-14_1:14_1-release-amd64-gen2-zfs:latest",
			AdminUser:  "azureuser",
			PrivateIP:  "10.241.0.4",
			SSHSource:  "*",
			ExternalIF: "hn0",
			BootWait:   "90s",
		},
		GPU: config.GPUConfig{
			PoolName:        "gpupool",
			VMSize:          "Standard_NC6s_v3",
			NodeCount:       1,
			Taint:           "sku=gpu:NoSchedule",
			DriverMode:      config.DriverModeDevicePlugin,
			PluginImage:     "nvcr.io/nvidia/k8s-device-plugin:v0.17.0",
			Namespace:       "gpu-resources",
			OperatorVersion: "v24.9.2",
		},
		Scheduler: config.SchedulerConfig{
			Name:      "bin-packing-scheduler",
			Namespace: "kube-system",
			Strategy:  config.StrategyMostAllocated,
		},
		MinAzVersion: "2.61.0",
		LogLevel:     "info",
	}
}
