package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/catalystcommunity/anvil/v1/internal/network"
)

// Config is the effective anvil configuration. It is built once at startup
// by Load and handed to every service by value of its pointer; nothing
// mutates it afterwards.
//
// Every leaf carries the environment variable that overrides it. The yaml
// keys are the config file layout.
type Config struct {
	Azure     AzureConfig     `yaml:"azure"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Network   NetworkConfig   `yaml:"network"`
	NVA       NVAConfig       `yaml:"nva"`
	GPU       GPUConfig       `yaml:"gpu"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	MinAzVersion string `yaml:"min_az_version" env:"MIN_AZ_VERSION" default:"2.61.0"`
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL" default:"info"`
	AssumeYes    bool   `yaml:"assume_yes" env:"ASSUME_YES"`
}

// AzureConfig holds subscription wide settings
type AzureConfig struct {
	SubscriptionID string `yaml:"subscription_id" env:"SUBSCRIPTION_ID"`
	Location       string `yaml:"location" env:"LOCATION" default:"eastus"`
	ResourceGroup  string `yaml:"resource_group" env:"RESOURCE_GROUP" default:"anvil-rg"`
	Tags           string `yaml:"tags" env:"TAGS"` // space separated key=value pairs
}

// ClusterConfig describes the AKS cluster and its system node pool
type ClusterConfig struct {
	Name              string `yaml:"name" env:"CLUSTER_NAME" default:"anvil-aks"`
	KubernetesVersion string `yaml:"kubernetes_version" env:"KUBERNETES_VERSION"`
	NodeCount         int    `yaml:"node_count" env:"NODE_COUNT" default:"3"`
	NodeVMSize        string `yaml:"node_vm_size" env:"NODE_VM_SIZE" default:"Standard_D4s_v5"`
	NetworkPlugin     string `yaml:"network_plugin" env:"NETWORK_PLUGIN" default:"azure"`
	OutboundType      string `yaml:"outbound_type" env:"OUTBOUND_TYPE" default:"loadBalancer"`
	AdminCredentials  bool   `yaml:"admin_credentials" env:"ADMIN_CREDENTIALS"`
}

// NetworkConfig describes the virtual network and its two subnets
type NetworkConfig struct {
	VNetName      string `yaml:"vnet_name" env:"VNET_NAME" default:"anvil-vnet"`
	VNetCIDR      string `yaml:"vnet_cidr" env:"VNET_CIDR" default:"10.0.0.0/8"`
	AKSSubnetName string `yaml:"aks_subnet_name" env:"AKS_SUBNET_NAME" default:"aks-subnet"`
	AKSSubnetCIDR string `yaml:"aks_subnet_cidr" env:"AKS_SUBNET_CIDR" default:"10.240.0.0/16"`
	NVASubnetName string `yaml:"nva_subnet_name" env:"NVA_SUBNET_NAME" default:"nva-subnet"`
	NVASubnetCIDR string `yaml:"nva_subnet_cidr" env:"NVA_SUBNET_CIDR" default:"10.241.0.0/24"`
}

// NVAConfig describes the FreeBSD network virtual appliance
type NVAConfig struct {
	Name       string `yaml:"name" env:"NVA_NAME" default:"anvil-nva"`
	VMSize     string `yaml:"vm_size" env:"NVA_VM_SIZE" default:"Standard_B2s"`
	Image      string `yaml:"image" env:"NVA_IMAGE" default:"thefreebsdfoundation:freebsd-14_1:14_1-release-amd64-gen2-zfs:latest"`
	SkipTerms  bool   `yaml:"skip_terms" env:"NVA_SKIP_TERMS"`
	AdminUser  string `yaml:"admin_user" env:"NVA_ADMIN_USER" default:"azureuser"`
	PrivateIP  string `yaml:"private_ip" env:"NVA_PRIVATE_IP" default:"10.241.0.4"`
	SSHKey     string `yaml:"ssh_key" env:"NVA_SSH_KEY"`
	SSHSource  string `yaml:"ssh_source" env:"NVA_SSH_SOURCE" default:"'*'"` // defaults are parsed as YAML
	KnownHosts string `yaml:"known_hosts" env:"NVA_KNOWN_HOSTS"`
	ExternalIF string `yaml:"external_if" env:"NVA_EXTERNAL_IF" default:"hn0"`
	BootWait   string `yaml:"boot_wait" env:"NVA_BOOT_WAIT" default:"90s"`
}

// GPUConfig describes the GPU node pool and how drivers reach it
type GPUConfig struct {
	PoolName        string `yaml:"pool_name" env:"GPU_POOL_NAME" default:"gpupool"`
	VMSize          string `yaml:"vm_size" env:"GPU_VM_SIZE" default:"Standard_NC6s_v3"`
	NodeCount       int    `yaml:"node_count" env:"GPU_NODE_COUNT" default:"1"`
	Taint           string `yaml:"taint" env:"GPU_TAINT" default:"sku=gpu:NoSchedule"`
	DriverMode      string `yaml:"driver_mode" env:"GPU_DRIVER_MODE" default:"device-plugin"`
	PluginImage     string `yaml:"plugin_image" env:"GPU_PLUGIN_IMAGE" default:"nvcr.io/nvidia/k8s-device-plugin:v0.17.0"`
	Namespace       string `yaml:"namespace" env:"GPU_NAMESPACE" default:"gpu-resources"`
	OperatorVersion string `yaml:"operator_version" env:"GPU_OPERATOR_VERSION" default:"v24.9.2"`
}

// SchedulerConfig describes the secondary bin-packing scheduler
type SchedulerConfig struct {
	Name      string `yaml:"name" env:"SCHEDULER_NAME" default:"bin-packing-scheduler"`
	Namespace string `yaml:"namespace" env:"SCHEDULER_NAMESPACE" default:"kube-system"`
	Image     string `yaml:"image" env:"SCHEDULER_IMAGE"`
	Strategy  string `yaml:"strategy" env:"SCHEDULER_STRATEGY" default:"MostAllocated"`
}

// GPU driver modes
const (
	DriverModeDevicePlugin = "device-plugin"
	DriverModeOperator     = "operator"
)

// Scoring strategies of the NodeResourcesFit plugin
const (
	StrategyMostAllocated            = "MostAllocated"
	StrategyLeastAllocated           = "LeastAllocated"
	StrategyRequestedToCapacityRatio = "RequestedToCapacityRatio"
)

// AKS outbound types
const (
	OutboundLoadBalancer       = "loadBalancer"
	OutboundUserDefinedRouting = "userDefinedRouting"
)

var (
	validDriverModes    = []string{DriverModeDevicePlugin, DriverModeOperator}
	validStrategies     = []string{StrategyMostAllocated, StrategyLeastAllocated, StrategyRequestedToCapacityRatio}
	validOutboundTypes  = []string{OutboundLoadBalancer, OutboundUserDefinedRouting}
	validNetworkPlugins = []string{"azure", "kubenet", "none"}
)

// Validate performs validation on the Config struct
func (c *Config) Validate() error {
	if err := c.Azure.Validate(); err != nil {
		return fmt.Errorf("azure: %w", err)
	}
	if err := c.Cluster.Validate(); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if err := c.NVA.Validate(c.Network.NVASubnetCIDR); err != nil {
		return fmt.Errorf("nva: %w", err)
	}
	if err := c.GPU.Validate(); err != nil {
		return fmt.Errorf("gpu: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if _, err := semver.NewVersion(c.MinAzVersion); err != nil {
		return fmt.Errorf("MIN_AZ_VERSION %q is not a semantic version: %w", c.MinAzVersion, err)
	}
	return nil
}

// Validate checks the azure section
func (a *AzureConfig) Validate() error {
	if a.Location == "" {
		return fmt.Errorf("LOCATION is required")
	}
	if a.ResourceGroup == "" {
		return fmt.Errorf("RESOURCE_GROUP is required")
	}
	for _, tag := range a.TagList() {
		if !strings.Contains(tag, "=") {
			return fmt.Errorf("TAGS entry %q must be key=value", tag)
		}
	}
	return nil
}

// TagList splits TAGS into the key=value arguments --tags expects
func (a *AzureConfig) TagList() []string {
	return strings.Fields(a.Tags)
}

// Validate checks the cluster section
func (c *ClusterConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("CLUSTER_NAME is required")
	}
	if c.NodeCount < 1 {
		return fmt.Errorf("NODE_COUNT must be positive, got %d", c.NodeCount)
	}
	if c.NodeVMSize == "" {
		return fmt.Errorf("NODE_VM_SIZE is required")
	}
	if !contains(validNetworkPlugins, c.NetworkPlugin) {
		return fmt.Errorf("NETWORK_PLUGIN %q must be one of %s", c.NetworkPlugin, strings.Join(validNetworkPlugins, ", "))
	}
	if !contains(validOutboundTypes, c.OutboundType) {
		return fmt.Errorf("OUTBOUND_TYPE %q must be one of %s", c.OutboundType, strings.Join(validOutboundTypes, ", "))
	}
	return nil
}

// Validate checks that both subnets sit inside the vnet and do not overlap
func (n *NetworkConfig) Validate() error {
	if n.VNetName == "" {
		return fmt.Errorf("VNET_NAME is required")
	}
	if n.AKSSubnetName == "" || n.NVASubnetName == "" {
		return fmt.Errorf("subnet names are required")
	}
	if n.AKSSubnetName == n.NVASubnetName {
		return fmt.Errorf("AKS_SUBNET_NAME and NVA_SUBNET_NAME must differ")
	}
	if _, err := network.ParseCIDR(n.VNetCIDR); err != nil {
		return fmt.Errorf("VNET_CIDR: %w", err)
	}
	if err := network.ValidateSubnet(n.VNetCIDR, n.AKSSubnetCIDR); err != nil {
		return fmt.Errorf("AKS_SUBNET_CIDR: %w", err)
	}
	if err := network.ValidateSubnet(n.VNetCIDR, n.NVASubnetCIDR); err != nil {
		return fmt.Errorf("NVA_SUBNET_CIDR: %w", err)
	}
	overlap, err := network.Overlaps(n.AKSSubnetCIDR, n.NVASubnetCIDR)
	if err != nil {
		return err
	}
	if overlap {
		return fmt.Errorf("AKS_SUBNET_CIDR %s overlaps NVA_SUBNET_CIDR %s", n.AKSSubnetCIDR, n.NVASubnetCIDR)
	}
	return nil
}

// Validate checks the NVA section against the subnet it is placed in
func (n *NVAConfig) Validate(subnet string) error {
	if n.Name == "" {
		return fmt.Errorf("NVA_NAME is required")
	}
	if n.Image == "" {
		return fmt.Errorf("NVA_IMAGE is required")
	}
	if n.AdminUser == "" {
		return fmt.Errorf("NVA_ADMIN_USER is required")
	}
	if n.ExternalIF == "" {
		return fmt.Errorf("NVA_EXTERNAL_IF is required")
	}
	if err := network.ValidateHostIP(n.PrivateIP, subnet); err != nil {
		return fmt.Errorf("NVA_PRIVATE_IP: %w", err)
	}
	if _, err := n.BootWaitDuration(); err != nil {
		return err
	}
	return nil
}

// BootWaitDuration parses NVA_BOOT_WAIT. A bare integer is a number of
// seconds.
func (n *NVAConfig) BootWaitDuration() (time.Duration, error) {
	if secs, err := strconv.Atoi(n.BootWait); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("NVA_BOOT_WAIT cannot be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(n.BootWait)
	if err != nil {
		return 0, fmt.Errorf("NVA_BOOT_WAIT %q is not a duration: %w", n.BootWait, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("NVA_BOOT_WAIT cannot be negative")
	}
	return d, nil
}

// Validate checks the gpu section
func (g *GPUConfig) Validate() error {
	if g.PoolName == "" {
		return fmt.Errorf("GPU_POOL_NAME is required")
	}
	if g.NodeCount < 1 {
		return fmt.Errorf("GPU_NODE_COUNT must be positive, got %d", g.NodeCount)
	}
	if !contains(validDriverModes, g.DriverMode) {
		return fmt.Errorf("GPU_DRIVER_MODE %q must be one of %s", g.DriverMode, strings.Join(validDriverModes, ", "))
	}
	if g.Namespace == "" {
		return fmt.Errorf("GPU_NAMESPACE is required")
	}
	if g.Taint != "" {
		if _, _, _, err := ParseTaint(g.Taint); err != nil {
			return err
		}
	}
	return nil
}

// ParseTaint splits a key=value:Effect taint as accepted by
// az aks nodepool add --node-taints
func ParseTaint(taint string) (key, value, effect string, err error) {
	kv, effect, ok := strings.Cut(taint, ":")
	if !ok || effect == "" {
		return "", "", "", fmt.Errorf("taint %q must be key=value:Effect", taint)
	}
	switch effect {
	case "NoSchedule", "PreferNoSchedule", "NoExecute":
	default:
		return "", "", "", fmt.Errorf("taint %q has unknown effect %q", taint, effect)
	}
	key, value, _ = strings.Cut(kv, "=")
	if key == "" {
		return "", "", "", fmt.Errorf("taint %q has an empty key", taint)
	}
	return key, value, effect, nil
}

// Validate checks the scheduler section
func (s *SchedulerConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("SCHEDULER_NAME is required")
	}
	if s.Namespace == "" {
		return fmt.Errorf("SCHEDULER_NAMESPACE is required")
	}
	if !contains(validStrategies, s.Strategy) {
		return fmt.Errorf("SCHEDULER_STRATEGY %q must be one of %s", s.Strategy, strings.Join(validStrategies, ", "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
