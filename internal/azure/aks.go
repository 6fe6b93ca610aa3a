package azure

import (
	"context"
	"fmt"
	"strconv"
)

// ManagedCluster is the subset of az aks show output anvil reports
type ManagedCluster struct {
	Name                     string `json:"name"`
	Location                 string `json:"location"`
	KubernetesVersion        string `json:"kubernetesVersion"`
	CurrentKubernetesVersion string `json:"currentKubernetesVersion"` // always major.minor.patch
	ProvisioningState        string `json:"provisioningState"`
	Fqdn                     string `json:"fqdn"`
	NodeResourceGroup        string `json:"nodeResourceGroup"`
	PowerState               struct {
		Code string `json:"code"`
	} `json:"powerState"`
	NetworkProfile struct {
		NetworkPlugin string `json:"networkPlugin"`
		OutboundType  string `json:"outboundType"`
	} `json:"networkProfile"`
	AgentPoolProfiles []AgentPool `json:"agentPoolProfiles"`
}

// AgentPool is a node pool as reported by az aks show and az aks nodepool show
type AgentPool struct {
	Name              string   `json:"name"`
	Count             int      `json:"count"`
	VMSize            string   `json:"vmSize"`
	Mode              string   `json:"mode"`
	NodeTaints        []string `json:"nodeTaints"`
	ProvisioningState string   `json:"provisioningState"`
}

// ClusterOptions configures az aks create
type ClusterOptions struct {
	ResourceGroup     string
	Name              string
	Location          string
	KubernetesVersion string
	NodeCount         int
	NodeVMSize        string
	NetworkPlugin     string
	OutboundType      string
	SubnetID          string // empty lets AKS create its own vnet
	Tags              []string
}

// CreateCluster creates an AKS cluster with a system node pool
func (c *Client) CreateCluster(ctx context.Context, opts ClusterOptions) error {
	args := []string{
		"aks", "create",
		"--resource-group", opts.ResourceGroup,
		"--name", opts.Name,
		"--location", opts.Location,
		"--node-count", strconv.Itoa(opts.NodeCount),
		"--node-vm-size", opts.NodeVMSize,
		"--network-plugin", opts.NetworkPlugin,
		"--outbound-type", opts.OutboundType,
		"--generate-ssh-keys",
	}
	if opts.KubernetesVersion != "" {
		args = append(args, "--kubernetes-version", opts.KubernetesVersion)
	}
	if opts.SubnetID != "" {
		args = append(args, "--vnet-subnet-id", opts.SubnetID)
	}
	args = withTags(args, opts.Tags)

	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create AKS cluster %s: %w", opts.Name, err)
	}
	return nil
}

// DeleteCluster deletes an AKS cluster and waits for completion
func (c *Client) DeleteCluster(ctx context.Context, resourceGroup, name string) error {
	if err := c.mutate(ctx, "aks", "delete", "--resource-group", resourceGroup, "--name", name, "--yes"); err != nil {
		return fmt.Errorf("failed to delete AKS cluster %s: %w", name, err)
	}
	return nil
}

// ShowCluster returns the cluster. Absence is reported as an error for which
// IsNotFound is true.
func (c *Client) ShowCluster(ctx context.Context, resourceGroup, name string) (*ManagedCluster, error) {
	var mc ManagedCluster
	if err := c.runJSON(ctx, &mc, "aks", "show", "--resource-group", resourceGroup, "--name", name); err != nil {
		return nil, err
	}
	return &mc, nil
}

// MergeCredentials merges the cluster's kubeconfig into the user's
// kubeconfig, replacing an existing entry with the same name
func (c *Client) MergeCredentials(ctx context.Context, resourceGroup, name string, admin bool) error {
	args := []string{"aks", "get-credentials", "--resource-group", resourceGroup, "--name", name, "--overwrite-existing"}
	if admin {
		args = append(args, "--admin")
	}
	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to get credentials for %s: %w", name, err)
	}
	return nil
}

// Kubeconfig returns the cluster's kubeconfig without touching any file
func (c *Client) Kubeconfig(ctx context.Context, resourceGroup, name string, admin bool) ([]byte, error) {
	args := []string{"aks", "get-credentials", "--resource-group", resourceGroup, "--name", name, "--file", "-"}
	if admin {
		args = append(args, "--admin")
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig for %s: %w", name, err)
	}
	return []byte(out), nil
}

// NodePoolOptions configures az aks nodepool add
type NodePoolOptions struct {
	ResourceGroup string
	Cluster       string
	Name          string
	NodeCount     int
	VMSize        string
	Taints        []string
	Labels        []string
}

// AddNodePool adds a user node pool to a cluster
func (c *Client) AddNodePool(ctx context.Context, opts NodePoolOptions) error {
	args := []string{
		"aks", "nodepool", "add",
		"--resource-group", opts.ResourceGroup,
		"--cluster-name", opts.Cluster,
		"--name", opts.Name,
		"--node-count", strconv.Itoa(opts.NodeCount),
		"--node-vm-size", opts.VMSize,
		"--mode", "User",
	}
	if len(opts.Taints) > 0 {
		args = append(append(args, "--node-taints"), opts.Taints...)
	}
	if len(opts.Labels) > 0 {
		args = append(append(args, "--labels"), opts.Labels...)
	}
	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to add node pool %s: %w", opts.Name, err)
	}
	return nil
}

// DeleteNodePool removes a node pool from a cluster
func (c *Client) DeleteNodePool(ctx context.Context, resourceGroup, cluster, name string) error {
	if err := c.mutate(ctx, "aks", "nodepool", "delete",
		"--resource-group", resourceGroup, "--cluster-name", cluster, "--name", name); err != nil {
		return fmt.Errorf("failed to delete node pool %s: %w", name, err)
	}
	return nil
}

// ShowNodePool returns a node pool of a cluster
func (c *Client) ShowNodePool(ctx context.Context, resourceGroup, cluster, name string) (*AgentPool, error) {
	var pool AgentPool
	if err := c.runJSON(ctx, &pool, "aks", "nodepool", "show",
		"--resource-group", resourceGroup, "--cluster-name", cluster, "--name", name); err != nil {
		return nil, err
	}
	return &pool, nil
}
