package azure

import (
	"context"
	"fmt"
)

// VirtualMachine is the subset of az vm show -d output anvil reports
type VirtualMachine struct {
	Name              string `json:"name"`
	Location          string `json:"location"`
	PowerState        string `json:"powerState"`
	PublicIps         string `json:"publicIps"`
	PrivateIps        string `json:"privateIps"`
	ProvisioningState string `json:"provisioningState"`
	HardwareProfile   struct {
		VMSize string `json:"vmSize"`
	} `json:"hardwareProfile"`
}

// VMOptions configures az vm create
type VMOptions struct {
	ResourceGroup string
	Name          string
	Location      string
	Image         string
	Size          string
	AdminUser     string
	SSHPublicKey  string
	NIC           string
	Tags          []string
}

// CreateVM creates a VM attached to an existing NIC. The OS
// disk is deleted with the VM.
func (c *Client) CreateVM(ctx context.Context, opts VMOptions) error {
	args := withTags([]string{"vm", "create",
		"--resource-group", opts.ResourceGroup, "--name", opts.Name, "--location", opts.Location,
		"--image", opts.Image, "--size", opts.Size,
		"--admin-username", opts.AdminUser, "--ssh-key-values", opts.SSHPublicKey,
		"--nics", opts.NIC,
		"--os-disk-delete-option", "Delete"}, opts.Tags)
	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create VM %s: %w", opts.Name, err)
	}
	return nil
}

// DeleteVM deletes a VM
func (c *Client) DeleteVM(ctx context.Context, resourceGroup, name string) error {
	if err := c.mutate(ctx, "vm", "delete", "--resource-group", resourceGroup, "--name", name, "--yes"); err != nil {
		return fmt.Errorf("failed to delete VM %s: %w", name, err)
	}
	return nil
}

// ShowVM returns a VM with its power state and addresses
func (c *Client) ShowVM(ctx context.Context, resourceGroup, name string) (*VirtualMachine, error) {
	var vm VirtualMachine
	if err := c.runJSON(ctx, &vm, "vm", "show", "--show-details", "--resource-group", resourceGroup, "--name", name); err != nil {
		return nil, err
	}
	return &vm, nil
}

// AcceptImageTerms accepts the marketplace terms of an image URN
func (c *Client) AcceptImageTerms(ctx context.Context, urn string) error {
	if err := c.mutate(ctx, "vm", "image", "terms", "accept", "--urn", urn); err != nil {
		return fmt.Errorf("failed to accept terms for %s: %w", urn, err)
	}
	return nil
}
