package azure

import (
	"context"
	"fmt"
	"strconv"
)

// VirtualNetwork is the subset of az network vnet show output anvil reports
type VirtualNetwork struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	AddressSpace struct {
		AddressPrefixes []string `json:"addressPrefixes"`
	} `json:"addressSpace"`
	Subnets []Subnet `json:"subnets"`
}

// Subnet is a subnet of a VirtualNetwork
type Subnet struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AddressPrefix string `json:"addressPrefix"`
	RouteTable    *struct {
		ID string `json:"id"`
	} `json:"routeTable"`
}

// CreateVNet creates a virtual network with a single address space
func (c *Client) CreateVNet(ctx context.Context, resourceGroup, name, cidr, location string, tags []string) error {
	args := withTags([]string{"network", "vnet", "create",
		"--resource-group", resourceGroup, "--name", name,
		"--address-prefixes", cidr, "--location", location}, tags)
	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create vnet %s: %w", name, err)
	}
	return nil
}

// CreateSubnet adds a subnet to a virtual network
func (c *Client) CreateSubnet(ctx context.Context, resourceGroup, vnet, name, cidr string) error {
	if err := c.mutate(ctx, "network", "vnet", "subnet", "create",
		"--resource-group", resourceGroup, "--vnet-name", vnet,
		"--name", name, "--address-prefixes", cidr); err != nil {
		return fmt.Errorf("failed to create subnet %s: %w", name, err)
	}
	return nil
}

// DeleteVNet deletes a virtual network and its subnets
func (c *Client) DeleteVNet(ctx context.Context, resourceGroup, name string) error {
	if err := c.mutate(ctx, "network", "vnet", "delete", "--resource-group", resourceGroup, "--name", name); err != nil {
		return fmt.Errorf("failed to delete vnet %s: %w", name, err)
	}
	return nil
}

// ShowVNet returns a virtual network with its subnets
func (c *Client) ShowVNet(ctx context.Context, resourceGroup, name string) (*VirtualNetwork, error) {
	var vnet VirtualNetwork
	if err := c.runJSON(ctx, &vnet, "network", "vnet", "show", "--resource-group", resourceGroup, "--name", name); err != nil {
		return nil, err
	}
	return &vnet, nil
}

// SubnetID returns the resource ID of a subnet
func (c *Client) SubnetID(ctx context.Context, resourceGroup, vnet, name string) (string, error) {
	return c.query(ctx, "id", "network", "vnet", "subnet", "show",
		"--resource-group", resourceGroup, "--vnet-name", vnet, "--name", name)
}

// AssociateRouteTable attaches a route table to a subnet
func (c *Client) AssociateRouteTable(ctx context.Context, resourceGroup, vnet, subnet, routeTable string) error {
	if err := c.mutate(ctx, "network", "vnet", "subnet", "update",
		"--resource-group", resourceGroup, "--vnet-name", vnet, "--name", subnet,
		"--route-table", routeTable); err != nil {
		return fmt.Errorf("failed to associate route table %s with subnet %s: %w", routeTable, subnet, err)
	}
	return nil
}

// DissociateRouteTable detaches whatever route table a subnet has
func (c *Client) DissociateRouteTable(ctx context.Context, resourceGroup, vnet, subnet string) error {
	if err := c.mutate(ctx, "network", "vnet", "subnet", "update",
		"--resource-group", resourceGroup, "--vnet-name", vnet, "--name", subnet,
		"--remove", "routeTable"); err != nil {
		return fmt.Errorf("failed to remove route table from subnet %s: %w", subnet, err)
	}
	return nil
}

// CreatePublicIP creates a static Standard SKU public IP
func (c *Client) CreatePublicIP(ctx context.Context, resourceGroup, name, location string, tags []string) error {
	args := withTags([]string{"network", "public-ip", "create",
		"--resource-group", resourceGroup, "--name", name, "--location", location,
		"--sku", "Standard", "--allocation-method", "Static"}, tags)
	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create public IP %s: %w", name, err)
	}
	return nil
}

// PublicIPAddress returns the address assigned to a public IP resource
func (c *Client) PublicIPAddress(ctx context.Context, resourceGroup, name string) (string, error) {
	return c.query(ctx, "ipAddress", "network", "public-ip", "show", "--resource-group", resourceGroup, "--name", name)
}

// DeletePublicIP deletes a public IP resource
func (c *Client) DeletePublicIP(ctx context.Context, resourceGroup, name string) error {
	if err := c.mutate(ctx, "network", "public-ip", "delete", "--resource-group", resourceGroup, "--name", name); err != nil {
		return fmt.Errorf("failed to delete public IP %s: %w", name, err)
	}
	return nil
}

// CreateNSG creates a network security group
func (c *Client) CreateNSG(ctx context.Context, resourceGroup, name, location string, tags []string) error {
	args := withTags([]string{"network", "nsg", "create",
		"--resource-group", resourceGroup, "--name", name, "--location", location}, tags)
	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create NSG %s: %w", name, err)
	}
	return nil
}

// NSGRule is an inbound allow rule
type NSGRule struct {
	Name     string
	Priority int
	Protocol string
	Source   string
	Port     int
}

// CreateNSGRule adds an inbound allow rule to a network security group
func (c *Client) CreateNSGRule(ctx context.Context, resourceGroup, nsg string, rule NSGRule) error {
	if err := c.mutate(ctx, "network", "nsg", "rule", "create",
		"--resource-group", resourceGroup, "--nsg-name", nsg, "--name", rule.Name,
		"--priority", strconv.Itoa(rule.Priority),
		"--direction", "Inbound", "--access", "Allow",
		"--protocol", rule.Protocol,
		"--source-address-prefixes", rule.Source,
		"--destination-port-ranges", strconv.Itoa(rule.Port)); err != nil {
		return fmt.Errorf("failed to create NSG rule %s: %w", rule.Name, err)
	}
	return nil
}

// DeleteNSG deletes a network security group
func (c *Client) DeleteNSG(ctx context.Context, resourceGroup, name string) error {
	if err := c.mutate(ctx, "network", "nsg", "delete", "--resource-group", resourceGroup, "--name", name); err != nil {
		return fmt.Errorf("failed to delete NSG %s: %w", name, err)
	}
	return nil
}

// NICOptions configures az network nic create
type NICOptions struct {
	ResourceGroup string
	Name          string
	Location      string
	VNet          string
	Subnet        string
	PrivateIP     string
	PublicIP      string
	NSG           string
	IPForwarding  bool
	Tags          []string
}

// CreateNIC creates a network interface with a static private address
func (c *Client) CreateNIC(ctx context.Context, opts NICOptions) error {
	args := []string{"network", "nic", "create",
		"--resource-group", opts.ResourceGroup, "--name", opts.Name, "--location", opts.Location,
		"--vnet-name", opts.VNet, "--subnet", opts.Subnet,
		"--private-ip-address", opts.PrivateIP}
	if opts.PublicIP != "" {
		args = append(args, "--public-ip-address", opts.PublicIP)
	}
	if opts.NSG != "" {
		args = append(args, "--network-security-group", opts.NSG)
	}
	if opts.IPForwarding {
		args = append(args, "--ip-forwarding", "true")
	}
	args = withTags(args, opts.Tags)

	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create NIC %s: %w", opts.Name, err)
	}
	return nil
}

// DeleteNIC deletes a network interface
func (c *Client) DeleteNIC(ctx context.Context, resourceGroup, name string) error {
	if err := c.mutate(ctx, "network", "nic", "delete", "--resource-group", resourceGroup, "--name", name); err != nil {
		return fmt.Errorf("failed to delete NIC %s: %w", name, err)
	}
	return nil
}

// CreateRouteTable creates an empty route table
func (c *Client) CreateRouteTable(ctx context.Context, resourceGroup, name, location string, tags []string) error {
	args := withTags([]string{"network", "route-table", "create",
		"--resource-group", resourceGroup, "--name", name, "--location", location}, tags)
	if err := c.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create route table %s: %w", name, err)
	}
	return nil
}

// CreateApplianceRoute routes prefix through a virtual appliance at nextHop
func (c *Client) CreateApplianceRoute(ctx context.Context, resourceGroup, table, name, prefix, nextHop string) error {
	if err := c.mutate(ctx, "network", "route-table", "route", "create",
		"--resource-group", resourceGroup, "--route-table-name", table, "--name", name,
		"--address-prefix", prefix,
		"--next-hop-type", "VirtualAppliance", "--next-hop-ip-address", nextHop); err != nil {
		return fmt.Errorf("failed to create route %s: %w", name, err)
	}
	return nil
}

// DeleteRouteTable deletes a route table
func (c *Client) DeleteRouteTable(ctx context.Context, resourceGroup, name string) error {
	if err := c.mutate(ctx, "network", "route-table", "delete", "--resource-group", resourceGroup, "--name", name); err != nil {
		return fmt.Errorf("failed to delete route table %s: %w", name, err)
	}
	return nil
}
