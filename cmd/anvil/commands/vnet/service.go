// Package vnet implements the `anvil vnet` script.
package vnet

import (
	"context"
	"fmt"
	"path"
	"text/tabwriter"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/azure"
	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/deps"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/logging"
)

// Service runs the vnet actions
type Service struct {
	env *app.Env
	cfg *config.Config
	az  *azure.Client
}

// NewService creates the vnet service
func NewService(env *app.Env) *Service {
	return &Service{env: env, cfg: env.Config, az: env.Azure}
}

// Install creates the virtual network with the AKS and NVA subnets
func (s *Service) Install(ctx context.Context) error {
	log := logging.FromContext(ctx)
	rg := s.cfg.Azure.ResourceGroup
	n := s.cfg.Network
	tags := s.cfg.Azure.TagList()

	if err := s.az.EnsureGroup(ctx, rg, s.cfg.Azure.Location, tags); err != nil {
		return err
	}

	log.Info("creating virtual network", "name", n.VNetName, "cidr", n.VNetCIDR)
	if err := s.az.CreateVNet(ctx, rg, n.VNetName, n.VNetCIDR, s.cfg.Azure.Location, tags); err != nil {
		return err
	}

	for _, subnet := range []struct{ name, cidr string }{
		{n.AKSSubnetName, n.AKSSubnetCIDR},
		{n.NVASubnetName, n.NVASubnetCIDR},
	} {
		log.Info("creating subnet", "name", subnet.name, "cidr", subnet.cidr)
		if err := s.az.CreateSubnet(ctx, rg, n.VNetName, subnet.name, subnet.cidr); err != nil {
			return err
		}
	}

	fmt.Fprintf(s.env.Out, "Virtual network %s (%s) created with subnets %s and %s\n",
		n.VNetName, n.VNetCIDR, n.AKSSubnetName, n.NVASubnetName)
	return nil
}

// Delete deletes the virtual network after confirmation. Subnets still in
// use by a cluster or the NVA make az fail, and that failure is returned.
func (s *Service) Delete(ctx context.Context) error {
	name := s.cfg.Network.VNetName
	ok, err := s.env.Confirm(fmt.Sprintf("Delete virtual network %s in resource group %s?", name, s.cfg.Azure.ResourceGroup))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.env.Out, "Aborted")
		return nil
	}

	err = s.az.DeleteVNet(ctx, s.cfg.Azure.ResourceGroup, name)
	if azure.IsNotFound(err) {
		fmt.Fprintf(s.env.Out, "Virtual network %s does not exist\n", name)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "Virtual network %s deleted\n", name)
	return nil
}

// Show prints the address space and the subnets
func (s *Service) Show(ctx context.Context) error {
	vnet, err := s.az.ShowVNet(ctx, s.cfg.Azure.ResourceGroup, s.cfg.Network.VNetName)
	if azure.IsNotFound(err) {
		return dispatch.NotFound("virtual network", s.cfg.Network.VNetName)
	}
	if err != nil {
		return fmt.Errorf("failed to show virtual network: %w", err)
	}

	w := tabwriter.NewWriter(s.env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", vnet.Name)
	fmt.Fprintf(w, "Location:\t%s\n", vnet.Location)
	for _, prefix := range vnet.AddressSpace.AddressPrefixes {
		fmt.Fprintf(w, "Address space:\t%s\n", prefix)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SUBNET\tPREFIX\tROUTE TABLE")
	for _, subnet := range vnet.Subnets {
		routeTable := "-"
		if subnet.RouteTable != nil {
			routeTable = path.Base(subnet.RouteTable.ID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", subnet.Name, subnet.AddressPrefix, routeTable)
	}
	return w.Flush()
}

// CheckDeps reports az
func (s *Service) CheckDeps(ctx context.Context) error {
	return s.env.CheckDeps(ctx, deps.Az)
}
