// Package aks implements the `anvil aks` script.
package aks

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/azure"
	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/deps"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/logging"
)

// Service runs the aks actions
type Service struct {
	env *app.Env
	cfg *config.Config
	az  *azure.Client
}

// NewService creates the aks service
func NewService(env *app.Env) *Service {
	return &Service{env: env, cfg: env.Config, az: env.Azure}
}

// Install creates the resource group when missing and the cluster. The
// cluster joins the AKS subnet when the virtual network already exists.
func (s *Service) Install(ctx context.Context) error {
	log := logging.FromContext(ctx)
	rg := s.cfg.Azure.ResourceGroup
	tags := s.cfg.Azure.TagList()

	if err := s.az.EnsureGroup(ctx, rg, s.cfg.Azure.Location, tags); err != nil {
		return err
	}

	subnetID, err := s.az.SubnetID(ctx, rg, s.cfg.Network.VNetName, s.cfg.Network.AKSSubnetName)
	switch {
	case azure.IsNotFound(err):
		log.Info("virtual network not found, AKS will create its own", "vnet", s.cfg.Network.VNetName)
		subnetID = ""
	case err != nil:
		return fmt.Errorf("failed to look up subnet %s: %w", s.cfg.Network.AKSSubnetName, err)
	}

	if subnetID == "" && s.cfg.Cluster.OutboundType == config.OutboundUserDefinedRouting {
		return fmt.Errorf("outbound type %s needs subnet %s, run `anvil vnet -x install` first",
			config.OutboundUserDefinedRouting, s.cfg.Network.AKSSubnetName)
	}

	log.Info("creating AKS cluster", "name", s.cfg.Cluster.Name, "subnet", subnetID)
	if err := s.az.CreateCluster(ctx, azure.ClusterOptions{
		ResourceGroup:     rg,
		Name:              s.cfg.Cluster.Name,
		Location:          s.cfg.Azure.Location,
		KubernetesVersion: s.cfg.Cluster.KubernetesVersion,
		NodeCount:         s.cfg.Cluster.NodeCount,
		NodeVMSize:        s.cfg.Cluster.NodeVMSize,
		NetworkPlugin:     s.cfg.Cluster.NetworkPlugin,
		OutboundType:      s.cfg.Cluster.OutboundType,
		SubnetID:          subnetID,
		Tags:              tags,
	}); err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "AKS cluster %s created in resource group %s\n", s.cfg.Cluster.Name, rg)
	return nil
}

// Delete deletes the cluster after confirmation
func (s *Service) Delete(ctx context.Context) error {
	name := s.cfg.Cluster.Name
	ok, err := s.env.Confirm(fmt.Sprintf("Delete AKS cluster %s in resource group %s?", name, s.cfg.Azure.ResourceGroup))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.env.Out, "Aborted")
		return nil
	}

	err = s.az.DeleteCluster(ctx, s.cfg.Azure.ResourceGroup, name)
	if azure.IsNotFound(err) {
		fmt.Fprintf(s.env.Out, "AKS cluster %s does not exist\n", name)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "AKS cluster %s deleted\n", name)
	return nil
}

// Show prints the cluster summary and its node pools
func (s *Service) Show(ctx context.Context) error {
	mc, err := s.az.ShowCluster(ctx, s.cfg.Azure.ResourceGroup, s.cfg.Cluster.Name)
	if azure.IsNotFound(err) {
		return dispatch.NotFound("AKS cluster", s.cfg.Cluster.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to show AKS cluster: %w", err)
	}

	w := tabwriter.NewWriter(s.env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", mc.Name)
	fmt.Fprintf(w, "Location:\t%s\n", mc.Location)
	fmt.Fprintf(w, "Kubernetes:\t%s\n", mc.KubernetesVersion)
	fmt.Fprintf(w, "State:\t%s (%s)\n", mc.ProvisioningState, mc.PowerState.Code)
	fmt.Fprintf(w, "FQDN:\t%s\n", mc.Fqdn)
	fmt.Fprintf(w, "Network:\t%s, outbound %s\n", mc.NetworkProfile.NetworkPlugin, mc.NetworkProfile.OutboundType)
	fmt.Fprintf(w, "Node resource group:\t%s\n", mc.NodeResourceGroup)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "POOL\tMODE\tCOUNT\tVM SIZE\tTAINTS\tSTATE")
	for _, pool := range mc.AgentPoolProfiles {
		taints := strings.Join(pool.NodeTaints, ",")
		if taints == "" {
			taints = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			pool.Name, pool.Mode, pool.Count, pool.VMSize, taints, pool.ProvisioningState)
	}
	return w.Flush()
}

// Credentials merges the cluster credentials into the user's kubeconfig
func (s *Service) Credentials(ctx context.Context) error {
	if err := s.az.MergeCredentials(ctx, s.cfg.Azure.ResourceGroup, s.cfg.Cluster.Name, s.cfg.Cluster.AdminCredentials); err != nil {
		return err
	}
	fmt.Fprintf(s.env.Out, "Merged credentials for %s into your kubeconfig\n", s.cfg.Cluster.Name)
	return nil
}

// CheckDeps reports az (required) and kubectl (optional)
func (s *Service) CheckDeps(ctx context.Context) error {
	return s.env.CheckDeps(ctx, deps.Az, deps.Kubectl)
}
