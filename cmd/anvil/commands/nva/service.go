// Package nva implements the `anvil nva` script: a FreeBSD VM with IP
// forwarding that NATs the egress of the AKS subnet.
package nva

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/azure"
	"github.com/catalystcommunity/anvil/v1/internal/config"
	"github.com/catalystcommunity/anvil/v1/internal/deps"
	"github.com/catalystcommunity/anvil/v1/internal/dispatch"
	"github.com/catalystcommunity/anvil/v1/internal/logging"
	"github.com/catalystcommunity/anvil/v1/internal/secrets"
	"github.com/catalystcommunity/anvil/v1/internal/ssh"
)

const (
	sshRulePriority = 1000
	defaultRoute    = "0.0.0.0/0"
	vmRunning       = "VM running"
)

// Service runs the nva actions
type Service struct {
	env   *app.Env
	cfg   *config.Config
	az    *azure.Client
	keys  KeyStore
	dial  Dialer
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates the nva service
func NewService(env *app.Env, keys KeyStore, dial Dialer) *Service {
	return &Service{
		env:   env,
		cfg:   env.Config,
		az:    env.Azure,
		keys:  keys,
		dial:  dial,
		sleep: sleep,
	}
}

func (s *Service) publicIPName() string { return s.cfg.NVA.Name + "-pip" }
func (s *Service) nsgName() string { return s.cfg.NVA.Name + "-nsg" }
func (s *Service) nicName() string { return s.cfg.NVA.Name + "-nic" }
func (s *Service) routeTableName() string { return s.cfg.NVA.Name + "-rt" }

func (s *Service) keyAccount() string {
	return secrets.Account(s.cfg.Azure.ResourceGroup, s.cfg.NVA.Name)
}

// Install provisions the appliance and its network plumbing, waits for it
// to boot and configures it
func (s *Service) Install(ctx context.Context) error {
	log := logging.FromContext(ctx)
	rg := s.cfg.Azure.ResourceGroup
	location := s.cfg.Azure.Location
	tags := s.cfg.Azure.TagList()
	nva := s.cfg.NVA

	bootWait, err := nva.BootWaitDuration()
	if err != nil {
		return err
	}

	if err := s.az.EnsureGroup(ctx, rg, location, tags); err != nil {
		return err
	}

	if nva.SkipTerms {
		log.Info("skipping marketplace terms", "image", nva.Image)
	} else if err := s.az.AcceptImageTerms(ctx, nva.Image); err != nil {
		return err
	}

	log.Info("creating public IP", "name", s.publicIPName())
	if err := s.az.CreatePublicIP(ctx, rg, s.publicIPName(), location, tags); err != nil {
		return err
	}

	log.Info("creating network security group", "name", s.nsgName(), "ssh_source", nva.SSHSource)
	if err := s.az.CreateNSG(ctx, rg, s.nsgName(), location, tags); err != nil {
		return err
	}
	if err := s.az.CreateNSGRule(ctx, rg, s.nsgName(), azure.NSGRule{
		Name:     "allow-ssh",
		Priority: sshRulePriority,
		Protocol: "Tcp",
		Source:   nva.SSHSource,
		Port:     22,
	}); err != nil {
		return err
	}

	log.Info("creating NIC with IP forwarding", "name", s.nicName(), "ip", nva.PrivateIP)
	if err := s.az.CreateNIC(ctx, azure.NICOptions{
		ResourceGroup: rg,
		Name:          s.nicName(),
		Location:      location,
		VNet:          s.cfg.Network.VNetName,
		Subnet:        s.cfg.Network.NVASubnetName,
		PrivateIP:     nva.PrivateIP,
		PublicIP:      s.publicIPName(),
		NSG:           s.nsgName(),
		IPForwarding:  true,
		Tags:          tags,
	}); err != nil {
		return err
	}

	key, generated, err := s.installKey(ctx)
	if err != nil {
		return err
	}

	log.Info("creating VM", "name", nva.Name, "image", nva.Image)
	if err := s.az.CreateVM(ctx, azure.VMOptions{
		ResourceGroup: rg,
		Name:          nva.Name,
		Location:      location,
		Image:         nva.Image,
		Size:          nva.VMSize,
		AdminUser:     nva.AdminUser,
		SSHPublicKey:  strings.TrimSpace(key.PublicKeyString()),
		NIC:           s.nicName(),
		Tags:          tags,
	}); err != nil {
		return err
	}

	// a new key is only kept once a VM accepts it
	if generated {
		if err := s.keys.Store(s.keyAccount(), key.Private); err != nil {
			return fmt.Errorf("failed to store SSH key: %w", err)
		}
		log.Info("stored generated SSH key", "account", s.keyAccount())
	}

	log.Info("routing AKS subnet through the NVA", "route_table", s.routeTableName(), "next_hop", nva.PrivateIP)
	if err := s.az.CreateRouteTable(ctx, rg, s.routeTableName(), location, tags); err != nil {
		return err
	}
	if err := s.az.CreateApplianceRoute(ctx, rg, s.routeTableName(), "default", defaultRoute, nva.PrivateIP); err != nil {
		return err
	}
	if err := s.az.AssociateRouteTable(ctx, rg, s.cfg.Network.VNetName, s.cfg.Network.AKSSubnetName, s.routeTableName()); err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "Waiting %s for %s to boot\n", bootWait, nva.Name)
	if err := s.sleep(ctx, bootWait); err != nil {
		return fmt.Errorf("interrupted while waiting for %s to boot: %w", nva.Name, err)
	}

	return s.Configure(ctx)
}

// installKey returns the configured key, the key stored by an earlier
// install, or a newly generated one. generated reports the last case; the
// caller stores it.
func (s *Service) installKey(ctx context.Context) (key *ssh.KeyPair, generated bool, err error) {
	if s.cfg.NVA.SSHKey != "" {
		key, err = s.loadKey()
		return key, false, err
	}

	data, err := s.keys.Load(s.keyAccount())
	switch {
	case err == nil:
		logging.FromContext(ctx).Info("reusing stored SSH key", "account", s.keyAccount())
		key, err = ssh.LoadKeyPair(data)
		return key, false, err
	case !errors.Is(err, secrets.ErrKeyNotFound):
		return nil, false, fmt.Errorf("failed to load stored SSH key: %w", err)
	}

	key, err = ssh.GenerateKeyPair(s.cfg.NVA.Name)
	if err != nil {
		return nil, false, err
	}
	logging.FromContext(ctx).Info("generated SSH key", "account", s.keyAccount())
	return key, true, nil
}

// loadKey reads NVA_SSH_KEY, or the key stored by install
func (s *Service) loadKey() (*ssh.KeyPair, error) {
	if path := s.cfg.NVA.SSHKey; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		return ssh.LoadKeyPair(data)
	}

	data, err := s.keys.Load(s.keyAccount())
	if errors.Is(err, secrets.ErrKeyNotFound) {
		return nil, fmt.Errorf("no SSH key stored for %s, run `anvil nva -x install` or set NVA_SSH_KEY: %w", s.cfg.NVA.Name, err)
	}
	if err != nil {
		return nil, err
	}
	return ssh.LoadKeyPair(data)
}

// Delete removes the VM and everything install created around it.
// Resources that are already gone are skipped.
func (s *Service) Delete(ctx context.Context) error {
	rg := s.cfg.Azure.ResourceGroup
	name := s.cfg.NVA.Name

	ok, err := s.env.Confirm(fmt.Sprintf("Delete NVA %s and its network resources in resource group %s?", name, rg))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.env.Out, "Aborted")
		return nil
	}

	steps := []struct {
		what string
		run  func() error
	}{
		{"VM " + name, func() error { return s.az.DeleteVM(ctx, rg, name) }},
		{"NIC " + s.nicName(), func() error { return s.az.DeleteNIC(ctx, rg, s.nicName()) }},
		{"NSG " + s.nsgName(), func() error { return s.az.DeleteNSG(ctx, rg, s.nsgName()) }},
		{"public IP " + s.publicIPName(), func() error { return s.az.DeletePublicIP(ctx, rg, s.publicIPName()) }},
		{"route table association", func() error {
			return s.az.DissociateRouteTable(ctx, rg, s.cfg.Network.VNetName, s.cfg.Network.AKSSubnetName)
		}},
		{"route table " + s.routeTableName(), func() error { return s.az.DeleteRouteTable(ctx, rg, s.routeTableName()) }},
	}

	log := logging.FromContext(ctx)
	for _, step := range steps {
		err := step.run()
		if azure.IsNotFound(err) {
			log.Info("already gone", "resource", step.what)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(s.env.Out, "Deleted %s\n", step.what)
	}

	if s.cfg.NVA.SSHKey == "" {
		if err := s.keys.Delete(s.keyAccount()); err != nil {
			return fmt.Errorf("failed to delete SSH key: %w", err)
		}
	}
	return nil
}

// Show prints the VM state and addresses and, when the VM runs, the pf
// status read over SSH
func (s *Service) Show(ctx context.Context) error {
	vm, err := s.az.ShowVM(ctx, s.cfg.Azure.ResourceGroup, s.cfg.NVA.Name)
	if azure.IsNotFound(err) {
		return dispatch.NotFound("NVA", s.cfg.NVA.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to show NVA: %w", err)
	}

	w := tabwriter.NewWriter(s.env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", vm.Name)
	fmt.Fprintf(w, "Size:\t%s\n", vm.HardwareProfile.VMSize)
	fmt.Fprintf(w, "Power state:\t%s\n", vm.PowerState)
	fmt.Fprintf(w, "Public IP:\t%s\n", orDash(vm.PublicIps))
	fmt.Fprintf(w, "Private IP:\t%s\n", orDash(vm.PrivateIps))

	if vm.PowerState == vmRunning && vm.PublicIps != "" {
		gw, err := s.gatewayState(ctx, vm.PublicIps)
		if err != nil {
			logging.FromContext(ctx).Warn("could not read gateway state", "error", err)
			fmt.Fprintf(w, "Forwarding:\tunknown\n")
			fmt.Fprintf(w, "pf:\tunknown\n")
		} else {
			state := "disabled"
			if gw.pf.Enabled {
				state = "enabled"
			}
			fmt.Fprintf(w, "Forwarding:\tgateway_enable=%s\n", gw.forwarding)
			fmt.Fprintf(w, "pf:\t%s, %d states\n", state, gw.pf.States)
			for _, rule := range gw.nat {
				fmt.Fprintf(w, "NAT:\t%s\n", rule)
			}
		}
	}
	return w.Flush()
}

// CheckDeps reports az (required) and ssh (optional, for manual access)
func (s *Service) CheckDeps(ctx context.Context) error {
	return s.env.CheckDeps(ctx, deps.Az, deps.SSH)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
