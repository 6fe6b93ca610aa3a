package nva

import (
	"context"
	"fmt"

	"github.com/catalystcommunity/anvil/v1/internal/freebsd"
	"github.com/catalystcommunity/anvil/v1/internal/logging"
	"github.com/catalystcommunity/anvil/v1/internal/network"
	"github.com/catalystcommunity/anvil/v1/internal/ssh"
)

// Configure turns the appliance into a NAT gateway for the virtual
// network: IP forwarding on, pf NAT from the vnet out of the external
// interface, both persisted across reboots
func (s *Service) Configure(ctx context.Context) error {
	log := logging.FromContext(ctx)
	nva := s.cfg.NVA

	host, err := s.az.PublicIPAddress(ctx, s.cfg.Azure.ResourceGroup, s.publicIPName())
	if err != nil {
		return fmt.Errorf("failed to look up the NVA address: %w", err)
	}
	if host == "" {
		return fmt.Errorf("public IP %s has no address assigned", s.publicIPName())
	}

	conn, err := s.connect(host)
	if err != nil {
		return err
	}
	defer conn.Close()

	iface, err := network.DetectInterface(conn, nva.ExternalIF)
	if err != nil {
		if def, derr := network.DetectDefaultInterface(conn); derr == nil && def != nva.ExternalIF {
			return fmt.Errorf("external interface %s is not usable (the default route uses %s, set NVA_EXTERNAL_IF): %w",
				nva.ExternalIF, def, err)
		}
		return err
	}
	log.Info("external interface", "name", iface.Name, "ip", iface.IP, "mac", iface.MAC)

	log.Info("enabling IP forwarding")
	if err := freebsd.Sysrc(conn, "gateway_enable", "YES"); err != nil {
		return err
	}
	if err := freebsd.Sysctl(conn, "net.inet.ip.forwarding", "1"); err != nil {
		return err
	}

	rules, err := freebsd.RenderPFConf(freebsd.PFConfig{
		ExternalIF:   nva.ExternalIF,
		InternalNets: []string{s.cfg.Network.VNetCIDR},
	})
	if err != nil {
		return fmt.Errorf("failed to render pf.conf: %w", err)
	}

	log.Info("loading pf ruleset", "internal", s.cfg.Network.VNetCIDR)
	if err := freebsd.ApplyPFConf(conn, rules); err != nil {
		return err
	}

	for _, svc := range []string{"pf", "pflog"} {
		if err := freebsd.EnableService(conn, svc); err != nil {
			return err
		}
	}

	running, err := freebsd.IsServiceRunning(conn, "pf")
	if err != nil {
		return err
	}
	if running {
		err = freebsd.ReloadService(conn, "pf")
	} else {
		err = freebsd.StartService(conn, "pf")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(s.env.Out, "NVA %s configured: NAT %s out of %s (%s)\n",
		nva.Name, s.cfg.Network.VNetCIDR, iface.Name, iface.IP)
	return nil
}

func (s *Service) connect(host string) (Remote, error) {
	key, err := s.loadKey()
	if err != nil {
		return nil, err
	}
	auth, err := key.AuthMethod()
	if err != nil {
		return nil, err
	}

	opts := ssh.DefaultConnectionOptions(host, s.cfg.NVA.AdminUser, auth)
	opts.KnownHostsFile = s.cfg.NVA.KnownHosts

	conn, err := s.dial(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NVA: %w", err)
	}
	return conn, nil
}

// gatewayState is what show reads from a running appliance
type gatewayState struct {
	forwarding string
	pf         *freebsd.PFStatus
	nat        []string
}

func (s *Service) gatewayState(ctx context.Context, host string) (*gatewayState, error) {
	conn, err := s.connect(host)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	forwarding, err := freebsd.SysrcGet(conn, "gateway_enable")
	if err != nil {
		return nil, err
	}
	status, err := freebsd.GetPFStatus(conn)
	if err != nil {
		return nil, err
	}
	rules, err := freebsd.NATRules(conn)
	if err != nil {
		return nil, err
	}
	return &gatewayState{forwarding: forwarding, pf: status, nat: rules}, nil
}
