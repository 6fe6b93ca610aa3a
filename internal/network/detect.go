package network

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/catalystcommunity/anvil/v1/internal/ssh"
)

// SSHExecutor is an interface for executing SSH commands
// This allows for easier testing with mocks
type SSHExecutor interface {
	Exec(command string) (*ssh.ExecResult, error)
}

// InterfaceInfo contains information about a network interface
type InterfaceInfo struct {
	Name string
	MAC  string
	IP   string
}

var (
	routeIfacePattern = regexp.MustCompile(`(?m)^\s*interface:\s*(\S+)`)
	inetPattern       = regexp.MustCompile(`(?m)^\s*inet\s+(\d+\.\d+\.\d+\.\d+)`)
	etherPattern      = regexp.MustCompile(`(?m)^\s*ether\s+([0-9a-fA-F:]{17})`)
)

// DetectDefaultInterface returns the interface carrying the default route
// on a FreeBSD host
func DetectDefaultInterface(conn SSHExecutor) (string, error) {
	result, err := conn.Exec("route -n get default")
	if err != nil {
		return "", fmt.Errorf("failed to detect default interface: %w", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("failed to detect default interface: %s", strings.TrimSpace(result.Stderr))
	}

	match := routeIfacePattern.FindStringSubmatch(result.Stdout)
	if match == nil {
		return "", fmt.Errorf("no default route interface found")
	}
	return match[1], nil
}

// DetectInterface returns the MAC and first IPv4 address of iface
func DetectInterface(conn SSHExecutor, iface string) (*InterfaceInfo, error) {
	if iface == "" {
		return nil, fmt.Errorf("interface name is required")
	}

	result, err := conn.Exec(fmt.Sprintf("ifconfig %s", iface))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect interface %s: %w", iface, err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("failed to inspect interface %s: %s", iface, strings.TrimSpace(result.Stderr))
	}

	info := &InterfaceInfo{Name: iface}
	if m := inetPattern.FindStringSubmatch(result.Stdout); m != nil {
		if net.ParseIP(m[1]) != nil {
			info.IP = m[1]
		}
	}
	if m := etherPattern.FindStringSubmatch(result.Stdout); m != nil {
		info.MAC = strings.ToLower(m[1])
	}
	if info.IP == "" {
		return nil, fmt.Errorf("interface %s has no IPv4 address", iface)
	}
	return info, nil
}
