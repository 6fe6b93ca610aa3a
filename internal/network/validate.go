package network

import (
	"fmt"
	"net"
)

// azureReservedHead is the number of addresses Azure reserves at the start
// of every subnet (network address, gateway, two DNS addresses)
const azureReservedHead = 4

// ParseCIDR parses an IPv4 CIDR and requires it to be in canonical form
func ParseCIDR(cidr string) (*net.IPNet, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("CIDR %q is not IPv4", cidr)
	}
	if !ip.Equal(ipNet.IP) {
		return nil, fmt.Errorf("CIDR %q has host bits set, expected %s", cidr, ipNet.String())
	}
	return ipNet, nil
}

// ValidateSubnet checks that subnet lies entirely inside parent
func ValidateSubnet(parent, subnet string) error {
	parentNet, err := ParseCIDR(parent)
	if err != nil {
		return err
	}
	subNet, err := ParseCIDR(subnet)
	if err != nil {
		return err
	}

	first, last := bounds(subNet)
	if !parentNet.Contains(first) || !parentNet.Contains(last) {
		return fmt.Errorf("subnet %s is not inside %s", subnet, parent)
	}
	return nil
}

// Overlaps reports whether two CIDRs share any address
func Overlaps(a, b string) (bool, error) {
	netA, err := ParseCIDR(a)
	if err != nil {
		return false, err
	}
	netB, err := ParseCIDR(b)
	if err != nil {
		return false, err
	}
	return netA.Contains(netB.IP) || netB.Contains(netA.IP), nil
}

// ValidateHostIP checks that ip can be statically assigned to a NIC in
// subnet: it must be inside the subnet and not one of the addresses Azure
// reserves (the first four and the broadcast address).
func ValidateHostIP(ip, subnet string) error {
	addr := net.ParseIP(ip)
	if addr == nil || addr.To4() == nil {
		return fmt.Errorf("invalid IPv4 address: %s", ip)
	}
	subNet, err := ParseCIDR(subnet)
	if err != nil {
		return err
	}
	if !subNet.Contains(addr) {
		return fmt.Errorf("IP %s is not in subnet %s", ip, subnet)
	}

	first, last := bounds(subNet)
	firstUsable := uint32ToIP(ipToUint32(first) + azureReservedHead)
	lastUsable := uint32ToIP(ipToUint32(last) - 1)
	if !isIPInRange(addr, firstUsable, lastUsable) {
		return fmt.Errorf("IP %s is reserved by Azure in subnet %s (usable range %s - %s)",
			ip, subnet, firstUsable, lastUsable)
	}
	return nil
}

// bounds returns the first and last address of an IPv4 network
func bounds(n *net.IPNet) (net.IP, net.IP) {
	start := ipToUint32(n.IP)
	ones, bits := n.Mask.Size()
	size := uint32(1) << uint(bits-ones)
	return uint32ToIP(start), uint32ToIP(start + size - 1)
}

// isIPInRange checks if an IP is within the range [start, end]
func isIPInRange(ip, start, end net.IP) bool {
	ip4 := ip.To4()
	start4 := start.To4()
	end4 := end.To4()

	if ip4 == nil || start4 == nil || end4 == nil {
		return false
	}

	ipInt := ipToUint32(ip4)
	return ipInt >= ipToUint32(start4) && ipInt <= ipToUint32(end4)
}

// ipToUint32 converts an IPv4 address to uint32
func ipToUint32(ip net.IP) uint32 {
	ip = ip.To4()
	if ip == nil {
		return 0
	}
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToIP(n uint32) net.IP {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).To4()
}
