// Package mcast sends RTP and SAP packets to IPv4 multicast groups over
// sockets bound to a selectable outbound interface.
package mcast

import (
	"fmt"
	"net"
	"os"
)

// ifaceEnv is the environment variable naming the preferred outbound
// interface.
const ifaceEnv = "MCAST_IFACE"

// SelectInterface returns the outbound interface to bind multicast
// sockets to: the interface named by MCAST_IFACE if set, otherwise the
// first interface that is up, not loopback, not point-to-point, and has
// an IPv4 address, mirroring original_source/net_utils.py's
// pick_multicast_iface.
func SelectInterface() (*net.Interface, error) {
	if name := os.Getenv(ifaceEnv); name != "" {
		ifi, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("mcast: %s=%q: %w", ifaceEnv, name, err)
		}
		if !hasIPv4(ifi) {
			return nil, fmt.Errorf("mcast: %s=%q: no IPv4 address", ifaceEnv, name)
		}
		return ifi, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("mcast: listing interfaces: %w", err)
	}
	for i := range ifaces {
		ifi := &ifaces[i]
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		if ifi.Flags&net.FlagLoopback != 0 || ifi.Flags&net.FlagPointToPoint != 0 {
			continue
		}
		if hasIPv4(ifi) {
			return ifi, nil
		}
	}
	return nil, fmt.Errorf("mcast: no usable IPv4 interface found (set %s)", ifaceEnv)
}

// IPv4Addr returns the first IPv4 address bound to ifi, or nil if ifi is
// nil or has none. Used to fill the SDP origin/SAP source address with
// the address of the interface packets actually leave from.
func IPv4Addr(ifi *net.Interface) net.IP {
	if ifi == nil {
		return nil
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok {
			if v4 := ipnet.IP.To4(); v4 != nil {
				return v4
			}
		}
	}
	return nil
}

func hasIPv4(ifi *net.Interface) bool {
	addrs, err := ifi.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if ok && ipnet.IP.To4() != nil {
			return true
		}
	}
	return false
}
