// Package netutil detects the node's network identity.
package netutil

import (
	"errors"
	"net"
	"os"
	"strings"

	"github.com/wolfeidau/sailor/internal/fault"
)

// ErrNoAddress is returned when no usable interface address is found.
var ErrNoAddress = errors.New("no global unicast address found")

// GuessHostname returns the fully qualified host name when the resolver knows
// it, otherwise the kernel host name.
func GuessHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}

	if cname, err := net.LookupCNAME(hostname); err == nil {
		if fqdn := strings.TrimSuffix(cname, "."); fqdn != "" {
			return fqdn, nil
		}
	}
	return hostname, nil
}

// GuessIP returns the first global unicast address of an up interface,
// preferring IPv4.
func GuessIP() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	addrs, err := upAddresses(ifaces, func(iface net.Interface) ([]net.Addr, error) {
		return iface.Addrs()
	})
	if err != nil {
		return nil, err
	}
	return pickAddress(addrs)
}

// upAddresses collects the addresses of the interfaces flagged up.
func upAddresses(ifaces []net.Interface, addrsOf func(net.Interface) ([]net.Addr, error)) ([]net.Addr, error) {
	var addrs []net.Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		ifaceAddrs, err := addrsOf(iface)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, ifaceAddrs...)
	}
	return addrs, nil
}

func pickAddress(addrs []net.Addr) (net.IP, error) {
	var v6 net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || !ipnet.IP.IsGlobalUnicast() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4, nil
		}
		if v6 == nil {
			v6 = ipnet.IP
		}
	}
	if v6 != nil {
		return v6, nil
	}
	return nil, ErrNoAddress
}

// ValidateBindAddress rejects addresses other nodes cannot reach: the
// unspecified address, loopback and multicast.
func ValidateBindAddress(ip net.IP) error {
	if ip == nil || ip.IsUnspecified() || ip.IsLoopback() || ip.IsMulticast() {
		return fault.Newf(fault.BindAddress, "`%s` is not valid bind address", ip)
	}
	return nil
}
