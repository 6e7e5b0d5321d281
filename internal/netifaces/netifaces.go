package netifaces

import (
	"fmt"
	"net"
)

// Interface describes a network interface with IPv4 addresses.
type Interface struct {
	Name  string
	Index int
	IPv4  []string
}

// List enumerates multicast-capable interfaces that are up and carry IPv4.
func List() []Interface {
	var out []Interface
	ifs, err := net.Interfaces()
	if err != nil {
		return out
	}
	for _, ni := range ifs {
		if ni.Flags&net.FlagUp == 0 || ni.Flags&net.FlagMulticast == 0 {
			continue
		}
		if v4s := ipv4Addrs(ni); len(v4s) > 0 {
			out = append(out, Interface{Name: ni.Name, Index: ni.Index, IPv4: v4s})
		}
	}
	return out
}

// Lookup resolves a named interface and its first IPv4 address, which is
// what the discovery socket binds to.
func Lookup(name string) (*net.Interface, string, error) {
	ni, err := net.InterfaceByName(name)
	if err != nil {
		return nil, "", err
	}
	v4s := ipv4Addrs(*ni)
	if len(v4s) == 0 {
		return nil, "", fmt.Errorf("no IPv4 on %s", name)
	}
	return ni, v4s[0], nil
}

func ipv4Addrs(ni net.Interface) []string {
	addrs, err := ni.Addrs()
	if err != nil {
		return nil
	}
	var v4s []string
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			if ip := ipn.IP.To4(); ip != nil {
				v4s = append(v4s, ip.String())
			}
		}
	}
	return v4s
}
