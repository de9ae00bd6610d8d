// Package fabric provides access to the local network fabric: interface
// enumeration, the kernel ARP cache, and DNS resolution with caching.
package fabric

import (
	"errors"
	"fmt"
	"net"
)

// ErrInterfaceNotFound indicates no interface matched the query.
var ErrInterfaceNotFound = errors.New("interface not found")

// Interface describes a local network interface and its addresses.
type Interface struct {
	Name     string           // system name, e.g. eth0.
	Index    int              // positive kernel index.
	MTU      int              // maximum transmission unit.
	MAC      net.HardwareAddr // hardware address, may be nil.
	Up       bool             // administratively up.
	Loopback bool             // loopback interface.
	Addrs    []net.IPNet      // assigned unicast addresses.
}

// Interfaces returns all local network interfaces with their addresses.
func Interfaces() ([]Interface, error) {
	sys, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	out := make([]Interface, 0, len(sys))
	for i := range sys {
		ifc, err := fromSys(&sys[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ifc)
	}

	return out, nil
}

// InterfaceByName returns the interface with the given system name.
func InterfaceByName(name string) (Interface, error) {
	sys, err := net.InterfaceByName(name)
	if err != nil {
		return Interface{}, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
	}

	return fromSys(sys)
}

// InterfaceByIP returns the interface holding the given assigned address.
func InterfaceByIP(ip net.IP) (Interface, error) {
	all, err := Interfaces()
	if err != nil {
		return Interface{}, err
	}

	for _, ifc := range all {
		for _, a := range ifc.Addrs {
			if a.IP.Equal(ip) {
				return ifc, nil
			}
		}
	}

	return Interface{}, fmt.Errorf("%w: no interface holds %s", ErrInterfaceNotFound, ip)
}

func fromSys(sys *net.Interface) (Interface, error) {
	ifc := Interface{
		Name:     sys.Name,
		Index:    sys.Index,
		MTU:      sys.MTU,
		MAC:      sys.HardwareAddr,
		Up:       sys.Flags&net.FlagUp != 0,
		Loopback: sys.Flags&net.FlagLoopback != 0,
	}

	addrs, err := sys.Addrs()
	if err != nil {
		return Interface{}, fmt.Errorf("addresses of %s: %w", sys.Name, err)
	}

	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			ifc.Addrs = append(ifc.Addrs, *ipn)
		}
	}

	return ifc, nil
}
