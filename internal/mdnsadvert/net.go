package mdnsadvert

import (
	"errors"
	"net"
	"os"
)

var netHostname = os.Hostname

// firstRoutableIPv4 returns the first non-loopback IPv4 address bound to
// any active interface, used as the address mDNS advertises.
func firstRoutableIPv4() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() {
			continue
		}
		return ip, nil
	}
	return nil, errors.New("mdnsadvert: no routable ipv4 address found")
}
