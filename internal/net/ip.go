package net

import (
	"log"
	"net"
)

// OutgoingIP is the LAN address other devices should use to reach this
// machine. It asks the routing table via an unconnected UDP socket and falls
// back to the first non-loopback IPv4 interface, then to loopback.
func OutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String()
		}
	}
	if ip := firstIPv4(); ip != nil {
		return ip.String()
	}
	log.Println("[NET] No LAN address found, falling back to loopback")
	return "127.0.0.1"
}

func firstIPv4() net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return nil
}
