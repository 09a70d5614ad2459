package net

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service the relay listener announces.
const ServiceType = "_formularelay._tcp"

// Advertise announces a relay listening on port. Shut the returned server
// down to withdraw the announcement.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"FormulaBoard relay"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	log.Printf("[MDNS] Advertising %s on port %d as %s", ServiceType, port, host)
	return server, nil
}

// RelayAddr is a discovered relay endpoint.
type RelayAddr struct {
	Host string
	Port string
}

// Discover browses the LAN for a relay for up to timeout and returns the
// first IPv4 answer.
func Discover(timeout time.Duration) (RelayAddr, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	errc := make(chan error, 1)
	go func() {
		errc <- mdns.Query(params)
		close(entries)
	}()

	var found *RelayAddr
	for e := range entries {
		if found != nil || e.AddrV4 == nil || e.Port == 0 {
			continue
		}
		found = &RelayAddr{Host: e.AddrV4.String(), Port: strconv.Itoa(e.Port)}
		log.Printf("[MDNS] Found relay %s at %s:%s", e.Name, found.Host, found.Port)
	}
	if err := <-errc; err != nil && found == nil {
		return RelayAddr{}, fmt.Errorf("mDNS query failed: %w", err)
	}
	if found == nil {
		return RelayAddr{}, fmt.Errorf("no relay answered within %v", timeout)
	}
	return *found, nil
}
