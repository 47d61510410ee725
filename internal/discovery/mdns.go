// ABOUTME: Zeroconf discovery of broadcast servers on the local network
// ABOUTME: Servers advertise over mDNS, players browse until one answers
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	playerService = "_unison._tcp"
	serverService = "_unison-server._tcp"
	servicePath   = "path=/unison"
	queryTimeout  = 3 * time.Second
)

// Config selects the advertised name and which service type to speak
type Config struct {
	ServiceName string
	Port        int
	ServerMode  bool // advertise as a broadcast server rather than a player
}

// Manager owns one advertise or browse lifecycle
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
}

// ServerInfo describes a discovered broadcast server
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// Advertise registers this endpoint in the local mDNS zone until Stop
func (m *Manager) Advertise() error {
	ips := interfaceIPv4s()
	if len(ips) == 0 {
		return fmt.Errorf("discovery: no usable network interface to advertise on")
	}

	serviceType := playerService
	if m.config.ServerMode {
		serviceType = serverService
	}

	zone, err := mdns.NewMDNSService(m.config.ServiceName, serviceType,
		"", "", m.config.Port, ips, []string{servicePath})
	if err != nil {
		return fmt.Errorf("discovery: register %s: %w", serviceType, err)
	}

	srv, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return fmt.Errorf("discovery: start responder: %w", err)
	}

	log.Printf("Advertising %s as %s on port %d", serviceType, m.config.ServiceName, m.config.Port)

	go func() {
		<-m.ctx.Done()
		srv.Shutdown()
	}()
	return nil
}

// Browse starts querying for broadcast servers. Results arrive on the
// Servers channel until Stop.
func (m *Manager) Browse() error {
	go func() {
		for m.ctx.Err() == nil {
			m.queryOnce()
		}
	}()
	return nil
}

// queryOnce runs a single bounded query round and forwards its answers
func (m *Manager) queryOnce() {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			info := serverEntry(entry)
			if info == nil {
				continue
			}
			log.Printf("Discovered server %s at %s:%d", info.Name, info.Host, info.Port)
			select {
			case m.servers <- info:
			case <-m.ctx.Done():
				return
			}
		}
	}()

	mdns.Query(&mdns.QueryParam{
		Service: serverService,
		Domain:  "local",
		Timeout: queryTimeout,
		Entries: entries,
	})
	close(entries)
	<-done
}

// serverEntry converts a query answer, preferring IPv4 and skipping
// answers that carry no address at all
func serverEntry(entry *mdns.ServiceEntry) *ServerInfo {
	addr := entry.AddrV4
	if addr == nil {
		addr = entry.AddrV6
	}
	if addr == nil {
		return nil
	}
	return &ServerInfo{
		Name: entry.Name,
		Host: addr.String(),
		Port: entry.Port,
	}
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop ends advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// interfaceIPv4s collects the IPv4 addresses of up, non-loopback interfaces
func interfaceIPv4s() []net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() {
				continue
			}
			if v4 := ipnet.IP.To4(); v4 != nil {
				ips = append(ips, v4)
			}
		}
	}
	return ips
}
