// Package discovery publishes the paired-service advertisement so
// phones can find the agent without the user typing an address: an
// mDNS record under _scanlink._tcp.local carrying a version marker and
// an advisory hint derived from the active master token.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/hashicorp/mdns"
)

const (
	serviceType   = "_scanlink._tcp"
	serviceVersion = "2.0"
	hintLen       = 8
)

// Config holds configuration for the mDNS advertiser.
type Config struct {
	InstanceName string // e.g. the desktop's hostname
	Port         int
	MasterToken  string // first 8 chars become the advisory "hint" TXT field
}

// Advertiser manages the mDNS service registration for one transport
// lifetime; a regenerated master token means a fresh Advertiser.
type Advertiser struct {
	servers []*mdns.Server
	cfg     Config
}

// NewAdvertiser creates a new advertiser with the given config.
func NewAdvertiser(cfg Config) (*Advertiser, error) {
	if cfg.InstanceName == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("port must be > 0")
	}
	return &Advertiser{cfg: cfg}, nil
}

// hint returns the first 8 characters of the master token. Its intended
// client-side verification use is not specified (see the Open Question
// this resolves as advisory-only, never a trust boundary).
func (a *Advertiser) hint() string {
	token := a.cfg.MasterToken
	if len(token) > hintLen {
		return token[:hintLen]
	}
	return token
}

// Start begins advertising the service, one mDNS server per
// up+multicast-capable interface (or the default interface if none
// qualify), unless GOCLAW_MDNS_IFACE-equivalent SCANLINK_MDNS_IFACE
// pins a single one.
func (a *Advertiser) Start() error {
	txt := []string{
		fmt.Sprintf("version=%s", serviceVersion),
		fmt.Sprintf("hint=%s", a.hint()),
	}

	service, err := mdns.NewMDNSService(
		a.cfg.InstanceName,
		serviceType,
		"",
		"",
		a.cfg.Port,
		nil,
		txt,
	)
	if err != nil {
		return fmt.Errorf("create mdns service: %w", err)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}

	var servers []*mdns.Server
	ifaceFilter := strings.TrimSpace(os.Getenv("SCANLINK_MDNS_IFACE"))
	for _, iface := range ifaces {
		iface := iface
		if ifaceFilter != "" && iface.Name != ifaceFilter {
			continue
		}
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagMulticast) == 0 {
			continue
		}

		server, err := mdns.NewServer(&mdns.Config{
			Zone:              service,
			Iface:             &iface,
			LogEmptyResponses: true,
		})
		if err != nil {
			slog.Warn("mdns interface bind failed", "iface", iface.Name, "error", err)
			continue
		}
		slog.Info("mdns interface bound", "iface", iface.Name)
		servers = append(servers, server)
	}

	if len(servers) == 0 && ifaceFilter == "" {
		server, err := mdns.NewServer(&mdns.Config{
			Zone:              service,
			LogEmptyResponses: true,
		})
		if err != nil {
			return fmt.Errorf("start mdns server: %w", err)
		}
		servers = append(servers, server)
	}
	if len(servers) == 0 {
		return fmt.Errorf("no mdns interfaces bound (filter=%q)", ifaceFilter)
	}

	a.servers = servers
	return nil
}

// Stop shuts down the mDNS advertisement.
func (a *Advertiser) Stop() error {
	var firstErr error
	for _, server := range a.servers {
		if server == nil {
			continue
		}
		if err := server.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
