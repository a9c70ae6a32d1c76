// Package discovery advertises the bridge's diagnostics API over mDNS
// and browses the LAN for other bridges.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/config"
)

const (
	// DefaultService is the DNS-SD service type of the bridge API.
	DefaultService = "_graylogic-rf433._tcp"

	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."

	// DefaultScanTimeout bounds Scan when the context has no deadline.
	DefaultScanTimeout = 5 * time.Second
)

// ErrInvalidPort is returned by Advertise for a port outside 1..65535.
var ErrInvalidPort = errors.New("discovery: invalid port")

// Info is published in the TXT record.
type Info struct {
	Version  string
	SiteID   string
	Protocol string
	Pin      string
}

// TXT renders info as key=value records, skipping empty values.
func (i Info) TXT() []string {
	var txt []string
	for _, kv := range [][2]string{
		{"version", i.Version},
		{"site", i.SiteID},
		{"protocol", i.Protocol},
		{"pin", i.Pin},
	} {
		if kv[1] != "" {
			txt = append(txt, kv[0]+"="+kv[1])
		}
	}
	return txt
}

// Advertiser holds a running mDNS registration.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers the API on all interfaces until Shutdown.
func Advertise(cfg config.DiscoveryConfig, port int, info Info) (*Advertiser, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	service, domain := serviceAndDomain(cfg.Service, cfg.Domain)

	server, err := zeroconf.Register(cfg.Instance, service, domain, port, info.TXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("registering mDNS service %s: %w", service, err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the registration.
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Bridge is one bridge found by Scan.
type Bridge struct {
	Instance string
	Host     string
	IP       string
	Port     int
	Metadata map[string]string
}

// Scanner browses for bridges.
type Scanner struct {
	Service string
	Domain  string
	Timeout time.Duration
}

// NewScanner returns a scanner for the default service type.
func NewScanner() *Scanner {
	return &Scanner{Service: DefaultService, Domain: DefaultDomain, Timeout: DefaultScanTimeout}
}

// Scan browses until the timeout and returns the bridges seen, sorted by
// instance name.
func (s *Scanner) Scan(ctx context.Context) ([]Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("creating mDNS resolver: %w", err)
	}

	var (
		mu    sync.Mutex
		found []Bridge
	)
	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if b, ok := parseServiceEntry(entry); ok {
					mu.Lock()
					found = append(found, b)
					mu.Unlock()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	service, domain := serviceAndDomain(s.Service, s.Domain)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return nil, fmt.Errorf("browsing for %s: %w", service, err)
	}
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	out := slices.Clone(found)
	slices.SortFunc(out, func(a, b Bridge) int { return strings.Compare(a.Instance, b.Instance) })
	return out, nil
}

// parseServiceEntry converts a zeroconf entry. Entries without an
// address are skipped.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (Bridge, bool) {
	if entry == nil {
		return Bridge{}, false
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return Bridge{}, false
	}

	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		if key != "" {
			metadata[key] = value
		}
	}

	return Bridge{
		Instance: entry.Instance,
		Host:     entry.HostName,
		IP:       ip,
		Port:     entry.Port,
		Metadata: metadata,
	}, true
}

func serviceAndDomain(service, domain string) (string, string) {
	if service == "" {
		service = DefaultService
	}
	if domain == "" {
		domain = DefaultDomain
	}
	return service, domain
}
