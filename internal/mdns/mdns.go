// Package mdns finds players advertised over multicast DNS and turns each
// answer into the description URL the player also advertises over SSDP.
package mdns

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"

	"sonosctl/internal/ssdp"
	"sonosctl/internal/upnp"
)

const (
	// DefaultService is the DNS-SD service type players register.
	DefaultService = "_sonos._tcp"
	// DefaultDomain is the mDNS browse domain.
	DefaultDomain = "local."

	descriptionPath = "/xml/device_description.xml"
)

// Browser browses one DNS-SD service type.
type Browser struct {
	Service string
	Domain  string
	// Port is the HTTP port description documents are served on; the
	// advertised service port belongs to a different endpoint.
	Port int

	log zerolog.Logger
}

// NewBrowser returns a Browser for service on the local domain.
func NewBrowser(service string, port int, log zerolog.Logger) *Browser {
	if service == "" {
		service = DefaultService
	}
	return &Browser{Service: service, Domain: DefaultDomain, Port: port, log: log}
}

// Discover browses for the same floored window as the SSDP probe and
// returns sorted, unique description URLs. Resolver failures yield an
// empty result.
func (b *Browser) Discover(timeoutSeconds int) []string {
	out := []string{}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("create mdns resolver")
		return out
	}

	ctx, cancel := context.WithTimeout(context.Background(), ssdp.ReceiveWindow(timeoutSeconds))
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, b.Service, b.Domain, entries); err != nil {
		b.log.Warn().Err(err).Str("service", b.Service).Msg("browse mdns")
		return out
	}

	seen := make(map[string]struct{})
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return sortedKeys(seen)
			}
			if loc, ok := b.location(e); ok {
				seen[loc] = struct{}{}
			}
		case <-ctx.Done():
			return sortedKeys(seen)
		}
	}
}

// location maps a resolved entry to its description URL.
func (b *Browser) location(e *zeroconf.ServiceEntry) (string, bool) {
	if e == nil {
		return "", false
	}
	var ip net.IP
	for _, a := range e.AddrIPv4 {
		if a != nil && !a.IsUnspecified() {
			ip = a
			break
		}
	}
	if ip == nil {
		b.log.Debug().Str("instance", e.Instance).Msg("mdns entry without ipv4")
		return "", false
	}
	port := b.Port
	if port <= 0 {
		port = upnp.DefaultPort
	}
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(ip.String(), strconv.Itoa(port)), descriptionPath), true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
