// Package ssdp sends the multicast discovery probe and collects the
// description URLs advertised by the devices that answer it.
package ssdp

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"
)

const (
	// MulticastAddr is the standard SSDP group and port.
	MulticastAddr = "239.255.255.250:1900"
	// DefaultSearchTarget is the device class players answer to.
	DefaultSearchTarget = "urn:schemas-upnp-org:device:ZonePlayer:1"
	// DefaultVendorMarker must appear in a reply for it to be considered.
	DefaultVendorMarker = "Sonos"

	multicastTTL = 2
	maxDatagram  = 2048
)

// Prober sends M-SEARCH requests and gathers LOCATION headers.
type Prober struct {
	// BindIP is the local IPv4 to send from. Empty binds all interfaces.
	BindIP string
	// Interface, when set, is used as the outgoing multicast interface.
	Interface *net.Interface
	// Target overrides MulticastAddr.
	Target       string
	SearchTarget string
	Marker       string

	log zerolog.Logger
}

// NewProber returns a Prober using the standard group and device class.
func NewProber(log zerolog.Logger) *Prober {
	return &Prober{
		Target:       MulticastAddr,
		SearchTarget: DefaultSearchTarget,
		Marker:       DefaultVendorMarker,
		log:          log,
	}
}

// ReceiveWindow converts a requested timeout into the receive window.
// Anything below one second is raised to one second.
func ReceiveWindow(timeoutSeconds int) time.Duration {
	if timeoutSeconds < 1 {
		timeoutSeconds = 1
	}
	return time.Duration(timeoutSeconds) * time.Second
}

// Discover sends one probe and returns the unique, sorted location URLs
// received before the window closes. Socket or send failures yield an
// empty result.
func (p *Prober) Discover(timeoutSeconds int) []string {
	window := ReceiveWindow(timeoutSeconds)
	out := []string{}

	laddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(p.BindIP, "0"))
	if err != nil {
		p.log.Warn().Err(err).Str("bind", p.BindIP).Msg("resolve bind address")
		return out
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		p.log.Warn().Err(err).Str("bind", p.BindIP).Msg("open discovery socket")
		return out
	}
	defer conn.Close()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		p.log.Debug().Err(err).Msg("set multicast ttl")
	}
	if p.Interface != nil {
		if err := pc.SetMulticastInterface(p.Interface); err != nil {
			p.log.Debug().Err(err).Str("iface", p.Interface.Name).Msg("set multicast interface")
		}
	}

	raddr, err := net.ResolveUDPAddr("udp4", p.target())
	if err != nil {
		p.log.Warn().Err(err).Str("target", p.target()).Msg("resolve discovery target")
		return out
	}
	if _, err := conn.WriteToUDP([]byte(p.request()), raddr); err != nil {
		p.log.Warn().Err(err).Str("target", raddr.String()).Msg("send discovery probe")
		return out
	}

	_ = conn.SetReadDeadline(time.Now().Add(window))
	seen := make(map[string]struct{})
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			break
		}
		resp := string(buf[:n])
		if !strings.Contains(resp, p.marker()) {
			continue
		}
		loc, ok := ParseLocation(resp)
		if !ok {
			continue
		}
		if _, dup := seen[loc]; !dup {
			p.log.Debug().Str("from", from.String()).Str("location", loc).Msg("discovery reply")
		}
		seen[loc] = struct{}{}
	}

	for loc := range seen {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// ParseLocation returns the trimmed value of the first LOCATION header in
// an SSDP reply. The header name is matched case-insensitively.
func ParseLocation(resp string) (string, bool) {
	sc := bufio.NewScanner(strings.NewReader(resp))
	for sc.Scan() {
		line := sc.Text()
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "location") {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			return v, true
		}
	}
	return "", false
}

func (p *Prober) request() string {
	return fmt.Sprintf("M-SEARCH * HTTP/1.1\r\nHOST: %s\r\nMAN: \"ssdp:discover\"\r\nMX: 1\r\nST: %s\r\n\r\n",
		MulticastAddr, p.searchTarget())
}

func (p *Prober) target() string {
	if p.Target == "" {
		return MulticastAddr
	}
	return p.Target
}

func (p *Prober) searchTarget() string {
	if p.SearchTarget == "" {
		return DefaultSearchTarget
	}
	return p.SearchTarget
}

func (p *Prober) marker() string {
	if p.Marker == "" {
		return DefaultVendorMarker
	}
	return p.Marker
}
