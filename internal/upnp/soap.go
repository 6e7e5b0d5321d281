// Package upnp talks to zone players over their HTTP control endpoints:
// it reads device descriptions, resolves group coordinators and issues
// rendering and transport actions. Every exported operation fails closed,
// reporting absent or false instead of an error.
package upnp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPort is where players serve descriptions and control endpoints.
	DefaultPort = 1400
	// DefaultTimeout bounds every request made by a Client.
	DefaultTimeout = 2 * time.Second

	serviceAVTransport       = "AVTransport"
	serviceRenderingControl  = "RenderingControl"
	serviceZoneGroupTopology = "ZoneGroupTopology"
)

var (
	errEmptyInput = errors.New("empty control input")
	errHTTPStatus = errors.New("unexpected http status")
)

// endpoint selects the URL shape of a control service.
type endpoint int

const (
	// mediaRenderer services live under /MediaRenderer/{service}/Control.
	mediaRenderer endpoint = iota
	// topLevel services live under /{service}/Control.
	topLevel
)

// Client issues control actions against players.
type Client struct {
	// Port overrides DefaultPort for control and topology calls.
	Port int

	http *http.Client
	log  zerolog.Logger
}

// NewClient returns a Client whose requests time out after timeout.
// A non-positive timeout selects DefaultTimeout.
func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		Port: DefaultPort,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// call wraps body in an envelope and posts it to the service's control URL.
// It returns the raw response body on HTTP success.
func (c *Client) call(ctx context.Context, address string, ep endpoint, service, action, body string) ([]byte, bool) {
	if address == "" || service == "" || action == "" || body == "" {
		c.log.Debug().Err(errEmptyInput).Str("address", address).Str("action", action).Msg("control call skipped")
		return nil, false
	}

	b, err := c.post(ctx, c.controlURL(address, ep, service), serviceURN(service)+"#"+action, envelope(body))
	if err != nil {
		c.log.Debug().Err(err).Str("address", address).Str("service", service).Str("action", action).Msg("control call failed")
		return nil, false
	}
	return b, true
}

func (c *Client) controlURL(address string, ep endpoint, service string) string {
	host := net.JoinHostPort(address, strconv.Itoa(c.port()))
	if ep == topLevel {
		return fmt.Sprintf("http://%s/%s/Control", host, service)
	}
	return fmt.Sprintf("http://%s/MediaRenderer/%s/Control", host, service)
}

func (c *Client) port() int {
	if c.Port <= 0 {
		return DefaultPort
	}
	return c.Port
}

func (c *Client) post(ctx context.Context, url string, action string, xml string) ([]byte, error) {
	payload := []byte(xml)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(payload))
	req.Header.Set("Content-Type", "text/xml; charset=\"utf-8\"")
	req.Header.Set("SOAPACTION", fmt.Sprintf("\"%s\"", action))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %d: %s", errHTTPStatus, resp.StatusCode, string(b))
	}
	return b, nil
}

func serviceURN(service string) string {
	return "urn:schemas-upnp-org:service:" + service + ":1"
}

// actionElement is the namespaced element naming the action and its arguments.
func actionElement(service, action, args string) string {
	return fmt.Sprintf(`<u:%s xmlns:u="%s">%s</u:%s>`, action, serviceURN(service), args, action)
}

func envelope(body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    %s
  </s:Body>
</s:Envelope>`, body)
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
