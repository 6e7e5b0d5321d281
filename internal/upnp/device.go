package upnp

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
)

const udnPrefix = "uuid:"

// Device is one discovered player, built from its description document.
type Device struct {
	DescriptionURL string `json:"descriptionUrl"`
	Address        string `json:"address"`
	FriendlyName   string `json:"friendlyName"`
	Manufacturer   string `json:"manufacturer"`
	ModelName      string `json:"modelName"`
	ModelNumber    string `json:"modelNumber"`
	SerialNumber   string `json:"serialNumber"`
	RoomName       string `json:"roomName"`
	UDN            string `json:"udn"`
	UUID           string `json:"uuid"`
	IsCoordinator  bool   `json:"isCoordinator"`
}

type deviceDesc struct {
	Device *struct {
		UDN          string `xml:"UDN"`
		FriendlyName string `xml:"friendlyName"`
		Manufacturer string `xml:"manufacturer"`
		ModelName    string `xml:"modelName"`
		ModelNumber  string `xml:"modelNumber"`
		SerialNum    string `xml:"serialNum"`
		RoomName     string `xml:"roomName"`
	} `xml:"device"`
}

// FetchDescriptor downloads and parses the description at rawURL and
// resolves the player's coordinator status. It reports false when the URL
// is malformed, the request fails, or the document has no device element.
func (c *Client) FetchDescriptor(ctx context.Context, rawURL string) (Device, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.log.Debug().Str("url", rawURL).Msg("rejected description url")
		return Device{}, false
	}
	address := u.Hostname()
	if address == "" {
		return Device{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Device{}, false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("url", rawURL).Msg("fetch description")
		return Device{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug().Int("status", resp.StatusCode).Str("url", rawURL).Msg("fetch description")
		return Device{}, false
	}

	var dd deviceDesc
	if err := xml.NewDecoder(resp.Body).Decode(&dd); err != nil {
		c.log.Debug().Err(err).Str("url", rawURL).Msg("parse description")
		return Device{}, false
	}
	if dd.Device == nil {
		c.log.Debug().Str("url", rawURL).Msg("description has no device element")
		return Device{}, false
	}

	d := Device{
		DescriptionURL: rawURL,
		Address:        address,
		FriendlyName:   strings.TrimSpace(dd.Device.FriendlyName),
		Manufacturer:   strings.TrimSpace(dd.Device.Manufacturer),
		ModelName:      strings.TrimSpace(dd.Device.ModelName),
		ModelNumber:    strings.TrimSpace(dd.Device.ModelNumber),
		SerialNumber:   strings.TrimSpace(dd.Device.SerialNum),
		RoomName:       strings.TrimSpace(dd.Device.RoomName),
		UDN:            strings.TrimSpace(dd.Device.UDN),
	}
	d.UUID = strings.TrimPrefix(d.UDN, udnPrefix)
	d.IsCoordinator = c.IsCoordinator(ctx, d.Address, d.UUID)
	return d, true
}
