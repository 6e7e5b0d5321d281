package upnp

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	minVolume = 0
	maxVolume = 100
)

// ClampVolume bounds v to the 0..100 range players accept.
func ClampVolume(v int) int {
	if v < minVolume {
		return minVolume
	}
	if v > maxVolume {
		return maxVolume
	}
	return v
}

// GetVolume reads the master volume of the player at address.
func (c *Client) GetVolume(ctx context.Context, address string) (int, bool) {
	body := actionElement(serviceRenderingControl, "GetVolume",
		`<InstanceID>0</InstanceID><Channel>Master</Channel>`)
	resp, ok := c.call(ctx, address, mediaRenderer, serviceRenderingControl, "GetVolume", body)
	if !ok {
		return 0, false
	}
	raw, ok := extractTag(resp, "CurrentVolume")
	if !ok {
		c.log.Debug().Str("address", address).Msg("volume missing from response")
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.log.Debug().Err(err).Str("address", address).Msg("volume not an integer")
		return 0, false
	}
	return v, true
}

// SetVolume sets the master volume, clamped to 0..100.
func (c *Client) SetVolume(ctx context.Context, address string, volume int) bool {
	body := actionElement(serviceRenderingControl, "SetVolume",
		fmt.Sprintf(`<InstanceID>0</InstanceID><Channel>Master</Channel><DesiredVolume>%d</DesiredVolume>`, ClampVolume(volume)))
	_, ok := c.call(ctx, address, mediaRenderer, serviceRenderingControl, "SetVolume", body)
	return ok
}

// VolumeUp raises the volume by step relative to its current value.
func (c *Client) VolumeUp(ctx context.Context, address string, step int) bool {
	return c.adjustVolume(ctx, address, step)
}

// VolumeDown lowers the volume by step relative to its current value.
func (c *Client) VolumeDown(ctx context.Context, address string, step int) bool {
	return c.adjustVolume(ctx, address, -step)
}

func (c *Client) adjustVolume(ctx context.Context, address string, delta int) bool {
	current, ok := c.GetVolume(ctx, address)
	if !ok {
		return false
	}
	return c.SetVolume(ctx, address, current+delta)
}

// Stop stops the transport.
func (c *Client) Stop(ctx context.Context, address string) bool {
	body := actionElement(serviceAVTransport, "Stop", `<InstanceID>0</InstanceID>`)
	_, ok := c.call(ctx, address, mediaRenderer, serviceAVTransport, "Stop", body)
	return ok
}

// Play starts the transport at normal speed.
func (c *Client) Play(ctx context.Context, address string) bool {
	body := actionElement(serviceAVTransport, "Play", `<InstanceID>0</InstanceID><Speed>1</Speed>`)
	_, ok := c.call(ctx, address, mediaRenderer, serviceAVTransport, "Play", body)
	return ok
}

// PlayStream assigns streamURL as the transport URI and starts playback.
// Assigning a URI does not start playback by itself, so both actions must
// succeed.
func (c *Client) PlayStream(ctx context.Context, address, streamURL string) bool {
	if !validURL(streamURL) {
		c.log.Debug().Str("stream", streamURL).Msg("rejected stream url")
		return false
	}
	body := actionElement(serviceAVTransport, "SetAVTransportURI", fmt.Sprintf(
		`<InstanceID>0</InstanceID><CurrentURI>%s</CurrentURI><CurrentURIMetaData></CurrentURIMetaData>`,
		xmlEscape(streamURL)))
	if _, ok := c.call(ctx, address, mediaRenderer, serviceAVTransport, "SetAVTransportURI", body); !ok {
		return false
	}
	return c.Play(ctx, address)
}

// validURL accepts absolute URLs with a scheme and a host.
func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
