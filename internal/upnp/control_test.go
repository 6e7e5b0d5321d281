package upnp

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampVolume(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{1, 1},
		{42, 42},
		{100, 100},
		{150, 100},
		{250, 100},
	}
	for _, tt := range tests {
		got := ClampVolume(tt.in)
		assert.Equal(t, tt.want, got, "clamp(%d)", tt.in)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

func TestGetVolume(t *testing.T) {
	tests := []struct {
		name   string
		resp   string
		status int
		want   int
		wantOK bool
	}{
		{
			name:   "present",
			resp:   responseEnvelope("GetVolume", "<CurrentVolume>42</CurrentVolume>"),
			want:   42,
			wantOK: true,
		},
		{
			name:   "whitespace and attributes",
			resp:   responseEnvelope("GetVolume", `<CurrentVolume dt="ui2"> 7 </CurrentVolume>`),
			want:   7,
			wantOK: true,
		},
		{
			name: "missing tag",
			resp: responseEnvelope("GetVolume", "<CurrentMute>0</CurrentMute>"),
		},
		{
			name: "not a number",
			resp: responseEnvelope("GetVolume", "<CurrentVolume>loud</CurrentVolume>"),
		},
		{
			name:   "http failure",
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePlayer()
			f.responses["GetVolume"] = tt.resp
			f.status["GetVolume"] = tt.status
			c, addr, _ := startPlayer(t, f)

			got, ok := c.GetVolume(context.Background(), addr)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)

			calls := f.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "/MediaRenderer/RenderingControl/Control", calls[0].Path)
			assert.Equal(t, `"urn:schemas-upnp-org:service:RenderingControl:1#GetVolume"`, calls[0].SOAPAction)
			assert.Equal(t, `text/xml; charset="utf-8"`, calls[0].ContentType)
			assert.Equal(t, int64(len(calls[0].Body)), calls[0].Length)
			assert.Contains(t, calls[0].Body, `<u:GetVolume xmlns:u="urn:schemas-upnp-org:service:RenderingControl:1">`)
			assert.Contains(t, calls[0].Body, "<Channel>Master</Channel>")
		})
	}
}

func TestSetVolumeClampsDesiredVolume(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{in: 250, want: "<DesiredVolume>100</DesiredVolume>"},
		{in: -20, want: "<DesiredVolume>0</DesiredVolume>"},
		{in: 35, want: "<DesiredVolume>35</DesiredVolume>"},
	}

	for _, tt := range tests {
		f := newFakePlayer()
		c, addr, _ := startPlayer(t, f)

		require.True(t, c.SetVolume(context.Background(), addr, tt.in))

		calls := f.Calls()
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].Body, tt.want)
		assert.NotContains(t, calls[0].Body, "<DesiredVolume>250</DesiredVolume>")
	}
}

func TestSetVolumeFailsOnHTTPError(t *testing.T) {
	f := newFakePlayer()
	f.status["SetVolume"] = http.StatusInternalServerError
	c, addr, _ := startPlayer(t, f)

	assert.False(t, c.SetVolume(context.Background(), addr, 10))
}

func TestVolumeUpDown(t *testing.T) {
	tests := []struct {
		name    string
		up      bool
		current string
		step    int
		want    string
	}{
		{name: "up", up: true, current: "40", step: 5, want: "<DesiredVolume>45</DesiredVolume>"},
		{name: "up clamps", up: true, current: "98", step: 10, want: "<DesiredVolume>100</DesiredVolume>"},
		{name: "down", current: "40", step: 15, want: "<DesiredVolume>25</DesiredVolume>"},
		{name: "down clamps", current: "3", step: 10, want: "<DesiredVolume>0</DesiredVolume>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePlayer()
			f.responses["GetVolume"] = responseEnvelope("GetVolume", "<CurrentVolume>"+tt.current+"</CurrentVolume>")
			c, addr, _ := startPlayer(t, f)

			var ok bool
			if tt.up {
				ok = c.VolumeUp(context.Background(), addr, tt.step)
			} else {
				ok = c.VolumeDown(context.Background(), addr, tt.step)
			}
			require.True(t, ok)
			assert.Equal(t, []string{"GetVolume", "SetVolume"}, f.actions())
			assert.Contains(t, f.Calls()[1].Body, tt.want)
		})
	}
}

func TestVolumeUpUnreadableSkipsSet(t *testing.T) {
	f := newFakePlayer()
	f.status["GetVolume"] = http.StatusServiceUnavailable
	c, addr, _ := startPlayer(t, f)

	assert.False(t, c.VolumeUp(context.Background(), addr, 5))
	assert.False(t, c.VolumeDown(context.Background(), addr, 5))
	assert.Equal(t, []string{"GetVolume", "GetVolume"}, f.actions())
}

func TestStopAndPlay(t *testing.T) {
	f := newFakePlayer()
	c, addr, _ := startPlayer(t, f)

	assert.True(t, c.Stop(context.Background(), addr))
	assert.True(t, c.Play(context.Background(), addr))

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/MediaRenderer/AVTransport/Control", calls[0].Path)
	assert.Equal(t, `"urn:schemas-upnp-org:service:AVTransport:1#Stop"`, calls[0].SOAPAction)
	assert.Contains(t, calls[0].Body, "<InstanceID>0</InstanceID>")
	assert.Equal(t, `"urn:schemas-upnp-org:service:AVTransport:1#Play"`, calls[1].SOAPAction)
	assert.Contains(t, calls[1].Body, "<Speed>1</Speed>")

	f.setStatus("Stop", http.StatusInternalServerError)
	assert.False(t, c.Stop(context.Background(), addr))
}

func TestPlayStream(t *testing.T) {
	f := newFakePlayer()
	c, addr, _ := startPlayer(t, f)

	stream := "http://radio.example.com/live.mp3?a=1&b=<2>"
	require.True(t, c.PlayStream(context.Background(), addr, stream))

	assert.Equal(t, []string{"SetAVTransportURI", "Play"}, f.actions())
	body := f.Calls()[0].Body
	assert.Contains(t, body, "<CurrentURI>http://radio.example.com/live.mp3?a=1&amp;b=&lt;2&gt;</CurrentURI>")
	assert.Contains(t, body, "<CurrentURIMetaData></CurrentURIMetaData>")
}

func TestPlayStreamRequiresBothSteps(t *testing.T) {
	t.Run("set uri fails", func(t *testing.T) {
		f := newFakePlayer()
		f.status["SetAVTransportURI"] = http.StatusInternalServerError
		c, addr, _ := startPlayer(t, f)

		assert.False(t, c.PlayStream(context.Background(), addr, "http://radio.example.com/live.mp3"))
		assert.Equal(t, []string{"SetAVTransportURI"}, f.actions())
	})

	t.Run("play fails", func(t *testing.T) {
		f := newFakePlayer()
		f.status["Play"] = http.StatusInternalServerError
		c, addr, _ := startPlayer(t, f)

		assert.False(t, c.PlayStream(context.Background(), addr, "http://radio.example.com/live.mp3"))
		assert.Equal(t, []string{"SetAVTransportURI", "Play"}, f.actions())
	})
}

func TestPlayStreamRejectsMalformedURL(t *testing.T) {
	for _, stream := range []string{"not a url", "", "radio.mp3", "http://", "/relative/path"} {
		f := newFakePlayer()
		c, addr, _ := startPlayer(t, f)

		assert.False(t, c.PlayStream(context.Background(), addr, stream), stream)
		assert.Empty(t, f.Calls(), "no request expected for %q", stream)
	}
}

func TestCallShortCircuitsEmptyInput(t *testing.T) {
	f := newFakePlayer()
	c, addr, _ := startPlayer(t, f)
	ctx := context.Background()

	_, ok := c.call(ctx, "", mediaRenderer, serviceAVTransport, "Play", "<x/>")
	assert.False(t, ok)
	_, ok = c.call(ctx, addr, mediaRenderer, "", "Play", "<x/>")
	assert.False(t, ok)
	_, ok = c.call(ctx, addr, mediaRenderer, serviceAVTransport, "", "<x/>")
	assert.False(t, ok)
	_, ok = c.call(ctx, addr, mediaRenderer, serviceAVTransport, "Play", "")
	assert.False(t, ok)

	assert.False(t, c.Play(ctx, ""))
	_, ok = c.GetVolume(ctx, "")
	assert.False(t, ok)

	assert.Empty(t, f.Calls())
}

func TestCallUnreachable(t *testing.T) {
	c := NewClient(0, zerolog.Nop())
	c.Port = 1 // nothing listens on the loopback tcpmux port

	assert.False(t, c.Stop(context.Background(), "127.0.0.1"))
}

func TestControlURL(t *testing.T) {
	c := NewClient(0, zerolog.Nop())

	assert.Equal(t, "http://10.0.0.5:1400/MediaRenderer/AVTransport/Control",
		c.controlURL("10.0.0.5", mediaRenderer, serviceAVTransport))
	assert.Equal(t, "http://10.0.0.5:1400/ZoneGroupTopology/Control",
		c.controlURL("10.0.0.5", topLevel, serviceZoneGroupTopology))
	assert.Equal(t, "http://[fe80::1]:1400/MediaRenderer/RenderingControl/Control",
		c.controlURL("fe80::1", mediaRenderer, serviceRenderingControl))
}
