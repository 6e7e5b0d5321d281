package upnp

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type soapCall struct {
	Path        string
	SOAPAction  string
	ContentType string
	Length      int64
	Body        string
}

// fakePlayer answers description and control requests the way a zone
// player does. Responses are keyed by action name.
type fakePlayer struct {
	mu          sync.Mutex
	calls       []soapCall
	responses   map[string]string
	status      map[string]int
	description string
	descStatus  int
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		responses: map[string]string{},
		status:    map[string]int{},
	}
}

func (f *fakePlayer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && r.URL.Path == "/xml/device_description.xml" {
		if f.descStatus != 0 {
			w.WriteHeader(f.descStatus)
			return
		}
		_, _ = io.WriteString(w, f.description)
		return
	}

	body, _ := io.ReadAll(r.Body)
	soapAction := r.Header.Get("SOAPACTION")
	action := strings.Trim(soapAction, `"`)
	if i := strings.LastIndex(action, "#"); i >= 0 {
		action = action[i+1:]
	}

	f.mu.Lock()
	f.calls = append(f.calls, soapCall{
		Path:        r.URL.Path,
		SOAPAction:  soapAction,
		ContentType: r.Header.Get("Content-Type"),
		Length:      r.ContentLength,
		Body:        string(body),
	})
	status := f.status[action]
	resp := f.responses[action]
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, resp)
}

func (f *fakePlayer) setStatus(action string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[action] = code
}

func (f *fakePlayer) Calls() []soapCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]soapCall(nil), f.calls...)
}

func (f *fakePlayer) actions() []string {
	var out []string
	for _, c := range f.Calls() {
		a := strings.Trim(c.SOAPAction, `"`)
		out = append(out, a[strings.LastIndex(a, "#")+1:])
	}
	return out
}

// startPlayer serves f and returns a client pointed at it plus its address.
func startPlayer(t *testing.T, f *fakePlayer) (*Client, string, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	c := NewClient(time.Second, zerolog.Nop())
	c.Port = p
	return c, host, srv
}

func responseEnvelope(action, inner string) string {
	return `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" ` +
		`s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>` +
		`<u:` + action + `Response xmlns:u="urn:schemas-upnp-org:service:X:1">` + inner +
		`</u:` + action + `Response></s:Body></s:Envelope>`
}
