// Package httpapi exposes room-addressed remote control over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"sonosctl/internal/upnp"
)

// RoomDirectory resolves room names to coordinator records.
type RoomDirectory interface {
	Rooms(ctx context.Context) map[string]upnp.Device
	Lookup(ctx context.Context, roomName string) (upnp.Device, bool)
	Devices(ctx context.Context) []upnp.Device
	Refresh(ctx context.Context) map[string]upnp.Device
}

// Controller issues control actions against a player address.
type Controller interface {
	GetVolume(ctx context.Context, address string) (int, bool)
	SetVolume(ctx context.Context, address string, volume int) bool
	VolumeUp(ctx context.Context, address string, step int) bool
	VolumeDown(ctx context.Context, address string, step int) bool
	Play(ctx context.Context, address string) bool
	Stop(ctx context.Context, address string) bool
	PlayStream(ctx context.Context, address, streamURL string) bool
}

// Server holds the HTTP handlers.
type Server struct {
	rooms  RoomDirectory
	ctl    Controller
	secret string
	log    zerolog.Logger
}

// New returns a Server. An empty secret leaves the API open.
func New(rooms RoomDirectory, ctl Controller, secret string, log zerolog.Logger) *Server {
	return &Server{rooms: rooms, ctl: ctl, secret: secret, log: log}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(SecretGate(s.secret))

		r.Get("/rooms", s.handleRooms)
		r.Post("/rooms/refresh", s.handleRefresh)
		r.Get("/devices", s.handleDevices)

		r.Get("/volume", s.handleGetVolume)
		r.Post("/volume", s.handleSetVolume)
		r.Post("/volumeUp", s.handleVolumeUp)
		r.Post("/volumeDown", s.handleVolumeDown)

		r.Post("/playStreamOnRoom", s.handlePlayStream)
		r.Post("/play", s.handlePlay)
		r.Post("/stop", s.handleStop)
	})

	return r
}
