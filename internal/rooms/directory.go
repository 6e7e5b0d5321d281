package rooms

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sonosctl/internal/cache"
	"sonosctl/internal/upnp"
)

const registryKey = "rooms"

// Registry produces devices and room registries from the network.
type Registry interface {
	ListDevices(ctx context.Context) []upnp.Device
	ListRooms(ctx context.Context) map[string]upnp.Device
}

// Directory serves room lookups from a registry that is rebuilt whole
// once its TTL has passed or after Invalidate.
type Directory struct {
	registry Registry
	cache    *cache.Cache[map[string]upnp.Device]
	log      zerolog.Logger
}

// NewDirectory caches registry's room map for ttl.
func NewDirectory(registry Registry, ttl time.Duration, log zerolog.Logger) *Directory {
	return &Directory{
		registry: registry,
		cache:    cache.New[map[string]upnp.Device](ttl),
		log:      log,
	}
}

// Rooms returns the current room registry, building it on a miss.
func (d *Directory) Rooms(ctx context.Context) map[string]upnp.Device {
	rooms, err := d.cache.GetOrLoad(ctx, registryKey, func(ctx context.Context) (map[string]upnp.Device, error) {
		r := d.registry.ListRooms(ctx)
		d.log.Info().Int("rooms", len(r)).Msg("room registry built")
		return r, nil
	})
	if err != nil {
		return map[string]upnp.Device{}
	}
	return maps.Clone(rooms)
}

// Lookup resolves a room name to its coordinator. An exact match wins over
// a case-insensitive one.
func (d *Directory) Lookup(ctx context.Context, roomName string) (upnp.Device, bool) {
	if roomName == "" {
		return upnp.Device{}, false
	}
	rooms := d.Rooms(ctx)
	if dev, ok := rooms[roomName]; ok {
		return dev, true
	}
	for name, dev := range rooms {
		if strings.EqualFold(name, roomName) {
			return dev, true
		}
	}
	return upnp.Device{}, false
}

// Devices runs a fresh, uncached discovery pass.
func (d *Directory) Devices(ctx context.Context) []upnp.Device {
	return d.registry.ListDevices(ctx)
}

// Invalidate discards the cached registry.
func (d *Directory) Invalidate() {
	d.cache.Invalidate(registryKey)
}

// Refresh discards the cached registry and builds a new one.
func (d *Directory) Refresh(ctx context.Context) map[string]upnp.Device {
	d.Invalidate()
	return d.Rooms(ctx)
}
