// Package rooms turns discovery results into device records and the
// room-name to coordinator registry used to address players by room.
package rooms

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sonosctl/internal/upnp"
)

// DefaultParallelism bounds concurrent description fetches.
const DefaultParallelism = 8

// Discoverer yields candidate description URLs within a receive window.
type Discoverer interface {
	Discover(timeoutSeconds int) []string
}

// DescriptorFetcher turns a description URL into an enriched device record.
type DescriptorFetcher interface {
	FetchDescriptor(ctx context.Context, url string) (upnp.Device, bool)
}

// Builder runs one discovery pass per call. It keeps no state between
// passes; coordinator status is recomputed every time.
type Builder struct {
	sources        []Discoverer
	fetcher        DescriptorFetcher
	timeoutSeconds int
	parallelism    int
	log            zerolog.Logger
}

// NewBuilder returns a Builder that merges the URLs of every source.
func NewBuilder(fetcher DescriptorFetcher, timeoutSeconds, parallelism int, log zerolog.Logger, sources ...Discoverer) *Builder {
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}
	return &Builder{
		sources:        sources,
		fetcher:        fetcher,
		timeoutSeconds: timeoutSeconds,
		parallelism:    parallelism,
		log:            log,
	}
}

// ListDevices discovers candidates and fetches each description
// concurrently. Candidates that cannot be described are dropped.
func (b *Builder) ListDevices(ctx context.Context) []upnp.Device {
	urls := b.candidates()

	found := make([]*upnp.Device, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)
	for i, u := range urls {
		g.Go(func() error {
			d, ok := b.fetcher.FetchDescriptor(gctx, u)
			if !ok || d.Address == "" {
				b.log.Debug().Str("url", u).Msg("candidate dropped")
				return nil
			}
			found[i] = &d
			return nil
		})
	}
	_ = g.Wait()

	out := make([]upnp.Device, 0, len(urls))
	for _, d := range found {
		if d != nil {
			out = append(out, *d)
		}
	}
	b.log.Info().Int("candidates", len(urls)).Int("devices", len(out)).Msg("discovery pass complete")
	return out
}

// ListRooms runs ListDevices and keys the coordinators by room name.
func (b *Builder) ListRooms(ctx context.Context) map[string]upnp.Device {
	return RoomsOf(b.ListDevices(ctx))
}

// RoomsOf keeps only coordinators and keys them by room name. When two
// coordinators share a room name the later one wins.
func RoomsOf(devices []upnp.Device) map[string]upnp.Device {
	out := make(map[string]upnp.Device)
	for _, d := range devices {
		if !d.IsCoordinator {
			continue
		}
		out[d.RoomName] = d
	}
	return out
}

// candidates runs every source concurrently and returns the sorted union.
func (b *Builder) candidates() []string {
	results := make([][]string, len(b.sources))
	var g errgroup.Group
	for i, src := range b.sources {
		g.Go(func() error {
			results[i] = src.Discover(b.timeoutSeconds)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	for _, urls := range results {
		for _, u := range urls {
			seen[u] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
