package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"sonosctl/internal/logger"
)

const (
	appDirName    = "sonosctl"
	configName    = "config.toml"
	configPerm    = 0o644
	configDirPerm = 0o755
)

// ErrInvalid marks a config file that exists but cannot be used.
var ErrInvalid = errors.New("invalid config")

var (
	errInvalidPort        = errors.New("control.port must be in 1..65535")
	errInvalidParallelism = errors.New("discovery.parallelism must be at least 1")
	errNegativeDuration   = errors.New("durations must not be negative")
)

// Config is the persisted application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Control   ControlConfig   `toml:"control"`
	Cache     CacheConfig     `toml:"cache"`
	Log       logger.Config   `toml:"log"`
}

// ServerConfig describes the HTTP control surface.
type ServerConfig struct {
	Listen            string   `toml:"listen"`
	Secret            string   `toml:"secret"`
	ReadHeaderTimeout Duration `toml:"read_header_timeout"`
}

// DiscoveryConfig tunes the probe and the registry build.
type DiscoveryConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BindInterface  string `toml:"bind_interface"`
	SearchTarget   string `toml:"search_target"`
	VendorMarker   string `toml:"vendor_marker"`
	Parallelism    int    `toml:"parallelism"`
	MDNS           bool   `toml:"mdns"`
	MDNSService    string `toml:"mdns_service"`
}

// ControlConfig describes how control endpoints are reached.
type ControlConfig struct {
	Port    int      `toml:"port"`
	Timeout Duration `toml:"timeout"`
}

// CacheConfig bounds the lifetime of a built room registry.
type CacheConfig struct {
	TTL Duration `toml:"ttl"`
}

// Duration is a time.Duration written as a string ("2s", "15m") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:            ":8080",
			ReadHeaderTimeout: Duration{5 * time.Second},
		},
		Discovery: DiscoveryConfig{
			TimeoutSeconds: 3,
			SearchTarget:   "urn:schemas-upnp-org:device:ZonePlayer:1",
			VendorMarker:   "Sonos",
			Parallelism:    8,
			MDNSService:    "_sonos._tcp",
		},
		Control: ControlConfig{
			Port:    1400,
			Timeout: Duration{2 * time.Second},
		},
		Cache: CacheConfig{TTL: Duration{15 * time.Minute}},
		Log:   logger.DefaultConfig(),
	}
}

// Load reads the configuration at path. An empty path means the per-user
// default location. A missing file is created with defaults. A file that
// cannot be read, decoded or validated yields Default() and an error
// wrapping ErrInvalid.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Default(), err
		}
		path = p
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return Default(), fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	// Decode over defaults so omitted keys keep their default values.
	cfg := Default()
	if _, err := toml.Decode(string(b), cfg); err != nil {
		return Default(), fmt.Errorf("%w: toml: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, configPerm)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Control.Port < 1 || c.Control.Port > 65535 {
		return errInvalidPort
	}
	if c.Discovery.Parallelism < 1 {
		return errInvalidParallelism
	}
	if c.Control.Timeout.Duration < 0 || c.Cache.TTL.Duration < 0 || c.Server.ReadHeaderTimeout.Duration < 0 {
		return errNegativeDuration
	}
	return nil
}

// DefaultPath is config.toml under the user's config directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName, configName), nil
}
