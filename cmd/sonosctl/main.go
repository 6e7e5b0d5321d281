package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sonosctl/internal/config"
	"sonosctl/internal/httpapi"
	"sonosctl/internal/logger"
	"sonosctl/internal/mdns"
	"sonosctl/internal/netifaces"
	"sonosctl/internal/rooms"
	"sonosctl/internal/ssdp"
	"sonosctl/internal/upnp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "sonosctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sonosctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config.toml (default: user config dir)")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: sonosctl [-config path] [-debug] serve|rooms|devices")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := "serve"
	if fs.NArg() > 0 {
		cmd = fs.Arg(0)
	}

	cfg, cfgErr := config.Load(*configPath)
	if errors.Is(cfgErr, config.ErrInvalid) {
		return cfgErr
	}
	if *debug {
		cfg.Log.Debug = true
	}
	if cmd != "serve" {
		// stdout carries the JSON result
		cfg.Log.Output = "stderr"
	}
	log, err := logger.Init(cfg.Log)
	if err != nil {
		return err
	}
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("using default configuration")
	}

	builder, client, err := wire(cfg, log)
	if err != nil {
		return err
	}

	switch cmd {
	case "serve":
		dir := rooms.NewDirectory(builder, cfg.Cache.TTL.Duration, logger.WithComponent(log, "rooms"))
		return serve(cfg, dir, client, log)
	case "rooms":
		return printJSON(stdout, builder.ListRooms(context.Background()))
	case "devices":
		return printJSON(stdout, builder.ListDevices(context.Background()))
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// wire assembles the discovery sources and control client from cfg.
func wire(cfg *config.Config, log zerolog.Logger) (*rooms.Builder, *upnp.Client, error) {
	prober := ssdp.NewProber(logger.WithComponent(log, "ssdp"))
	prober.SearchTarget = cfg.Discovery.SearchTarget
	prober.Marker = cfg.Discovery.VendorMarker
	if name := cfg.Discovery.BindInterface; name != "" {
		ifi, ip, err := netifaces.Lookup(name)
		if err != nil {
			return nil, nil, fmt.Errorf("bind interface: %w", err)
		}
		prober.Interface = ifi
		prober.BindIP = ip
	}

	sources := []rooms.Discoverer{prober}
	if cfg.Discovery.MDNS {
		sources = append(sources, mdns.NewBrowser(cfg.Discovery.MDNSService, cfg.Control.Port, logger.WithComponent(log, "mdns")))
	}

	client := upnp.NewClient(cfg.Control.Timeout.Duration, logger.WithComponent(log, "upnp"))
	client.Port = cfg.Control.Port

	builder := rooms.NewBuilder(client, cfg.Discovery.TimeoutSeconds, cfg.Discovery.Parallelism,
		logger.WithComponent(log, "rooms"), sources...)
	return builder, client, nil
}

func serve(cfg *config.Config, dir *rooms.Directory, client *upnp.Client, log zerolog.Logger) error {
	api := httpapi.New(dir, client, cfg.Server.Secret, logger.WithComponent(log, "http"))
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Bool("auth", cfg.Server.Secret != "").Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
