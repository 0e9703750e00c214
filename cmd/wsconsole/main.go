package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/wsconsole/internal/config"
	"github.com/rickgao/wsconsole/internal/connection"
	"github.com/rickgao/wsconsole/internal/console"
	"github.com/rickgao/wsconsole/internal/discovery"
	"github.com/rickgao/wsconsole/internal/liveness"
	"github.com/rickgao/wsconsole/internal/transcript"
	"github.com/rickgao/wsconsole/internal/version"
)

type flags struct {
	configPath    string
	url           string
	discover      bool
	probeInterval time.Duration
	ackTimeout    time.Duration
	noHeartbeat   bool
	onDegraded    string
	logLevel      string
	transcript    string
	showVersion   bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to config file (optional)")
	flag.StringVar(&f.url, "url", "", "device web origin, e.g. http://esp32.local")
	flag.BoolVar(&f.discover, "discover", false, "list devices found over mDNS and exit")
	flag.DurationVar(&f.probeInterval, "probe-interval", 0, "heartbeat probe period")
	flag.DurationVar(&f.ackTimeout, "ack-timeout", 0, "deadline for each heartbeat ack")
	flag.BoolVar(&f.noHeartbeat, "no-heartbeat", false, "run without the ping/pong heartbeat")
	flag.StringVar(&f.onDegraded, "on-degraded", "", "missed-ack policy: prompt, reload or ignore")
	flag.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	flag.StringVar(&f.transcript, "transcript", "", "transcript driver: none, sqlite or postgres")
	flag.BoolVar(&f.showVersion, "version", false, "print version and exit")
	flag.Parse()

	if f.showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.LoadWithDefaults(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)

	// Logs go to stderr; stdout carries the device log.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if f.discover {
		if err := listDevices(ctx, cfg, logger); err != nil {
			logger.Error("discovery failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting console",
		"version", version.Version,
		"commit", version.Commit,
		"config", f.configPath,
	)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("console failed", "error", err)
		os.Exit(1)
	}
}

// apply overrides config values with flags that were set.
func (f flags) apply(cfg *config.ConsoleConfig) {
	if f.url != "" {
		cfg.Device.Origin = f.url
	}
	if f.probeInterval > 0 {
		cfg.Liveness.ProbeInterval = f.probeInterval
	}
	if f.ackTimeout > 0 {
		cfg.Liveness.AckTimeout = f.ackTimeout
	}
	if f.noHeartbeat {
		cfg.Liveness.Disabled = true
	}
	if f.onDegraded != "" {
		cfg.Liveness.OnDegraded = f.onDegraded
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.transcript != "" {
		cfg.Transcript.Driver = f.transcript
	}
}

func run(ctx context.Context, cfg *config.ConsoleConfig, logger *slog.Logger) error {
	origin := cfg.Device.Origin
	if origin == "" {
		dev, err := discovery.First(ctx, discoveryConfig(cfg), logger)
		if err != nil {
			return fmt.Errorf("discover device: %w", err)
		}
		origin = dev.Origin()
		if path, ok := dev.TXT("path"); ok && path != "" {
			cfg.Device.WSPath = path
		}
		logger.Info("using discovered device", "instance", dev.Instance, "origin", origin)
	}

	wsURL, err := connection.EndpointURL(origin, cfg.Device.WSPath)
	if err != nil {
		return err
	}
	logoutURL, err := connection.LogoutURL(origin, cfg.Device.LogoutPath)
	if err != nil {
		return err
	}

	opts := []console.Option{console.WithLogger(logger)}

	// Transcript archive
	store, err := transcript.Open(ctx, cfg.Transcript)
	if err != nil {
		return err
	}
	if store != nil {
		writer := transcript.NewWriter(transcript.WriterConfigFrom(cfg.Transcript), store, logger)
		if err := writer.Start(ctx); err != nil {
			store.Close()
			return fmt.Errorf("start transcript writer: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			writer.Stop(shutdownCtx)
			store.Close()
		}()
		opts = append(opts, console.WithRecorder(writer))
		logger.Info("transcript enabled", "driver", cfg.Transcript.Driver)
	}

	view := console.NewView(os.Stdout, isTerminal(os.Stdout))
	prompter, err := console.NewPrompter(cfg.Liveness.OnDegraded, view)
	if err != nil {
		return err
	}

	runner := console.NewRunner(console.RunnerConfig{
		Session: console.SessionConfig{
			Client: connection.ClientConfig{
				URL:              wsURL,
				UserAgent:        version.UserAgent(),
				HandshakeTimeout: cfg.Device.HandshakeTimeout,
				WriteTimeout:     cfg.Device.WriteTimeout,
				ReadLimit:        cfg.Device.ReadLimit,
				BufferSize:       cfg.Session.BufferSize,
			},
			Liveness: liveness.Config{
				Disabled:      cfg.Liveness.Disabled,
				ProbeInterval: cfg.Liveness.ProbeInterval,
				AckTimeout:    cfg.Liveness.AckTimeout,
				ProbeToken:    cfg.Liveness.ProbeToken,
				AckToken:      cfg.Liveness.AckToken,
			},
			LogoutURL:  logoutURL,
			ClearToken: cfg.Session.ClearToken,
		},
		ReloadDelay:      cfg.Session.ReloadDelay,
		ReconnectOnClose: cfg.Session.ReconnectOnClose,
	}, view, prompter, console.ReadLines(ctx, os.Stdin), opts...)

	view.Notice("type /help for commands")
	outcome, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("console exited",
		"outcome", outcome,
		"sessions", runner.Sessions(),
	)
	return nil
}

func listDevices(ctx context.Context, cfg *config.ConsoleConfig, logger *slog.Logger) error {
	devices, err := discovery.Browse(ctx, discoveryConfig(cfg), logger)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no devices found")
	}
	for _, d := range devices {
		fmt.Printf("%s\t%s\t%s\n", d.Instance, d.Origin(), d.Host)
	}
	return nil
}

func discoveryConfig(cfg *config.ConsoleConfig) discovery.Config {
	return discovery.Config{
		Service:  cfg.Discovery.Service,
		Domain:   cfg.Discovery.Domain,
		Instance: cfg.Discovery.Instance,
		Timeout:  cfg.Discovery.Timeout,
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
