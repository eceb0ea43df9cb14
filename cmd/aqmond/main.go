// SPDX-License-Identifier: MIT

// Command aqmond is the air quality monitoring daemon: it polls the
// sensors, drives the OLED, persists readings and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.bug.st/serial"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/piairqual/piairqual/internal/api"
	"github.com/piairqual/piairqual/internal/config"
	"github.com/piairqual/piairqual/internal/daemon"
	"github.com/piairqual/piairqual/internal/display"
	"github.com/piairqual/piairqual/internal/health"
	aqlog "github.com/piairqual/piairqual/internal/log"
	"github.com/piairqual/piairqual/internal/monitor"
	"github.com/piairqual/piairqual/internal/sensor"
	"github.com/piairqual/piairqual/internal/sensor/pms5003"
	"github.com/piairqual/piairqual/internal/sensor/scd4x"
	"github.com/piairqual/piairqual/internal/sensor/sgp30"
	"github.com/piairqual/piairqual/internal/sensor/simulated"
	"github.com/piairqual/piairqual/internal/store"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	simulate := flag.Bool("simulate", false, "use simulated sensors and a terminal display")
	flag.Parse()

	if *showVersion {
		fmt.Printf("aqmond %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	aqlog.Configure(aqlog.Config{
		Level:   "info",
		Service: "aqmond",
		Version: version,
	})
	logger := aqlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Explicit --config wins; otherwise pick up ${AQ_DATA}/config.yaml
	// when it exists.
	effectivePath := *configPath
	if effectivePath == "" {
		dataDir := config.ParseString("AQ_DATA", config.Default().DataDir)
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectivePath = autoPath
		}
	}

	loader := config.NewLoader(effectivePath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectivePath).
			Msg("failed to load configuration")
	}
	if *simulate {
		cfg.Simulate = true
	}
	aqlog.SetLevel(cfg.LogLevel)

	logger.Info().
		Str("event", "config.loaded").
		Str("config_path", effectivePath).
		Str("listen", cfg.ListenAddr).
		Dur("poll_interval", cfg.PollInterval).
		Bool("simulate", cfg.Simulate).
		Msg("configuration loaded")

	if err := run(ctx, cfg, loader, effectivePath); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon exited with error")
	}
}

func run(ctx context.Context, cfg config.Config, loader *config.Loader, configPath string) error {
	logger := aqlog.WithComponent("main")

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	mgr := daemon.New(daemon.Options{
		ListenAddr:     cfg.ListenAddr,
		MetricsAddr:    cfg.MetricsAddr,
		MetricsHandler: promhttp.Handler(),
	})

	co2, gas, pm, err := buildSensors(cfg, mgr)
	if err != nil {
		return err
	}

	var sinks []monitor.Sink
	var db *store.DB
	if cfg.DBPath != "" {
		db, err = store.Open(filepath.Join(cfg.DataDir, cfg.DBPath))
		if err != nil {
			return err
		}
		mgr.RegisterShutdownHook("store", func(context.Context) error { return db.Close() })
		sinks = append(sinks, db)

		if cfg.Retention > 0 {
			mgr.AddTask("prune", func(ctx context.Context) error {
				return pruneLoop(ctx, db, cfg.Retention)
			})
		}
	}
	if cfg.CSVEnabled {
		csvLog, err := store.NewCSVLogger(cfg.DataDir, time.Now())
		if err != nil {
			return err
		}
		logger.Info().Str("event", "csv.session_started").Str("path", csvLog.Path()).Msg("session log created")
		mgr.RegisterShutdownHook("csv", func(context.Context) error { return csvLog.Close() })
		sinks = append(sinks, csvLog)
	}

	mon := monitor.New(monitor.Options{
		CO2:         co2,
		Gas:         gas,
		Particulate: pm,
		Interval:    cfg.PollInterval,
		HistorySize: cfg.HistorySize,
		Sinks:       sinks,
	})
	mgr.AddTask("monitor", mon.Run)

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewSensorChecker(mon.Latest, 3*cfg.PollInterval, 30*time.Second))
	if db != nil {
		hm.RegisterChecker(health.NewStoreChecker(db))
	}

	apiOpts := api.Options{
		Source:           mon,
		Health:           hm,
		Version:          version,
		ExportRatePerMin: cfg.ExportRatePerMin,
	}
	if db != nil {
		apiOpts.Archive = db
	}
	mgr.SetAPIHandler(api.New(apiOpts).Router())

	if cfg.DisplayEnabled {
		dev, err := buildDisplay(cfg)
		if err != nil {
			return err
		}
		mgr.RegisterShutdownHook("display", func(context.Context) error { return dev.Close() })
		mgr.AddTask("display", display.NewLoop(dev, mon.Latest, mon.History()).Run)
	}

	// Live reload: SIGHUP or a change to the config file re-applies the
	// poll interval and log level.
	if configPath != "" {
		holder := config.NewHolder(cfg, loader, configPath)
		holder.Subscribe(func(c config.Config) {
			mon.SetInterval(c.PollInterval)
			aqlog.SetLevel(c.LogLevel)
		})
		mgr.AddTask("config-watch", holder.Watch)
		mgr.AddTask("sighup", func(ctx context.Context) error {
			return watchSIGHUP(ctx, holder)
		})
	}

	return mgr.Start(ctx)
}

// buildSensors wires either the hardware drivers or the simulated ones,
// registering bus cleanup hooks on mgr.
func buildSensors(cfg config.Config, mgr *daemon.Manager) (sensor.CO2Sensor, sensor.GasSensor, sensor.ParticulateSensor, error) {
	if cfg.Simulate {
		opts := simulated.Options{}
		return simulated.NewCO2Sensor(opts), simulated.NewGasSensor(opts), simulated.NewParticulateSensor(opts), nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}
	mgr.RegisterShutdownHook("i2c-bus", func(context.Context) error { return bus.Close() })

	port, err := serial.Open(cfg.PMSPort, &serial.Mode{BaudRate: 9600})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open serial port %s: %w", cfg.PMSPort, err)
	}
	mgr.RegisterShutdownHook("serial-port", func(context.Context) error { return port.Close() })

	co2 := scd4x.New(&i2c.Dev{Bus: bus, Addr: cfg.SCD4xAddr})
	gas := sgp30.New(&i2c.Dev{Bus: bus, Addr: cfg.SGP30Addr})
	return co2, gas, pms5003.New(port), nil
}

// buildDisplay picks the OLED in hardware mode and a terminal device when
// simulating.
func buildDisplay(cfg config.Config) (display.Device, error) {
	if cfg.Simulate {
		return display.NewTerminal(os.Stdout, true), nil
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus for display: %w", err)
	}
	dev, err := display.NewSH1106(bus, cfg.DisplayAddr, cfg.DisplayRotate)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return &closingDisplay{SH1106: dev, bus: bus}, nil
}

// closingDisplay closes the display's dedicated bus handle with the
// device.
type closingDisplay struct {
	*display.SH1106
	bus io.Closer
}

func (c *closingDisplay) Close() error {
	return errors.Join(c.SH1106.Close(), c.bus.Close())
}

// pruneLoop drops readings older than the retention window once an hour.
func pruneLoop(ctx context.Context, db *store.DB, retention time.Duration) error {
	logger := aqlog.WithComponent("prune")
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		n, err := db.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Warn().Err(err).Str("event", "store.prune_failed").Msg("retention prune failed")
			continue
		}
		if n > 0 {
			logger.Info().Int64("rows", n).Str("event", "store.pruned").Msg("old readings removed")
		}
	}
}

// watchSIGHUP reloads the configuration on SIGHUP until ctx is done.
func watchSIGHUP(ctx context.Context, holder *config.Holder) error {
	logger := aqlog.WithComponent("main")
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			logger.Info().Str("event", "config.sighup").Msg("SIGHUP received, reloading configuration")
			if err := holder.Reload(ctx); err != nil {
				logger.Warn().Err(err).Str("event", "config.reload_failed").Msg("reload failed, keeping previous configuration")
			}
		}
	}
}
