// cmd/guard/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"tinygo.org/x/bluetooth"

	"github.com/tamzrod/beacon-guard/internal/alarm"
	"github.com/tamzrod/beacon-guard/internal/clock"
	"github.com/tamzrod/beacon-guard/internal/config"
	"github.com/tamzrod/beacon-guard/internal/distance"
	"github.com/tamzrod/beacon-guard/internal/events"
	"github.com/tamzrod/beacon-guard/internal/fusion"
	"github.com/tamzrod/beacon-guard/internal/presence"
	"github.com/tamzrod/beacon-guard/internal/registry"
	"github.com/tamzrod/beacon-guard/internal/reporter"
	"github.com/tamzrod/beacon-guard/internal/reporter/backend"
	"github.com/tamzrod/beacon-guard/internal/scheduler"
	"github.com/tamzrod/beacon-guard/internal/status"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts, fs, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(os.Stderr, fs)
			return nil
		}
		return err
	}
	if opts.help {
		printHelp(os.Stderr, fs)
		return nil
	}

	logger, err := newLogger(os.Stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.discover {
		return runDiscover(ctx, os.Stdout, opts.discoverFor)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	g := cfg.Guard

	clk := clock.Real()

	// --------------------
	// Actuator first: every later failure still leaves the pin off
	// --------------------

	pin, closePin, err := openPin(g.Alarm, opts.dryRun, logger)
	if err != nil {
		return err
	}
	defer closePin()

	pattern := alarm.PatternFromConfig(g.Alarm.Pattern)
	act := alarm.New(pin, pattern, clk, logger)
	defer act.Stop()

	if opts.testBuzzer {
		logger.Info("buzzer self-test", "chip", g.Alarm.Chip, "pin", *g.Alarm.Pin)
		return runBuzzerTest(ctx, act, pattern)
	}

	// --------------------
	// Event fan-out (optional)
	// --------------------

	var (
		pub     events.Publisher = events.Nop{}
		workers []worker
	)
	if g.MQTT.Broker != "" {
		client, closeMQTT, err := events.Connect(g.MQTT)
		if err != nil {
			return err
		}
		defer closeMQTT()
		mp := events.NewMQTTPublisher(client, g.MQTT.Topic, events.DefaultQueue, logger)
		pub = mp
		workers = append(workers, worker{"events", mp.Run})

		if g.MQTT.LogTopic != "" {
			lw := events.NewLogWriter(client, g.MQTT.LogTopic, logMirrorQueue)
			workers = append(workers, worker{"log mirror", lw.Run})
			mirror := io.MultiWriter(os.Stderr, lw)
			if logger, err = newLogger(mirror, opts.logLevel, opts.logFormat); err != nil {
				return err
			}
			slog.SetDefault(logger)
		}
	}

	// --------------------
	// Registry + sensors
	// --------------------

	reg, err := registry.Load(ctx, registry.NewLoader(g, logger))
	if err != nil {
		return err
	}
	logger.Info("assets registered", "count", reg.Len())

	dist, closeSerial, err := distance.Build(g.Serial, clk, logger)
	if err != nil {
		return err
	}
	defer closeSerial()

	seen := presence.NewMap(reg.MACs()...)
	scanner := presence.NewScanner(bluetooth.DefaultAdapter, seen, clk, logger)
	if err := scanner.Enable(); err != nil {
		return err
	}

	// --------------------
	// Reporting
	// --------------------

	api, err := backend.NewClient(backend.Config{
		BaseURL: g.Backend.BaseURL,
		Timeout: time.Duration(g.Backend.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	store, closeStore, err := status.Build(ctx, g.State)
	if err != nil {
		return err
	}
	defer closeStore()

	rep := reporter.New(api, reporter.Options{
		Store:  store,
		Events: pub,
		Clock:  clk,
		Logger: logger,
		Queue:  reg.Len(),
	})
	if err := rep.Seed(ctx, reg.Serials()); err != nil {
		logger.Warn("reported status unavailable, starting from safe", "error", err)
	}

	// --------------------
	// Control loop
	// --------------------

	policy, err := fusion.ParsePolicy(g.Distance.Policy)
	if err != nil {
		return err
	}

	deps := scheduler.Deps{
		Registry: reg,
		Presence: seen,
		Distance: dist,
		Actuator: act,
		Reporter: rep,
		Events:   pub,
		Clock:    clk,
		Logger:   logger,
	}
	var tel *reporter.Telemetry
	if !g.Telemetry.Disabled {
		tel = reporter.NewTelemetry(api, g.Telemetry.Queue, logger)
		deps.Telemetry = tel
	}

	sched, err := scheduler.New(scheduler.Config{
		Period: time.Duration(g.TickMs) * time.Millisecond,
		Rule:   fusion.Rule{Policy: policy, ThresholdCm: g.Distance.ThresholdCm},
	}, deps)
	if err != nil {
		return err
	}

	workers = append(workers,
		worker{"scanner", scanner.Run},
		worker{"reporter", rep.Run},
		worker{"scheduler", sched.Run},
	)
	if tel != nil {
		workers = append(workers, worker{"telemetry", tel.Run})
	}

	// a panicking worker becomes an error, so the deferred act.Stop above
	// still runs on this goroutine
	grp, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		grp.Go(w.guarded(gctx))
	}

	err = grp.Wait()
	logger.Info("shutdown complete")
	return err
}

func openPin(c config.AlarmConfig, dryRun bool, logger *slog.Logger) (alarm.Pin, func() error, error) {
	if dryRun {
		return alarm.LogPin{Logger: logger}, func() error { return nil }, nil
	}
	p, err := alarm.OpenGPIO(c.Chip, *c.Pin, c.ActiveLow)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
