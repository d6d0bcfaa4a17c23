// Package main is the entry point for hexpi.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/renameio/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"hexpi/internal/api"
	"hexpi/internal/config"
	"hexpi/internal/coordinator"
	"hexpi/internal/events"
	"hexpi/internal/logger"
	"hexpi/internal/metrics"
	"hexpi/internal/trigger"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("", "Interrupt received, shutting down")
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

type options struct {
	configFile  string
	showVersion bool
	settings    config.RunConfig
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("hexpi", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := config.DefaultRunConfig()
	var (
		configFile  = fs.String("config", "", "configuration file (YAML/JSON)")
		start       = fs.Int64("start", defaults.Start, "position of the first hex digit after the point")
		count       = fs.Int64("count", defaults.Count, "number of digits to compute")
		workers     = fs.Int("workers", defaults.Workers, "number of parallel workers")
		interval    = fs.Duration("interval", defaults.Coordinator.PauseInterval, "time between pauses (0 disables pausing)")
		trig        = fs.String("trigger", string(defaults.Trigger), "resume trigger: stdin, file, api, delay or none")
		triggerPath = fs.String("trigger-path", "", "file watched by the file trigger")
		resumeAfter = fs.Duration("resume-after", defaults.ResumeAfter, "pause length for the delay trigger")
		out         = fs.String("out", "", "write the digits to this file instead of stdout")
		format      = fs.String("format", defaults.OutputFormat, "output format: hex or decimal")
		server      = fs.Bool("server", false, "serve the HTTP API instead of running once")
		addr        = fs.String("addr", defaults.ServerAddr, "HTTP API address")
		logLevel    = fs.String("log-level", defaults.LogLevel.String(), "log level: debug, info, warn or error")
		showVersion = fs.Bool("version", false, "print the version and exit")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, `hexpi - parallel BBP hex digits of pi

Usage:
  hexpi [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Examples:
  # 1000 digits from position 0, pausing every 5s until Enter is pressed
  hexpi -count 1000

  # resume whenever /tmp/hexpi.resume is touched
  hexpi -start 1000000 -count 64 -trigger file -trigger-path /tmp/hexpi.resume

  # HTTP API with live progress on /ws
  hexpi -server -addr :8080
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := &options{configFile: *configFile, showVersion: *showVersion}
	if opts.showVersion {
		return opts, nil
	}

	settings := defaults
	if *configFile != "" {
		fileConfig, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
		if err := fileConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		settings, err = fileConfig.ToRunConfig()
		if err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	// Flags given explicitly override the file.
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "start":
			settings.Start = *start
		case "count":
			settings.Count = *count
		case "workers":
			settings.Workers = *workers
		case "interval":
			settings.Coordinator.PauseInterval = *interval
		case "trigger":
			kind, err := config.ParseTriggerKind(*trig)
			if err != nil {
				flagErr = err
			}
			settings.Trigger = kind
		case "trigger-path":
			settings.TriggerPath = *triggerPath
		case "resume-after":
			settings.ResumeAfter = *resumeAfter
		case "out":
			settings.OutputPath = *out
		case "format":
			settings.OutputFormat = *format
		case "server":
			settings.Server = *server
		case "addr":
			settings.ServerAddr = *addr
		case "log-level":
			level, err := logger.ParseLevel(*logLevel)
			if err != nil {
				flagErr = err
			}
			settings.LogLevel = level
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	opts.settings = settings
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "hexpi version %s\n", version)
		return ExitSuccess
	}

	cfg := opts.settings

	// The pool, the file trigger and the signal handler log through Default.
	log := logger.Default
	log.SetOutput(stderr)
	log.SetLevel(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	bus := events.NewBus()
	defer bus.Close()

	resume, manual, closeTrigger, err := buildTrigger(ctx, cfg, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	defer closeTrigger()

	coordConfig := cfg.Coordinator
	coordConfig.Trigger = resume
	coordConfig.Logger = log
	coordConfig.EventBus = bus
	coordConfig.Metrics = metrics.NewPrometheus(reg, "hexpi")
	if cfg.Trigger == config.TriggerNone {
		coordConfig.PauseInterval = 0
	}
	coord := coordinator.New(coordConfig)

	server := api.NewServer(api.Config{
		Addr:        cfg.ServerAddr,
		Coordinator: coord,
		Trigger:     manual,
		EventBus:    bus,
		Gatherer:    reg,
		Workers:     cfg.Workers,
		Logger:      log,
	})

	if cfg.Server {
		if err := server.Start(ctx); err != nil {
			log.Error("", "Server error: %v", err)
			return ExitGeneralError
		}
		return ExitSuccess
	}

	if cfg.Trigger == config.TriggerAPI {
		serverCtx, stopServer := context.WithCancel(ctx)
		defer stopServer()
		go func() {
			if err := server.Start(serverCtx); err != nil {
				log.Error("", "Server error: %v", err)
			}
		}()
	}

	result, err := coord.Run(ctx, cfg.Start, cfg.Count, cfg.Workers)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, coordinator.ErrInvalidRange) || errors.Is(err, coordinator.ErrInvalidWorkers) {
			return ExitInvalidArgs
		}
		return ExitGeneralError
	}

	if log.Enabled(logger.LevelInfo) {
		fmt.Fprint(stderr, result.Report())
	}

	if err := writeResult(cfg, result, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	return ExitSuccess
}

// buildTrigger returns the configured resume trigger, the manual trigger that
// /api/resume fires (if any) and a function releasing the trigger's resources.
func buildTrigger(ctx context.Context, cfg config.RunConfig, stdin io.Reader) (trigger.Trigger, *trigger.Manual, func(), error) {
	noop := func() {}

	switch cfg.Trigger {
	case config.TriggerStdin:
		return trigger.NewLine(stdin), nil, noop, nil
	case config.TriggerFile:
		f, err := trigger.NewFile(ctx, cfg.TriggerPath)
		if err != nil {
			return nil, nil, noop, err
		}
		return f, nil, func() { _ = f.Close() }, nil
	case config.TriggerDelay:
		return trigger.Delay(cfg.ResumeAfter), nil, noop, nil
	case config.TriggerAPI, config.TriggerNone:
		m := trigger.NewManual()
		return m, m, noop, nil
	default:
		return nil, nil, noop, fmt.Errorf("unknown trigger: %s", cfg.Trigger)
	}
}

func writeResult(cfg config.RunConfig, result *coordinator.Result, stdout io.Writer) error {
	text := result.Hex
	if cfg.OutputFormat == config.FormatDecimal {
		text = coordinator.FormatDecimal(result.Digits)
	}

	if cfg.OutputPath == "" {
		_, err := fmt.Fprintln(stdout, text)
		return err
	}

	if err := renameio.WriteFile(cfg.OutputPath, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.OutputPath, err)
	}
	fmt.Fprintf(stdout, "wrote %d digits to %s (xxh3 %016x)\n", result.Count, cfg.OutputPath, result.Checksum)
	return nil
}
