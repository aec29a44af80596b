//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	"dayplan/app"
	"dayplan/hal"
	"dayplan/internal/config"
)

func main() {
	var (
		hcfg       hal.HeadlessConfig
		configPath string
		scriptPath string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", "dayplan.yaml", "Path to the YAML config (created on first run).")
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Tick rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&scriptPath, "script", "", "Key script to play at start (\"-\" reads stdin).")
	flag.StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error).")
	flag.Parse()

	if err := run(configPath, scriptPath, logLevel, hcfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, scriptPath, logLevel string, hcfg hal.HeadlessConfig) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	script, err := readScript(scriptPath)
	if err != nil {
		return err
	}

	opts := hal.HostOptions{LogOutput: os.Stdout}
	if cfg.Storage.Backend == config.BackendFlash {
		opts.FlashPath = cfg.Storage.FlashPath
		opts.FlashSize = cfg.Storage.FlashSize
		opts.FlashEraseSize = cfg.Storage.FlashEraseSize
	}

	var a *app.App
	newApp := func(h hal.HAL) (func() error, error) {
		var err error
		a, err = app.New(h, app.Options{
			Config:     cfg,
			Timestamps: true,
			Getenv:     os.Getenv,
			Script:     script,
		})
		if err != nil {
			return nil, err
		}
		return a.GuardedStep(), nil
	}
	defer func() {
		if a != nil {
			if err := a.Close(); err != nil {
				log.WithError(err).Warn("close")
			}
		}
	}()

	if hcfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := hal.RunHeadless(ctx, opts, newApp, hcfg)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return hal.RunWindow(opts, newApp)
}

func readScript(path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(b), nil
	}
}
