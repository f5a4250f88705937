package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"dsipanel/internal/board"
	"dsipanel/internal/config"
	"dsipanel/internal/host"
	appLog "dsipanel/internal/log"
	"dsipanel/internal/panel"
	"dsipanel/internal/web"
)

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
	logLevel   string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file when set.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	if flags.debug {
		conf.Panel.Debug = true
	}
	if lvl, ok := appLog.ParseLevel(conf.LogLevel); ok {
		appLog.SetLevel(lvl)
	} else {
		appLog.Warn("unknown log level, keeping default", "log_level", conf.LogLevel)
	}

	appLog.Info("panelctl starting", "version", "0.1.0")

	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"compatible", conf.Panel.Compatible,
		"bsit", conf.Panel.BSIT,
		"debug", conf.Panel.Debug,
		"spi", conf.Transport.SPIPort,
		"hs_spi", conf.Transport.HSPort,
		"diagnostics", conf.Diagnostics.Schedule,
		"supply_addr", conf.Supply.Addr,
		"once", flags.once,
	)

	if err := run(conf, flags.once); err != nil {
		appLog.Error("panelctl failed", err)
		os.Exit(1)
	}
	appLog.Info("panelctl exiting")
}

func run(conf *config.Config, once bool) (err error) {
	orientation, err := panel.OrientationFromRotation(conf.Panel.Rotation)
	if err != nil {
		return err
	}

	hw, err := board.Open(conf.Transport, conf.GPIO)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := hw.Close(); cerr != nil {
			appLog.Error("failed to close board", cerr)
		}
	}()

	if err := hw.OpenSupply(conf.Supply); err != nil {
		return err
	}

	p, err := panel.Probe(panel.Config{
		Compatible:      conf.Panel.Compatible,
		Delays:          conf.Panel.Delays,
		Transport:       hw.Transport,
		Power:           hw.Power,
		Reset:           hw.Reset,
		ResetActiveHigh: conf.GPIO.ResetActiveHigh,
		Orientation:     orientation,
		BSIT:            conf.Panel.BSIT,
		Debug:           conf.Panel.Debug,
	})
	if err != nil {
		return err
	}
	defer func() {
		if rerr := p.Remove(); rerr != nil {
			appLog.Error("failed to remove panel", rerr)
			err = errors.Join(err, rerr)
		}
	}()

	opts := host.Options{Schedule: conf.Diagnostics.Schedule, MinMv: conf.Supply.MinMv}
	if hw.Supply != nil {
		opts.Supply = hw.Supply
	}
	h, err := host.New(p, opts)
	if err != nil {
		return err
	}

	if once {
		return runOnce(h)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// A failed bring-up is reported and left for the API to retry.
	if err := h.PowerOn(); err != nil {
		appLog.Error("initial power on failed", err)
	}

	var wg sync.WaitGroup
	if conf.Listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := web.StartServer(ctx, conf, h); err != nil {
				appLog.Error("HTTP server stopped", err)
				cancel()
			}
		}()
	}

	err = h.Run(ctx)
	wg.Wait()
	return err
}

// runOnce powers the panel up, dumps its registers and powers it down
// again. The power-off step runs even if bring-up failed.
func runOnce(h *host.Host) error {
	var errs []error
	if err := h.PowerOn(); err != nil {
		errs = append(errs, err)
	} else if diag, err := h.Diagnose(); err != nil {
		errs = append(errs, err)
	} else {
		appLog.Info("diagnostics complete", "dumps", len(diag.Dumps), "failed_reads", diag.Failed())
	}
	if err := h.PowerOff(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/panelctl/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one power-on, diagnostics, power-off cycle and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Dump panel registers after every bring-up")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")

	flag.Parse()

	return cfg
}
