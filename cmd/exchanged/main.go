// exchanged runs the betting-exchange matching engine as a standalone
// process: it loads configuration, wires the engine (storage, receipt
// issuer, exposure guard, result feed, dashboard), starts its background
// goroutines, and waits for a shutdown signal.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openalpha/betexchange/internal/config"
	"github.com/openalpha/betexchange/internal/engine"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("EXCH_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("betting exchange started",
		"operator", cfg.Operator.Address,
		"stake_min", cfg.Limits.StakeMin,
		"stake_max", cfg.Limits.StakeMax,
		"dashboard", cfg.Dashboard.Enabled,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
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
