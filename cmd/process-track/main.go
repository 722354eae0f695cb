// Command process-track reduces the Polarstern cruise track to one noon
// position per on-floe day and writes it as GeoJSON.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/icetrack/internal/app"
	"github.com/okian/icetrack/internal/config"
	"github.com/okian/icetrack/pkg/logger"
	"github.com/okian/icetrack/pkg/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("process-track: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWithOptions(logger.Options{Format: cfg.LogFormat}); err != nil {
		return err
	}
	log := logger.Named("process-track")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Init(app.MetricsOptions(cfg)...)

	if cfg.TrackInput == "" {
		return fmt.Errorf("%w: track_input is required", config.ErrInvalidConfig)
	}

	proc, err := app.TrackProcessor(cfg, log)
	if err != nil {
		return err
	}
	table, err := proc.ProcessFile(ctx, cfg.TrackInput, cfg.TrackOutput)
	if err != nil {
		return err
	}
	log.Info(ctx, "track processed",
		logger.String("input", cfg.TrackInput),
		logger.String("output", cfg.TrackOutput),
		logger.Int("rows", table.Len()),
	)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "writing metrics failed", logger.Error(err))
		}
	}
	return nil
}
