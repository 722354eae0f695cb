// Command icetrack extracts strong-beam ground tracks from ATL10 granules
// and optionally overlays the processed Polarstern drift track.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/icetrack/internal/app"
	"github.com/okian/icetrack/internal/config"
	"github.com/okian/icetrack/pkg/logger"
	"github.com/okian/icetrack/pkg/metrics"
	"github.com/okian/icetrack/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("icetrack: " + err.Error() + "\n")
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
	defer func() { _ = logger.Sync() }()

	log := logger.Named("icetrack")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(app.MetricsOptions(cfg)...)

	shutdown, err := tracing.Init(ctx, tracing.Config{Enabled: cfg.TracingEnabled, ServiceName: "icetrack"}, log)
	if err != nil {
		return err
	}
	defer tracing.Shutdown(context.WithoutCancel(ctx), shutdown, log)
	defer writeMetrics(ctx, cfg.MetricsFile, log)

	p, err := app.NewPipeline(cfg, log)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx)
	if err != nil {
		log.Error(ctx, "pipeline failed",
			logger.String("run_id", res.Batch.RunID),
			logger.Any("failed", res.Batch.Failed),
			logger.Error(err),
		)
		return err
	}
	log.Info(ctx, "pipeline finished",
		logger.String("run_id", res.Batch.RunID),
		logger.Int("granules", res.Batch.Files),
		logger.Int("beams", res.Beams.Len()),
		logger.Any("outputs", res.Outputs),
	)
	return nil
}

func writeMetrics(ctx context.Context, path string, log logger.Logger) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		log.Warn(ctx, "writing metrics failed", logger.String("path", path), logger.Error(err))
	}
}
