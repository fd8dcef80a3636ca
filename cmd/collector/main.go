package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airtrace-io/pollution-collector/internal/config"
	"github.com/airtrace-io/pollution-collector/internal/fetcher"
	"github.com/airtrace-io/pollution-collector/internal/health"
	"github.com/airtrace-io/pollution-collector/internal/lib/logger/sl"
	"github.com/airtrace-io/pollution-collector/internal/poller"
	"github.com/airtrace-io/pollution-collector/internal/writer"
)

const (
	outboundTimeout = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config file (overrides FILE_POLL_CONFIG)")
	dryRun := flag.Bool("dry-run", false, "log points instead of writing to InfluxDB")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := sl.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	log.Info("starting pollution collector",
		slog.String("zip", cfg.ZipCode),
		slog.String("country", cfg.Country),
		slog.Duration("interval", cfg.Interval()),
		slog.Int("max_retry", cfg.MaxRetry),
		slog.Bool("dry_run", *dryRun),
	)

	endpoint, err := writer.NormalizeEndpoint(cfg.DBServer)
	if err != nil {
		log.Error("invalid influxdb server", slog.String("server", cfg.DBServer), sl.Err(err))
		os.Exit(1)
	}
	log.Info("influxdb endpoint resolved",
		slog.String("endpoint", endpoint),
		slog.String("database", cfg.DBName),
	)

	fetchClient := fetcher.New(log, cfg.APIKey, fetcher.DefaultBaseURL, outboundTimeout)

	resolveCtx, cancelResolve := context.WithTimeout(context.Background(), outboundTimeout)
	err = fetchClient.Resolve(resolveCtx, cfg.ZipCode, cfg.Country)
	cancelResolve()
	if err != nil {
		log.Error("failed to resolve location", slog.String("zip", cfg.ZipCode), sl.Err(err))
		os.Exit(1)
	}
	log.Info("location resolved", slog.String("location", fetchClient.Location()))

	var pointWriter writer.Writer
	if *dryRun {
		pointWriter = writer.NewLogWriter(log)
		log.Info("dry-run mode: points will be logged instead of written")
	} else {
		pointWriter = writer.NewInfluxWriter(log, writer.InfluxConfig{
			Endpoint: endpoint,
			Database: cfg.DBName,
			Username: cfg.DBUser,
			Password: cfg.DBPass,
			Token:    cfg.DBToken,
			Timeout:  outboundTimeout,
		})
	}

	p := poller.New(log, fetchClient, pointWriter, cfg.Interval(), cfg.MaxRetry)

	healthServer := health.NewServer(log, cfg.HealthAddress)
	healthServer.AddChecker(health.NewStorageHealthChecker(pointWriter.Ping))
	healthServer.AddChecker(health.NewPollerHealthChecker(p.FailureStreak, cfg.MaxRetry))

	if err := healthServer.Start(); err != nil {
		log.Error("failed to start health server", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	runErr := p.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop health server", sl.Err(err))
	}

	if runErr != nil {
		log.Error("collector terminated", sl.Err(runErr))
		os.Exit(1)
	}

	log.Info("collector stopped")
}
