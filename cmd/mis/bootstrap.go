package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"mis-analytics/internal/analytics"
	"mis-analytics/internal/analytics/analyticsobs"
	"mis-analytics/internal/api"
	"mis-analytics/internal/ingest"
	"mis-analytics/internal/interfaces"
	"mis-analytics/internal/logger"
	"mis-analytics/internal/metrics"
	"mis-analytics/internal/snapshot"
	"mis-analytics/internal/store"
	"mis-analytics/internal/trace"
)

// initializeSystem loads .env and sets up logging and tracing
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func shutdownSystem() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(ctx)
}

// loadConfig reads the yaml config and applies the --data override
func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath)
		return nil, err
	}
	if dataPath != "" {
		cfg.Data.Path = dataPath
	}
	return cfg, nil
}

func newLoader(cfg *store.Config) *ingest.Loader {
	return ingest.NewLoader(ingest.Config{
		CutoffYear:    cfg.Data.CutoffYear,
		CutoffMonth:   cfg.Data.CutoffMonth,
		PrunedColumns: cfg.Data.PrunedColumns,
	})
}

// initializeHolder performs the initial load. m may be nil.
func initializeHolder(ctx context.Context, cfg *store.Config, m *metrics.Registry) (*snapshot.Holder, error) {
	holder, err := snapshot.New(ctx, newLoader(cfg), cfg.Data.Path, m)
	if err != nil {
		return nil, err
	}
	return holder, nil
}

// initializeAnalytics returns the query backend: the remote server when
// --remote is set, otherwise the local export wrapped with observability
func initializeAnalytics(ctx context.Context) (interfaces.CallAnalytics, error) {
	if remoteURL != "" {
		logger.Debug(ctx, "Using remote analytics", "url", remoteURL)
		return api.NewRemote(remoteURL, api.WithLogging(logger.IsDebugEnabled())), nil
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	holder, err := initializeHolder(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	return analyticsobs.Wrap(analytics.New(holder), nil), nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns the --out file, or stdout when unset
func openOutput() (io.WriteCloser, error) {
	if outputPath == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outputPath)
}
