package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mis-analytics/internal/analytics"
	"mis-analytics/internal/analytics/analyticsobs"
	"mis-analytics/internal/api"
	"mis-analytics/internal/logger"
	"mis-analytics/internal/metrics"
	"mis-analytics/internal/report"
	"mis-analytics/internal/scheduler"
	"mis-analytics/internal/server"
	"mis-analytics/internal/snapshot"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics queries over HTTP",
	Long: `Loads the export once and serves the dashboard queries as JSON, with
Prometheus metrics on /metrics. The export is reloaded on data.reload_schedule
or POST /api/reload; a failed reload keeps the previous dataset in service.`,
	RunE: runServe,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write today's CSV reports to reports.dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := initializeAnalytics(ctx)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		dir, err := report.NewExporter(a, cfg.Reports.Dir).Export(ctx)
		if err != nil {
			return err
		}
		logger.Info(ctx, "Reports exported", "dir", dir)
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask a running server to reload its export",
	RunE: func(cmd *cobra.Command, args []string) error {
		if remoteURL == "" {
			return errors.New("reload needs --remote")
		}
		out, err := api.NewRemote(remoteURL).Reload(context.Background())
		if err != nil {
			return err
		}
		logger.Info(context.Background(), "Dataset reloaded",
			"dataset_id", out.DatasetID,
			"rows", out.Rows,
			"loaded_at", out.LoadedAt,
		)
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd, exportCmd, reloadCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	m := metrics.New()
	holder, err := initializeHolder(ctx, cfg, m)
	if err != nil {
		return err
	}
	queries := analyticsobs.Wrap(analytics.New(holder), m)

	sched := scheduler.New(ctx)
	if cfg.Data.ReloadSchedule != "" {
		if err := sched.AddJob(cfg.Data.ReloadSchedule, snapshot.ReloadJob{Holder: holder}); err != nil {
			return err
		}
	}
	if cfg.Reports.Schedule != "" {
		job := report.ExportJob{Exporter: report.NewExporter(queries, cfg.Reports.Dir)}
		if err := sched.AddJob(cfg.Reports.Schedule, job); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout:    time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		DevMode:         cfg.Server.DevMode,
		AllowUnfiltered: cfg.Query.AllowUnfiltered,
		Analytics:       queries,
		Source:          holder,
		Reloader:        holder,
		Metrics:         m,
	})

	errc := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
