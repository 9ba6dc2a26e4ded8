package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mis-analytics/internal/interfaces"
	"mis-analytics/internal/logger"
	"mis-analytics/internal/types"
)

// Exporter writes a dated set of CSV reports over the whole dataset:
//
//	<dir>/<YYYY-MM-DD>/summary.csv
//	<dir>/<YYYY-MM-DD>/timely-yearly.csv
//	<dir>/<YYYY-MM-DD>/timely-monthly.csv
//	<dir>/<YYYY-MM-DD>/call-types.csv
type Exporter struct {
	analytics interfaces.CallAnalytics
	dir       string
	now       func() time.Time
}

func NewExporter(analytics interfaces.CallAnalytics, dir string) *Exporter {
	return &Exporter{analytics: analytics, dir: dir, now: time.Now}
}

// Dir is where the reports for t go
func (e *Exporter) Dir(t time.Time) string {
	return filepath.Join(e.dir, t.Format(time.DateOnly))
}

// ShouldRun reports whether today's reports are still missing
func (e *Exporter) ShouldRun() (bool, string) {
	out := e.Dir(e.now())
	_, err := os.Stat(filepath.Join(out, "summary.csv"))
	return errors.Is(err, os.ErrNotExist), out
}

// Export writes today's reports, replacing any already there
func (e *Exporter) Export(ctx context.Context) (string, error) {
	out := e.Dir(e.now())
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", err
	}
	all := types.Filter{All: true}

	sum, err := e.analytics.Summary(ctx, all)
	if err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(out, "summary.csv"), func(w io.Writer) error {
		return Summary(w, CSV, sum)
	}); err != nil {
		return "", err
	}

	for _, g := range []types.Granularity{types.Yearly, types.Monthly} {
		groups, err := e.analytics.TimelySummary(ctx, all, g)
		if err != nil {
			return "", err
		}
		name := fmt.Sprintf("timely-%s.csv", g)
		if err := writeFile(filepath.Join(out, name), func(w io.Writer) error {
			return Groups(w, CSV, groups)
		}); err != nil {
			return "", err
		}
	}

	groups, err := e.analytics.CallTypeSummary(ctx, all)
	if err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(out, "call-types.csv"), func(w io.Writer) error {
		return Groups(w, CSV, groups)
	}); err != nil {
		return "", err
	}
	return out, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// ExportJob runs the exporter once a day from the scheduler
type ExportJob struct {
	Exporter *Exporter
}

func (j ExportJob) Name() string { return "report-export" }

func (j ExportJob) Run() error {
	ctx := context.Background()
	run, out := j.Exporter.ShouldRun()
	if !run {
		logger.Debug(ctx, "Reports already exported", "dir", out)
		return nil
	}
	out, err := j.Exporter.Export(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "Reports exported", "dir", out)
	return nil
}
