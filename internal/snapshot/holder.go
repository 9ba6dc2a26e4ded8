package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"mis-analytics/internal/calls"
	"mis-analytics/internal/interfaces"
	"mis-analytics/internal/logger"
	"mis-analytics/internal/metrics"
)

// Holder owns the current dataset. Readers get it lock-free; reloads are
// serialized and only swap in a dataset that loaded completely.
type Holder struct {
	loader  interfaces.DatasetLoader
	path    string
	metrics *metrics.Registry

	current  atomic.Pointer[calls.Dataset]
	reloadMu sync.Mutex
}

var _ interfaces.DatasetSource = (*Holder)(nil)

// New performs the initial load. A failure here is fatal to the caller: there
// is no dataset to serve.
func New(ctx context.Context, loader interfaces.DatasetLoader, path string, m *metrics.Registry) (*Holder, error) {
	h := &Holder{loader: loader, path: path, metrics: m}
	if _, err := h.Reload(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Current returns the dataset in service. It never returns a partially
// loaded dataset.
func (h *Holder) Current() *calls.Dataset {
	return h.current.Load()
}

// Path is the export the holder reloads from
func (h *Holder) Path() string {
	return h.path
}

// Reload loads the export again and swaps it in. On failure the previous
// dataset stays in service and the error is returned.
func (h *Holder) Reload(ctx context.Context) (*calls.Dataset, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	ds, err := h.loader.Load(ctx, h.path)
	if err != nil {
		h.metrics.ObserveLoadFailure()
		if prev := h.current.Load(); prev != nil {
			logger.ErrorWithErr(ctx, "Reload failed, keeping previous dataset", err,
				"path", h.path,
				"dataset_id", prev.ID,
			)
		}
		return nil, fmt.Errorf("reload %s: %w", h.path, err)
	}

	prev := h.current.Swap(ds)
	h.metrics.ObserveLoad(metrics.DatasetStats{
		Read:            ds.RowsRead,
		Kept:            ds.Len(),
		UnparseableDate: ds.Dropped.UnparseableDate,
		BeforeCutoff:    ds.Dropped.BeforeCutoff,
		Tests:           ds.Dropped.TestRows,
		LoadedAt:        ds.LoadedAt,
	})

	fields := []any{"rows_read", ds.RowsRead}
	if prev != nil {
		fields = append(fields, "previous_dataset_id", prev.ID, "previous_rows", prev.Len())
	}
	logger.Snapshot(ctx, ds.ID, ds.Source, ds.Len(), fields...)
	return ds, nil
}

// ReloadJob adapts a Holder to the scheduler
type ReloadJob struct {
	Holder *Holder
}

func (j ReloadJob) Name() string { return "dataset-reload" }

func (j ReloadJob) Run() error {
	_, err := j.Holder.Reload(context.Background())
	return err
}
