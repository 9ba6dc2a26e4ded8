package interfaces

import (
	"context"

	"mis-analytics/internal/calls"
)

// DatasetLoader builds a fresh dataset from an export
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*calls.Dataset, error)
}

// DatasetSource hands out the current snapshot. Callers read it once per
// query; a reload never changes a snapshot already handed out.
type DatasetSource interface {
	Current() *calls.Dataset
}
