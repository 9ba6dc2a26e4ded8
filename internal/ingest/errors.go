package ingest

import "fmt"

// DataLoadError is returned when the export cannot be turned into a dataset.
// No partial dataset accompanies it; callers treat it as "no data available".
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load structured calls from %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

func loadError(path string, err error) error {
	return &DataLoadError{Path: path, Err: err}
}
