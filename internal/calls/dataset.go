package calls

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DropStats counts rows removed by the one-time load filters
type DropStats struct {
	UnparseableDate int `json:"unparseable_date"`
	BeforeCutoff    int `json:"before_cutoff"`
	TestRows        int `json:"test_rows"`
}

// Dataset is an immutable snapshot of enriched calls. Nothing mutates it
// after the loader returns it; queries only read.
type Dataset struct {
	ID       string       `json:"id"`
	Source   string       `json:"source"`
	LoadedAt time.Time    `json:"loaded_at"`
	RowsRead int          `json:"rows_read"`
	Dropped  DropStats    `json:"dropped"`
	Records  []CallRecord `json:"-"`

	userIDs []int64
}

// NewDataset wraps already enriched records into a snapshot
func NewDataset(source string, records []CallRecord) *Dataset {
	ds := &Dataset{
		ID:       uuid.NewString(),
		Source:   source,
		LoadedAt: time.Now(),
		Records:  records,
	}
	ds.userIDs = distinctUserIDs(records)
	return ds
}

// Len is the number of records kept after cleaning
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// UserIDs returns the sorted unique user ids. The returned slice is a copy.
func (d *Dataset) UserIDs() []int64 {
	if d == nil {
		return nil
	}
	out := make([]int64, len(d.userIDs))
	copy(out, d.userIDs)
	return out
}

func distinctUserIDs(records []CallRecord) []int64 {
	seen := make(map[int64]struct{}, len(records))
	ids := make([]int64, 0)
	for i := range records {
		id := records[i].UserID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
