package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"mis-analytics/internal/calls"
	"mis-analytics/internal/logger"
)

// rawCall mirrors the export columns the pipeline reads. Every field is a
// string so a malformed cell degrades that field instead of failing the file.
type rawCall struct {
	StructuredCallEntryID string `csv:"StructuredCallEntryID"`
	UserID                string `csv:"UserID"`
	InsertionTime         string `csv:"InsertionTime"`
	Validity              string `csv:"Validity"`
	ModifiedDT            string `csv:"ModifiedDT"`
	Exchange              string `csv:"Exchange"`
	ExchSegment           string `csv:"ExchSegment"`
	Header                string `csv:"Header"`
	BuySell               string `csv:"BuySell"`
	Price                 string `csv:"Price"`
	TargetPrice           string `csv:"TargetPrice"`
	StopLoss              string `csv:"StopLoss"`
	LastTradedPrice       string `csv:"LastTradedPrice"`
	Status                string `csv:"Status"`
	StatusDescreption     string `csv:"StatusDescreption"`
	InternalRemark        string `csv:"InternalRemark"`
	CallClosedLTP         string `csv:"CallClosedLTP"`
}

// RequiredColumns must be present in the header for a load to succeed
var RequiredColumns = []string{
	"StructuredCallEntryID", "UserID", "InsertionTime", "BuySell", "Price", "Status", "StatusDescreption",
}

var dateColumns = []string{"InsertionTime", "Validity", "ModifiedDT"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Config controls the one-time load filters
type Config struct {
	CutoffYear    int
	CutoffMonth   int
	PrunedColumns []string
}

func DefaultConfig() Config {
	return Config{
		CutoffYear:    2024,
		CutoffMonth:   11,
		PrunedColumns: []string{"RRRValue", "CallType", "Attachment", "ImageURL", "SendTo", "CallClosedBy", "CallClosedDT"},
	}
}

// Loader turns a structured call export into an enriched dataset
type Loader struct {
	cfg      Config
	open     SourceOpener
	enricher *Enricher
}

type Option func(*Loader)

// WithOpener replaces the file/S3 opener
func WithOpener(open SourceOpener) Option {
	return func(l *Loader) {
		l.open = open
	}
}

// WithExtractors replaces the exit price extraction cascade
func WithExtractors(extractors ...PriceExtractor) Option {
	return func(l *Loader) {
		l.enricher = NewEnricher(extractors...)
	}
}

func NewLoader(cfg Config, opts ...Option) *Loader {
	l := &Loader{
		cfg:      cfg,
		open:     OpenSource,
		enricher: NewEnricher(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the export with the default configuration
func Load(ctx context.Context, path string) (*calls.Dataset, error) {
	return NewLoader(DefaultConfig()).Load(ctx, path)
}

// Load reads, cleans and enriches the export at path. Any file-level failure
// returns *DataLoadError and no dataset.
func (l *Loader) Load(ctx context.Context, path string) (*calls.Dataset, error) {
	op := logger.StartOperation(ctx, "ingest.Load", "path", path)
	ctx = op.Context()

	raw, header, err := l.read(ctx, path)
	if err != nil {
		err = loadError(path, err)
		op.EndWithError(err)
		return nil, err
	}

	var pruned []string
	for _, col := range l.cfg.PrunedColumns {
		if _, ok := header[col]; ok {
			pruned = append(pruned, col)
		}
	}
	if len(pruned) > 0 {
		logger.Debug(ctx, "Ignoring pruned columns", "columns", pruned)
	}

	presentDates := make([]string, 0, len(dateColumns))
	for _, col := range dateColumns {
		if _, ok := header[col]; ok {
			presentDates = append(presentDates, col)
		}
	}

	var dropped calls.DropStats
	records := make([]calls.CallRecord, 0, len(raw))
	for _, row := range raw {
		rec, ok := l.toRecord(row, presentDates, &dropped)
		if !ok {
			continue
		}
		l.enricher.Enrich(&rec)
		records = append(records, rec)
	}

	ds := calls.NewDataset(path, records)
	ds.RowsRead = len(raw)
	ds.Dropped = dropped

	op.End("rows_read", len(raw), "rows_kept", len(records))
	logger.Info(ctx, "Loaded structured calls",
		"path", path,
		"dataset_id", ds.ID,
		"rows_read", len(raw),
		"rows_kept", len(records),
		"dropped_unparseable_date", dropped.UnparseableDate,
		"dropped_before_cutoff", dropped.BeforeCutoff,
		"dropped_test_rows", dropped.TestRows,
	)
	return ds, nil
}

// read returns the decoded rows and the set of header names
func (l *Loader) read(ctx context.Context, path string) ([]*rawCall, map[string]struct{}, error) {
	rc, err := l.open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("read: %w", err)
	}
	b = bytes.TrimPrefix(b, utf8BOM)

	first, err := csv.NewReader(bytes.NewReader(b)).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty file")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]struct{}, len(first))
	for _, h := range first {
		header[h] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows []*rawCall
	if err := gocsv.UnmarshalCSV(r, &rows); err != nil {
		return nil, nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, header, nil
}

// toRecord applies the row-dropping steps (dates, cutoff, test rows) and
// copies typed values. Enrichment happens afterwards.
func (l *Loader) toRecord(row *rawCall, presentDates []string, dropped *calls.DropStats) (calls.CallRecord, bool) {
	var rec calls.CallRecord
	dates := map[string]*time.Time{
		"InsertionTime": &rec.InsertionTime,
		"Validity":      &rec.Validity,
		"ModifiedDT":    &rec.ModifiedDT,
	}
	values := map[string]string{
		"InsertionTime": row.InsertionTime,
		"Validity":      row.Validity,
		"ModifiedDT":    row.ModifiedDT,
	}
	for _, col := range presentDates {
		t, ok := parseDayFirst(values[col])
		if !ok {
			dropped.UnparseableDate++
			return rec, false
		}
		if onOrBeforeCutoff(t, l.cfg.CutoffYear, l.cfg.CutoffMonth) {
			dropped.BeforeCutoff++
			return rec, false
		}
		*dates[col] = t
	}

	rec.StatusDescription = SanitizeDescription(row.StatusDescreption)
	if IsTestRow(rec.StatusDescription, row.Header) {
		dropped.TestRows++
		return rec, false
	}

	rec.CallID = strings.TrimSpace(row.StructuredCallEntryID)
	rec.UserID = parseUserID(row.UserID)
	rec.Exchange = strings.TrimSpace(row.Exchange)
	rec.ExchangeSegment = strings.TrimSpace(row.ExchSegment)
	rec.Header = row.Header
	rec.BuySell = row.BuySell
	rec.Price = parseFloat(row.Price)
	rec.TargetPrice = parseFloat(row.TargetPrice)
	rec.StopLoss = parseFloat(row.StopLoss)
	rec.LastTradedPrice = parseFloat(row.LastTradedPrice)
	rec.CallClosedLTP = parseFloat(row.CallClosedLTP)
	rec.Status = strings.TrimSpace(row.Status)
	rec.InternalRemark = row.InternalRemark
	return rec, true
}

// parseFloat returns nil for empty, unparseable or NaN cells
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}

// parseUserID accepts "42" and "42.0"; anything else maps to 0
func parseUserID(s string) int64 {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == math.Trunc(v) {
		return int64(v)
	}
	return 0
}
