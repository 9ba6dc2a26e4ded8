package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mis-analytics/internal/calls"
)

const exportHeader = "StructuredCallEntryID,UserID,InsertionTime,Validity,ModifiedDT,Exchange,ExchSegment,Header,BuySell,Price,TargetPrice,StopLoss,LastTradedPrice,Status,StatusDescreption,InternalRemark,CallClosedLTP,RRRValue\n"

const exportRows = `1,101,05/01/2025 10:00:00,10/01/2025 10:00:00,06/01/2025 12:00:00,NSE,EQUITY,Intraday RELIANCE,BUY,100,105,95,104,Closed,Target Achieved @ 105,,,1.5
2,101,15/11/2024 10:00:00,20/11/2024 10:00:00,16/11/2024 10:00:00,NSE,EQUITY,Old call,BUY,100,105,95,104,Closed,Target Achieved @105,,,
3,303,06/01/2025 10:00:00,10/01/2025 10:00:00,06/01/2025 12:00:00,NSE,EQUITY,Desk,BUY,100,105,95,104,Closed,test call,,,
4,303,not a date,10/01/2025 10:00:00,06/01/2025 12:00:00,NSE,EQUITY,Desk,BUY,100,105,95,104,Closed,done,,,
5,202.0,03/02/2025 09:15:00,03/03/2025 09:15:00,03/02/2025 09:15:00,MCX,FUTCOMM,Momentum GOLD,SELL,100,90,105,98,Open,,,,
`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "StructureCallEntries.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeExport(t, "\xEF\xBB\xBF"+exportHeader+exportRows)

	ds, err := NewLoader(DefaultConfig()).Load(context.Background(), path)
	require.NoError(t, err)

	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, path, ds.Source)
	assert.Equal(t, 5, ds.RowsRead)
	assert.Equal(t, calls.DropStats{UnparseableDate: 1, BeforeCutoff: 1, TestRows: 1}, ds.Dropped)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, []int64{101, 202}, ds.UserIDs())

	closed := ds.Records[0]
	assert.Equal(t, "1", closed.CallID)
	assert.Equal(t, "Target Achieved @105", closed.StatusDescription)
	require.NotNil(t, closed.ExitPrice)
	assert.Equal(t, 105.0, *closed.ExitPrice)
	assert.Equal(t, calls.HitYes, closed.TargetHit)
	assert.Equal(t, calls.HitNo, closed.StopLossHit)
	assert.Equal(t, calls.CallTypeIntraday, closed.CallType)
	assert.Equal(t, "Week 1 January 2025", closed.WeekLabel)
	assert.Nil(t, closed.CallClosedLTP)

	open := ds.Records[1]
	assert.Equal(t, int64(202), open.UserID)
	assert.Equal(t, "MCX", open.Exchange)
	assert.Equal(t, "FUTCOMM", open.ExchangeSegment)
	assert.Nil(t, open.ExitPrice)
	assert.Equal(t, calls.CallTypeMomentum, open.CallType)
	assert.Equal(t, "February 2025", open.MonthLabel)
}

func TestLoadIsIdempotent(t *testing.T) {
	path := writeExport(t, exportHeader+exportRows)
	loader := NewLoader(DefaultConfig())

	first, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Dropped, second.Dropped)
}

func TestLoadCutoffIsConfigurable(t *testing.T) {
	path := writeExport(t, exportHeader+exportRows)
	cfg := DefaultConfig()
	cfg.CutoffYear = 2024
	cfg.CutoffMonth = 10

	ds, err := NewLoader(cfg).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Zero(t, ds.Dropped.BeforeCutoff)
}

func TestLoadMissingDateColumnsAreNotChecked(t *testing.T) {
	content := "StructuredCallEntryID,UserID,InsertionTime,BuySell,Price,Status,StatusDescreption\n" +
		"9,7,02/01/2025 10:00:00,BUY,50,Closed,exit @ 55\n"
	ds, err := Load(context.Background(), writeExport(t, content))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.True(t, ds.Records[0].Validity.IsZero())
	assert.Equal(t, 55.0, *ds.Records[0].ExitPrice)
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.csv")},
		{"empty file", writeExport(t, "")},
		{"missing columns", writeExport(t, "UserID,Price\n1,2\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Load(context.Background(), tt.path)
			assert.Nil(t, ds)

			var loadErr *DataLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.path, loadErr.Path)
		})
	}

	_, err := Load(context.Background(), filepath.Join(dir, "nope.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadWithOpener(t *testing.T) {
	var opened string
	opener := func(_ context.Context, path string) (io.ReadCloser, error) {
		opened = path
		return io.NopCloser(strings.NewReader(exportHeader + exportRows)), nil
	}

	ds, err := NewLoader(DefaultConfig(), WithOpener(opener)).Load(context.Background(), "s3://mis-exports/calls.csv")
	require.NoError(t, err)
	assert.Equal(t, "s3://mis-exports/calls.csv", opened)
	assert.Equal(t, 2, ds.Len())
}

func TestParseS3URI(t *testing.T) {
	bucket, key, ok := parseS3URI("s3://mis-exports/2025/calls.csv")
	assert.True(t, ok)
	assert.Equal(t, "mis-exports", bucket)
	assert.Equal(t, "2025/calls.csv", key)

	_, _, ok = parseS3URI("data/calls.csv")
	assert.False(t, ok)
	_, _, ok = parseS3URI("s3://bucket-only")
	assert.False(t, ok)
}

func TestParseNumbers(t *testing.T) {
	assert.Nil(t, parseFloat(""))
	assert.Nil(t, parseFloat("NaN"))
	assert.Nil(t, parseFloat("n/a"))
	assert.Equal(t, 12.5, *parseFloat(" 12.5 "))

	assert.Equal(t, int64(42), parseUserID("42"))
	assert.Equal(t, int64(42), parseUserID("42.0"))
	assert.Equal(t, int64(0), parseUserID("abc"))
}
