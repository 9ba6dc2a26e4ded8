package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mis-analytics/internal/analytics"
	"mis-analytics/internal/calls"
	"mis-analytics/internal/types"
)

func sampleSummary() types.Summary {
	var s types.Summary
	s.Counts[types.CategoryTotal] = 4
	s.Counts[types.CategoryTargetHit] = 1
	s.Counts[types.CategoryClosed] = 3
	s.Counts[types.CategoryOpen] = 1
	s.Percentages = s.Counts.Percentages()
	s.MeanTargetExitDiffPct = calls.Float(2.5)
	return s
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": Table, "TABLE": Table, "csv": CSV, " json ": JSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestSummaryFormats(t *testing.T) {
	s := sampleSummary()

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, CSV, s))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, int(types.NumCategories)+1)
	assert.Equal(t, "category,count,percentage", lines[0])
	assert.Equal(t, "Total Calls,4,100", lines[1])
	assert.Equal(t, "Target Hit,1,25", lines[2])

	buf.Reset()
	require.NoError(t, Summary(&buf, Table, s))
	assert.Contains(t, buf.String(), "Total Closed Calls")
	assert.Contains(t, buf.String(), "75.0%")
	assert.Contains(t, buf.String(), "Mean target/exit diff")
	assert.NotContains(t, buf.String(), "Mean stop loss/exit diff")

	buf.Reset()
	require.NoError(t, Summary(&buf, JSON, s))
	var decoded types.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s.Counts, decoded.Counts)
}

func TestGroupsFormats(t *testing.T) {
	groups := []types.GroupSummary{
		{Key: "2025", Summary: sampleSummary()},
		{Key: "2024", Summary: sampleSummary()},
	}

	var buf bytes.Buffer
	require.NoError(t, Groups(&buf, CSV, groups))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2*int(types.NumCategories)+1)
	assert.Equal(t, "group,category,count,percentage", lines[0])
	assert.Equal(t, "2025,Total Calls,4,100", lines[1])
	assert.True(t, strings.HasPrefix(lines[int(types.NumCategories)+1], "2024,"))

	buf.Reset()
	require.NoError(t, Groups(&buf, Table, groups))
	header := strings.Fields(strings.Split(buf.String(), "\n")[0])
	assert.Equal(t, []string{"Category", "2025", "2024"}, header)

	buf.Reset()
	require.NoError(t, Groups(&buf, Table, nil))
	assert.Equal(t, "No calls match the filter\n", buf.String())
}

func TestUserIDs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, UserIDs(&buf, CSV, []int64{3, 8}))
	assert.Equal(t, "user_id\n3\n8\n", buf.String())

	buf.Reset()
	require.NoError(t, UserIDs(&buf, Table, []int64{3}))
	assert.Equal(t, "3\n", buf.String())
}

func TestPeriodDetail(t *testing.T) {
	u := types.UserSummary{UserID: 42, Summary: sampleSummary()}
	d := &types.PeriodDetail{Period: "March-2025", Scope: types.Monthly, Summary: sampleSummary(), Users: []types.UserSummary{u}, NSE: []types.UserSummary{u}}

	var buf bytes.Buffer
	require.NoError(t, PeriodDetail(&buf, CSV, d))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "breakdown,user_id,total,target_hit,target_hit_pct,stop_loss_hit,stop_loss_hit_pct,closed,open", lines[0])
	assert.Equal(t, "All users,42,4,1,25,0,0,3,1", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "NSE,42,"))

	buf.Reset()
	require.NoError(t, PeriodDetail(&buf, Table, d))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "March-2025 (monthly)"))
	assert.Contains(t, out, "Options\n  no calls")
}

func TestExporter(t *testing.T) {
	f := calls.Float
	ds := calls.NewDataset("export.csv", []calls.CallRecord{
		{CallID: "1", UserID: 1, InsertionTime: time.Date(2025, time.February, 1, 10, 0, 0, 0, time.UTC), Exchange: "NSE",
			BuySell: "BUY", Status: calls.StatusClosed, Price: f(10), ExitPrice: f(12), TargetHit: calls.HitYes, StopLossHit: calls.HitNo,
			CallType: calls.CallTypeBTST},
	})
	e := NewExporter(analytics.New(analytics.Static{Dataset: ds}), t.TempDir())
	e.now = func() time.Time { return time.Date(2025, time.March, 4, 18, 0, 0, 0, time.UTC) }

	run, dir := e.ShouldRun()
	assert.True(t, run)
	assert.Equal(t, "2025-03-04", filepath.Base(dir))

	require.NoError(t, ExportJob{Exporter: e}.Run())
	for _, name := range []string{"summary.csv", "timely-yearly.csv", "timely-monthly.csv", "call-types.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	b, err := os.ReadFile(filepath.Join(dir, "call-types.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "BTST,Total Calls,1,100")

	run, _ = e.ShouldRun()
	assert.False(t, run)
}

func TestExportFailsWithoutData(t *testing.T) {
	e := NewExporter(analytics.New(analytics.Static{}), t.TempDir())
	_, err := e.Export(context.Background())
	assert.ErrorIs(t, err, types.ErrNoData)
}
