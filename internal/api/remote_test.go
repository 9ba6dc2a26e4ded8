package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mis-analytics/internal/analytics"
	"mis-analytics/internal/api"
	"mis-analytics/internal/calls"
	"mis-analytics/internal/server"
	"mis-analytics/internal/types"
)

func dataset() *calls.Dataset {
	f := calls.Float
	return calls.NewDataset("remote.csv", []calls.CallRecord{
		{CallID: "a", UserID: 7, InsertionTime: time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC), Exchange: "NSE", ExchangeSegment: "EQUITY",
			BuySell: "BUY", Status: calls.StatusClosed, Price: f(200), ExitPrice: f(190), StopLossHit: calls.HitYes, TargetHit: calls.HitNo,
			CallType: calls.CallTypePositional},
		{CallID: "b", UserID: 9, InsertionTime: time.Date(2025, time.April, 1, 11, 0, 0, 0, time.UTC), Exchange: "NSE", ExchangeSegment: "OPT",
			BuySell: "BUY", Status: calls.StatusOpen, Price: f(80), LastTradedPrice: f(95), CallType: calls.CallTypeIntraday},
	})
}

func newRemote(t *testing.T) *api.Remote {
	t.Helper()
	src := analytics.Static{Dataset: dataset()}
	srv := server.New(server.Config{Analytics: analytics.New(src), Source: src, DevMode: true})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return api.NewRemote(ts.URL, api.WithRetry(&api.RetryConfig{MaxAttempts: 1}))
}

func TestRemoteMatchesLocalEngine(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(t)
	local := analytics.New(analytics.Static{Dataset: dataset()})

	f := types.Filter{Exchanges: []string{"NSE"}}
	want, err := local.Summary(ctx, f)
	require.NoError(t, err)
	got, err := remote.Summary(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, want.Counts, got.Counts)
	assert.Equal(t, want.Percentages, got.Percentages)

	start, _ := types.ParseDateBound("2025-04-01", false)
	end, _ := types.ParseDateBound("2025-04-01", true)
	got, err = remote.Summary(ctx, types.Filter{Start: start, End: end})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count(types.CategoryTotal))
	assert.Equal(t, 1, got.Count(types.CategoryOpen))

	groups, err := remote.TimelySummary(ctx, types.Filter{}, types.Monthly)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "April-2025", groups[0].Key)

	groups, err = remote.UserCallTypeSummary(ctx, "7", types.Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Positional", groups[0].Key)

	ids, err := remote.UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, ids)

	sum, err := remote.UserSummary(ctx, "9", types.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count(types.CategoryOpen))

	sum, err = remote.UserSummary(ctx, "", types.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count(types.CategoryTotal))

	detail, err := remote.PeriodDetail(ctx, "2025", types.Yearly)
	require.NoError(t, err)
	assert.Len(t, detail.Users, 2)
	assert.Len(t, detail.Options, 1)
}

func TestRemoteMapsErrors(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(t)

	_, err := remote.Summary(ctx, types.Filter{})
	assert.ErrorIs(t, err, types.ErrFilterRequired)

	_, err = remote.CallTypeSummary(ctx, types.Filter{})
	assert.ErrorIs(t, err, types.ErrFilterRequired)

	_, err = remote.TimelySummary(ctx, types.Filter{}, "weekly")
	assert.ErrorIs(t, err, types.ErrInvalidGranularity)

	_, err = remote.PeriodDetail(ctx, "May-2020", types.Monthly)
	assert.ErrorIs(t, err, types.ErrPeriodNotFound)
}

func TestRemoteNoData(t *testing.T) {
	srv := server.New(server.Config{Analytics: analytics.New(analytics.Static{}), DevMode: true})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	remote := api.NewRemote(ts.URL, api.WithRetry(&api.RetryConfig{MaxAttempts: 1}))
	_, err := remote.UserIDs(context.Background())
	assert.ErrorIs(t, err, types.ErrNoData)
}

func TestDoWithRetry(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky":
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := api.NewClient(api.WithBaseURL(ts.URL))
	cfg := &api.RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	resp, err := c.DoWithRetry(api.NewRequest(http.MethodGet, "/flaky"), cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	var body map[string]bool
	require.NoError(t, resp.ParseJSON(&body))
	assert.True(t, body["ok"])

	_, err = c.DoWithRetry(api.NewRequest(http.MethodGet, "/missing"), cfg)
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestRemoteReload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dataset_id":"abc","rows":12,"loaded_at":"2025-01-02T03:04:05Z"}`))
	}))
	defer ts.Close()

	out, err := api.NewRemote(ts.URL).Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", out.DatasetID)
	assert.Equal(t, 12, out.Rows)
}
