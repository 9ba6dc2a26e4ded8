package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mis-analytics/internal/calls"
	"mis-analytics/internal/types"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func fixture() *calls.Dataset {
	f := calls.Float
	return calls.NewDataset("fixture.csv", []calls.CallRecord{
		{CallID: "1", UserID: 1, InsertionTime: day(2025, time.January, 10), Exchange: "NSE", ExchangeSegment: "EQUITY", BuySell: "BUY",
			Status: calls.StatusClosed, Price: f(100), ExitPrice: f(110), ProfitPriceChange: f(10),
			TargetHit: calls.HitYes, StopLossHit: calls.HitNo, TargetExitDiffPct: f(0), CallType: calls.CallTypeIntraday},
		{CallID: "2", UserID: 1, InsertionTime: day(2025, time.January, 20), Exchange: "NSE", ExchangeSegment: "FUTSTK", BuySell: "SELL",
			Status: calls.StatusClosed, Price: f(100), ExitPrice: f(105), ProfitPriceChange: f(-5),
			TargetHit: calls.HitNo, StopLossHit: calls.HitYes, TargetExitDiffPct: f(10), CallType: calls.CallTypeMomentum},
		{CallID: "3", UserID: 2, InsertionTime: day(2024, time.December, 15), Exchange: "MCX", ExchangeSegment: "FUTCOMM", BuySell: "BUY",
			Status: calls.StatusClosed, Price: f(50), ExitPrice: f(55), ProfitPriceChange: f(5),
			TargetHit: calls.HitNo, StopLossHit: calls.HitNo, CallType: calls.CallTypeMomentum},
		{CallID: "4", UserID: 2, InsertionTime: day(2024, time.December, 20), Exchange: "MCX", ExchangeSegment: "OPTCOMM", BuySell: "SELL",
			Status: calls.StatusClosed, Price: f(50), ExitPrice: f(50), ProfitPriceChange: f(0),
			TargetHit: calls.HitNo, StopLossHit: calls.HitNo, CallType: calls.CallTypeAnonymous},
		{CallID: "5", UserID: 3, InsertionTime: day(2025, time.January, 5), Exchange: "NSE", ExchangeSegment: "OPT", BuySell: "BUY",
			Status: calls.StatusOpen, Price: f(20), LastTradedPrice: f(25), CallType: calls.CallTypeAnonymous},
		{CallID: "6", UserID: 3, InsertionTime: day(2025, time.February, 1), Exchange: "NSE", ExchangeSegment: "EQUITY", BuySell: "SELL",
			Status: calls.StatusOpen, Price: f(20), LastTradedPrice: f(20), CallType: calls.CallTypePositional},
		{CallID: "7", UserID: 2, InsertionTime: day(2025, time.January, 25), Exchange: "NSE", ExchangeSegment: "EQUITY", BuySell: "BUY",
			Status: calls.StatusClosed, Price: f(10), CallType: calls.CallTypeAnonymous},
	})
}

func newEngine() *Engine {
	return New(Static{Dataset: fixture()})
}

func TestSummaryRequiresFilter(t *testing.T) {
	e := newEngine()

	_, err := e.Summary(context.Background(), types.Filter{})
	assert.ErrorIs(t, err, types.ErrFilterRequired)

	_, err = e.CallTypeSummary(context.Background(), types.Filter{})
	assert.ErrorIs(t, err, types.ErrFilterRequired)
}

func TestSummaryAll(t *testing.T) {
	s, err := newEngine().Summary(context.Background(), types.Filter{All: true})
	require.NoError(t, err)

	assert.Equal(t, types.Counts{7, 1, 1, 1, 0, 1, 5, 0, 1, 1, 2}, s.Counts)
	assert.Equal(t, 100.0, s.Percentage(types.CategoryTotal))
	assert.Equal(t, 14.3, s.Percentage(types.CategoryTargetHit))
	assert.Equal(t, 71.4, s.Percentage(types.CategoryClosed))
	assert.Equal(t, 28.6, s.Percentage(types.CategoryOpen))

	require.NotNil(t, s.MeanTargetExitDiffPct)
	assert.Equal(t, 5.0, *s.MeanTargetExitDiffPct)
	assert.Nil(t, s.MeanStopLossExitDiffPct)

	hitsAndNeither := s.Count(types.CategoryTargetHit) + s.Count(types.CategoryStopLossHit) +
		s.Count(types.CategoryNeitherPositive) + s.Count(types.CategoryNeitherNegative) + s.Count(types.CategoryNeitherRedundant)
	assert.LessOrEqual(t, hitsAndNeither, s.Count(types.CategoryClosed))
	assert.LessOrEqual(t, s.Count(types.CategoryClosed)+s.Count(types.CategoryOpen), s.Count(types.CategoryTotal))

	rows := s.Rows()
	require.Len(t, rows, int(types.NumCategories))
	assert.Equal(t, "Total Calls", rows[0].Category)
	assert.Equal(t, "Total Open Calls", rows[10].Category)
}

func TestSummaryFilters(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	s, err := e.Summary(ctx, types.Filter{Exchanges: []string{"NSE"}})
	require.NoError(t, err)
	assert.Equal(t, 5, s.Count(types.CategoryTotal))

	s, err = e.Summary(ctx, types.Filter{
		Start: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.January, 31, 23, 59, 59, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Count(types.CategoryTotal))

	s, err = e.Summary(ctx, types.Filter{Segments: []string{"EQUITY", "OPT"}})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Count(types.CategoryTotal))

	// inclusive bounds
	s, err = e.Summary(ctx, types.Filter{Start: day(2025, time.January, 10), End: day(2025, time.January, 10)})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count(types.CategoryTotal))
}

func TestUserSummary(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	s, err := e.UserSummary(ctx, "2", types.Filter{})
	require.NoError(t, err)
	assert.Equal(t, types.Counts{3, 0, 0, 1, 0, 1, 3, 0, 0, 0, 0}, s.Counts)

	s, err = e.UserSummary(ctx, "abc", types.Filter{})
	require.NoError(t, err)
	assert.Equal(t, types.Counts{}, s.Counts)
	assert.Equal(t, types.Percentages{}, s.Percentages)
}

func TestTimelySummaryYearly(t *testing.T) {
	groups, err := newEngine().TimelySummary(context.Background(), types.Filter{}, types.Yearly)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "2025", groups[0].Key)
	assert.Equal(t, "2024", groups[1].Key)

	// closed means exit known; call 7 has none and counts as open
	assert.Equal(t, types.Counts{5, 1, 1, 0, 0, 0, 2, 1, 0, 1, 3}, groups[0].Counts)
	assert.Equal(t, types.Counts{2, 0, 0, 1, 0, 1, 2, 0, 0, 0, 0}, groups[1].Counts)
	assert.Equal(t, 50.0, groups[1].Percentage(types.CategoryNeitherPositive))
}

func TestTimelySummaryMonthlyAndDaily(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	groups, err := e.TimelySummary(ctx, types.Filter{}, types.Monthly)
	require.NoError(t, err)
	assert.Equal(t, []string{"February-2025", "January-2025", "December-2024"}, keys(groups))

	groups, err = e.UserTimelySummary(ctx, "1", types.Filter{}, types.Daily)
	require.NoError(t, err)
	assert.Equal(t, []string{"20-Jan-2025", "10-Jan-2025"}, keys(groups))

	_, err = e.TimelySummary(ctx, types.Filter{}, types.Granularity("weekly"))
	assert.ErrorIs(t, err, types.ErrInvalidGranularity)
}

func TestCallTypeSummary(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	groups, err := e.CallTypeSummary(ctx, types.Filter{All: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Anonymous", "Intraday", "Momentum", "Positional"}, keys(groups))
	assert.Equal(t, 3, groups[0].Count(types.CategoryTotal))

	groups, err = e.UserCallTypeSummary(ctx, "1", types.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Intraday", "Momentum"}, keys(groups))
}

func TestUserIDs(t *testing.T) {
	ids, err := newEngine().UserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestPeriodDetailMonthly(t *testing.T) {
	d, err := newEngine().PeriodDetail(context.Background(), "January-2025", types.Monthly)
	require.NoError(t, err)

	assert.Equal(t, 4, d.Summary.Count(types.CategoryTotal))
	assert.Equal(t, []int64{1, 2, 3}, userIDs(d.Users))
	assert.Equal(t, 50.0, d.Users[0].Percentage(types.CategoryTargetHit))
	assert.Equal(t, []int64{1, 2, 3}, userIDs(d.NSE))
	assert.Empty(t, d.MCX)
	assert.NotNil(t, d.MCX)
	assert.Equal(t, []int64{1, 2}, userIDs(d.Equity))
	assert.Equal(t, []int64{1}, userIDs(d.Derivatives))
	assert.Equal(t, []int64{3}, userIDs(d.Options))
}

func TestPeriodDetailYearly(t *testing.T) {
	d, err := newEngine().PeriodDetail(context.Background(), "2024", types.Yearly)
	require.NoError(t, err)

	assert.Equal(t, 2, d.Summary.Count(types.CategoryTotal))
	assert.Equal(t, []int64{2}, userIDs(d.MCX))
	assert.Equal(t, []int64{2}, userIDs(d.Derivatives))
	assert.Equal(t, []int64{2}, userIDs(d.Options))
	assert.Empty(t, d.NSE)
}

func TestPeriodDetailErrors(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	_, err := e.PeriodDetail(ctx, "March-2025", types.Monthly)
	assert.ErrorIs(t, err, types.ErrPeriodNotFound)

	_, err = e.PeriodDetail(ctx, "05-Jan-2025", types.Daily)
	assert.ErrorIs(t, err, types.ErrInvalidGranularity)
}

func TestNoDataset(t *testing.T) {
	e := New(Static{})

	_, err := e.Summary(context.Background(), types.Filter{All: true})
	assert.True(t, errors.Is(err, types.ErrNoData))

	_, err = e.UserIDs(context.Background())
	assert.ErrorIs(t, err, types.ErrNoData)
}

func keys(groups []types.GroupSummary) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Key)
	}
	return out
}

func userIDs(users []types.UserSummary) []int64 {
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.UserID)
	}
	return out
}
