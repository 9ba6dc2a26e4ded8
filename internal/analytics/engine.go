package analytics

import (
	"context"
	"fmt"
	"strings"

	"mis-analytics/internal/calls"
	"mis-analytics/internal/interfaces"
	"mis-analytics/internal/types"
)

// Engine answers analytics queries. Each query reads the source once, so a
// reload running alongside never changes the rows a query sees.
type Engine struct {
	src interfaces.DatasetSource
}

var _ interfaces.CallAnalytics = (*Engine)(nil)

func New(src interfaces.DatasetSource) *Engine {
	return &Engine{src: src}
}

// Static serves a fixed dataset
type Static struct {
	Dataset *calls.Dataset
}

func (s Static) Current() *calls.Dataset { return s.Dataset }

func (e *Engine) snapshot() (*calls.Dataset, error) {
	ds := e.src.Current()
	if ds == nil {
		return nil, types.ErrNoData
	}
	return ds, nil
}

func (e *Engine) Summary(ctx context.Context, f types.Filter) (types.Summary, error) {
	if !f.All && !f.Narrowed() {
		return types.Summary{}, types.ErrFilterRequired
	}
	return e.flat(f)
}

func (e *Engine) UserSummary(ctx context.Context, userID string, f types.Filter) (types.Summary, error) {
	return e.flat(withUser(f, userID))
}

func (e *Engine) flat(f types.Filter) (types.Summary, error) {
	ds, err := e.snapshot()
	if err != nil {
		return types.Summary{}, err
	}
	return summarize(selectRecords(ds, compile(f)), statusTally), nil
}

func (e *Engine) TimelySummary(ctx context.Context, f types.Filter, g types.Granularity) ([]types.GroupSummary, error) {
	return e.timely(f, g)
}

func (e *Engine) UserTimelySummary(ctx context.Context, userID string, f types.Filter, g types.Granularity) ([]types.GroupSummary, error) {
	return e.timely(withUser(f, userID), g)
}

func (e *Engine) timely(f types.Filter, g types.Granularity) ([]types.GroupSummary, error) {
	g, err := types.ParseGranularity(string(g))
	if err != nil {
		return nil, err
	}
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return byPeriod(selectRecords(ds, compile(f)), g), nil
}

func (e *Engine) CallTypeSummary(ctx context.Context, f types.Filter) ([]types.GroupSummary, error) {
	if !f.All && !f.Narrowed() {
		return nil, types.ErrFilterRequired
	}
	return e.callTypes(f)
}

func (e *Engine) UserCallTypeSummary(ctx context.Context, userID string, f types.Filter) ([]types.GroupSummary, error) {
	return e.callTypes(withUser(f, userID))
}

func (e *Engine) callTypes(f types.Filter) ([]types.GroupSummary, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return byCallType(selectRecords(ds, compile(f))), nil
}

func (e *Engine) UserIDs(ctx context.Context) ([]int64, error) {
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return ds.UserIDs(), nil
}

// PeriodDetail ignores filters and scans the whole dataset for the period
func (e *Engine) PeriodDetail(ctx context.Context, period string, scope types.Granularity) (*types.PeriodDetail, error) {
	scope, err := types.ParseGranularity(string(scope))
	if err != nil {
		return nil, err
	}
	if scope == types.Daily {
		return nil, fmt.Errorf("%w: detail scope must be monthly or yearly", types.ErrInvalidGranularity)
	}
	ds, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	records := selectRecords(ds, func(r *calls.CallRecord) bool {
		return scope.PeriodKey(r.InsertionTime) == period
	})
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrPeriodNotFound, period)
	}

	return &types.PeriodDetail{
		Period:      period,
		Scope:       scope,
		Summary:     summarize(records, exitTally),
		Users:       byUser(records),
		NSE:         byUser(where(records, exchangeIs("NSE"))),
		MCX:         byUser(where(records, exchangeIs("MCX"))),
		Equity:      byUser(where(records, segmentIn("EQUITY"))),
		Derivatives: byUser(where(records, func(r *calls.CallRecord) bool { return strings.Contains(strings.ToUpper(r.ExchangeSegment), "FUT") })),
		Options:     byUser(where(records, segmentIn("OPT", "OPTCOMM"))),
	}, nil
}

func where(records []*calls.CallRecord, keep predicate) []*calls.CallRecord {
	out := make([]*calls.CallRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func exchangeIs(exchange string) predicate {
	return func(r *calls.CallRecord) bool {
		return strings.ToUpper(r.Exchange) == exchange
	}
}

func segmentIn(segments ...string) predicate {
	return func(r *calls.CallRecord) bool {
		seg := strings.ToUpper(r.ExchangeSegment)
		for _, s := range segments {
			if seg == s {
				return true
			}
		}
		return false
	}
}
