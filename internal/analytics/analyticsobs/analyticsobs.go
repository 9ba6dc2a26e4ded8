package analyticsobs

import (
	"context"
	"errors"
	"time"

	"mis-analytics/internal/interfaces"
	"mis-analytics/internal/logger"
	"mis-analytics/internal/metrics"
	"mis-analytics/internal/trace"
	"mis-analytics/internal/types"
)

// observableAnalytics wraps CallAnalytics with logging, tracing and metrics
type observableAnalytics struct {
	inner   interfaces.CallAnalytics
	metrics *metrics.Registry
}

var _ interfaces.CallAnalytics = (*observableAnalytics)(nil)

// Wrap adds observability to an analytics engine. m may be nil.
func Wrap(inner interfaces.CallAnalytics, m *metrics.Registry) interfaces.CallAnalytics {
	return &observableAnalytics{inner: inner, metrics: m}
}

// call is the shared span/log/metric envelope of every query
func (o *observableAnalytics) call(ctx context.Context, query string, fields map[string]any, run func(ctx context.Context) (map[string]any, error)) error {
	ctx, span := trace.StartSpan(ctx, "analytics."+query)
	defer span.End()

	logFields := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		logFields[k] = v
	}
	logger.DebugSkip(ctx, 2, "Running analytics query", logger.FieldsToArgs(logFields)...)

	start := time.Now()
	resultFields, err := run(ctx)
	duration := time.Since(start)
	logFields["duration_ms"] = duration.Milliseconds()

	if err != nil {
		o.metrics.ObserveQuery(query, resultClass(err), duration)
		span.RecordError(err)
		if isCallerError(err) {
			logFields["error"] = err.Error()
			logger.WarnSkip(ctx, 2, "Analytics query rejected", logger.FieldsToArgs(logFields)...)
		} else {
			logger.ErrorWithErrSkip(ctx, 2, "Analytics query failed", err, logger.FieldsToArgs(logFields)...)
		}
		return err
	}

	o.metrics.ObserveQuery(query, "ok", duration)
	for k, v := range resultFields {
		logFields[k] = v
	}
	logger.InfoSkip(ctx, 2, "Analytics query completed", logger.FieldsToArgs(logFields)...)
	return nil
}

func (o *observableAnalytics) Summary(ctx context.Context, f types.Filter) (types.Summary, error) {
	var out types.Summary
	err := o.call(ctx, "Summary", filterFields(f), func(ctx context.Context) (map[string]any, error) {
		var err error
		out, err = o.inner.Summary(ctx, f)
		return summaryFields(out), err
	})
	return out, err
}

func (o *observableAnalytics) UserSummary(ctx context.Context, userID string, f types.Filter) (types.Summary, error) {
	var out types.Summary
	fields := filterFields(f)
	fields["user_id"] = userID
	err := o.call(ctx, "UserSummary", fields, func(ctx context.Context) (map[string]any, error) {
		var err error
		out, err = o.inner.UserSummary(ctx, userID, f)
		return summaryFields(out), err
	})
	return out, err
}

func (o *observableAnalytics) TimelySummary(ctx context.Context, f types.Filter, g types.Granularity) ([]types.GroupSummary, error) {
	var out []types.GroupSummary
	fields := filterFields(f)
	fields["granularity"] = string(g)
	err := o.call(ctx, "TimelySummary", fields, func(ctx context.Context) (map[string]any, error) {
		var err error
		out, err = o.inner.TimelySummary(ctx, f, g)
		return map[string]any{"groups": len(out)}, err
	})
	return out, err
}

func (o *observableAnalytics) UserTimelySummary(ctx context.Context, userID string, f types.Filter, g types.Granularity) ([]types.GroupSummary, error) {
	var out []types.GroupSummary
	fields := filterFields(f)
	fields["user_id"] = userID
	fields["granularity"] = string(g)
	err := o.call(ctx, "UserTimelySummary", fields, func(ctx context.Context) (map[string]any, error) {
		var err error
		out, err = o.inner.UserTimelySummary(ctx, userID, f, g)
		return map[string]any{"groups": len(out)}, err
	})
	return out, err
}

func (o *observableAnalytics) CallTypeSummary(ctx context.Context, f types.Filter) ([]types.GroupSummary, error) {
	var out []types.GroupSummary
	err := o.call(ctx, "CallTypeSummary", filterFields(f), func(ctx context.Context) (map[string]any, error) {
		var err error
		out, err = o.inner.CallTypeSummary(ctx, f)
		return map[string]any{"groups": len(out)}, err
	})
	return out, err
}

func (o *observableAnalytics) UserCallTypeSummary(ctx context.Context, userID string, f types.Filter) ([]types.GroupSummary, error) {
	var out []types.GroupSummary
	fields := filterFields(f)
	fields["user_id"] = userID
	err := o.call(ctx, "UserCallTypeSummary", fields, func(ctx context.Context) (map[string]any, error) {
		var err error
		out, err = o.inner.UserCallTypeSummary(ctx, userID, f)
		return map[string]any{"groups": len(out)}, err
	})
	return out, err
}

func (o *observableAnalytics) UserIDs(ctx context.Context) ([]int64, error) {
	var out []int64
	err := o.call(ctx, "UserIDs", nil, func(ctx context.Context) (map[string]any, error) {
		var err error
		out, err = o.inner.UserIDs(ctx)
		return map[string]any{"users": len(out)}, err
	})
	return out, err
}

func (o *observableAnalytics) PeriodDetail(ctx context.Context, period string, scope types.Granularity) (*types.PeriodDetail, error) {
	var out *types.PeriodDetail
	fields := map[string]any{"period": period, "scope": string(scope)}
	err := o.call(ctx, "PeriodDetail", fields, func(ctx context.Context) (map[string]any, error) {
		var err error
		out, err = o.inner.PeriodDetail(ctx, period, scope)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"total_calls": out.Summary.Count(types.CategoryTotal),
			"users":       len(out.Users),
		}, nil
	})
	return out, err
}

func filterFields(f types.Filter) map[string]any {
	fields := map[string]any{"all": f.All}
	if f.UserID != "" {
		fields["filter_user_id"] = f.UserID
	}
	if !f.Start.IsZero() {
		fields["start"] = f.Start.Format(time.DateOnly)
	}
	if !f.End.IsZero() {
		fields["end"] = f.End.Format(time.DateOnly)
	}
	if len(f.Exchanges) > 0 {
		fields["exchanges"] = f.Exchanges
	}
	if len(f.Segments) > 0 {
		fields["segments"] = f.Segments
	}
	return fields
}

func summaryFields(s types.Summary) map[string]any {
	return map[string]any{
		"total_calls": s.Count(types.CategoryTotal),
		"target_hit":  s.Count(types.CategoryTargetHit),
		"closed":      s.Count(types.CategoryClosed),
	}
}

// isCallerError separates bad requests from real failures
func isCallerError(err error) bool {
	return errors.Is(err, types.ErrFilterRequired) ||
		errors.Is(err, types.ErrInvalidGranularity) ||
		errors.Is(err, types.ErrPeriodNotFound)
}

func resultClass(err error) string {
	switch {
	case errors.Is(err, types.ErrFilterRequired):
		return "filter_required"
	case errors.Is(err, types.ErrInvalidGranularity):
		return "invalid_granularity"
	case errors.Is(err, types.ErrPeriodNotFound):
		return "not_found"
	case errors.Is(err, types.ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}
