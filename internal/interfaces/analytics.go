package interfaces

import (
	"context"

	"mis-analytics/internal/types"
)

// CallAnalytics answers the dashboard queries over the current dataset
type CallAnalytics interface {
	// Summary is the flat 11-row summary. Without any narrowing filter and
	// without Filter.All it returns types.ErrFilterRequired.
	Summary(ctx context.Context, f types.Filter) (types.Summary, error)

	// UserSummary is Summary scoped to one user
	UserSummary(ctx context.Context, userID string, f types.Filter) (types.Summary, error)

	// TimelySummary groups by period, newest first
	TimelySummary(ctx context.Context, f types.Filter, g types.Granularity) ([]types.GroupSummary, error)

	UserTimelySummary(ctx context.Context, userID string, f types.Filter, g types.Granularity) ([]types.GroupSummary, error)

	// CallTypeSummary groups by call type, alphabetically
	CallTypeSummary(ctx context.Context, f types.Filter) ([]types.GroupSummary, error)

	UserCallTypeSummary(ctx context.Context, userID string, f types.Filter) ([]types.GroupSummary, error)

	// UserIDs lists the distinct users in ascending order
	UserIDs(ctx context.Context) ([]int64, error)

	// PeriodDetail drills into one month ("January-2025") or year ("2025")
	PeriodDetail(ctx context.Context, period string, scope types.Granularity) (*types.PeriodDetail, error)
}
