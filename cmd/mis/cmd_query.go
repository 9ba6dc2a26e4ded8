package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mis-analytics/internal/interfaces"
	"mis-analytics/internal/report"
	"mis-analytics/internal/types"
)

// Filter flags shared by the query commands
var (
	filterStart     string
	filterEnd       string
	filterUser      string
	filterExchanges []string
	filterSegments  []string
	filterAll       bool

	granularityFlag string
	periodFlag      string
	scopeFlag       string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Flat 11-row summary of the filtered calls",
	Long: `Counts every summary category over the filtered calls. Closed and open
come from the Status column.

Without --user, at least one of --start, --end, --exchange or --segment is
required, or --all to summarize the whole dataset.

Examples:
  mis summary --start 2025-01-01 --exchange NSE
  mis summary --user 1042 --format json
  mis summary --all --format csv --out summary.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), func(ctx context.Context, a interfaces.CallAnalytics, w io.Writer, f report.Format) error {
			filter, err := buildFilter()
			if err != nil {
				return err
			}
			var s types.Summary
			if filterUser != "" {
				s, err = a.UserSummary(ctx, filterUser, filter)
			} else {
				s, err = a.Summary(ctx, filter)
			}
			if err != nil {
				return err
			}
			return report.Summary(w, f, s)
		})
	},
}

var timelyCmd = &cobra.Command{
	Use:   "timely",
	Short: "Summary per year, month or day, newest first",
	Long: `Groups the filtered calls by period and summarizes each group. A call
counts as closed when its exit price is known.

Examples:
  mis timely --granularity yearly
  mis timely --granularity daily --start 2025-03-01 --end 2025-03-31
  mis timely --user 1042`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), func(ctx context.Context, a interfaces.CallAnalytics, w io.Writer, f report.Format) error {
			filter, err := buildFilter()
			if err != nil {
				return err
			}
			g, err := types.ParseGranularity(granularityFlag)
			if err != nil {
				return err
			}
			var groups []types.GroupSummary
			if filterUser != "" {
				groups, err = a.UserTimelySummary(ctx, filterUser, filter, g)
			} else {
				groups, err = a.TimelySummary(ctx, filter, g)
			}
			if err != nil {
				return err
			}
			return report.Groups(w, f, groups)
		})
	},
}

var callTypesCmd = &cobra.Command{
	Use:   "call-types",
	Short: "Summary per call type",
	Long: `Groups the filtered calls by call type (Intraday, BTST, Positional, ...)
in alphabetical order. The same filter rule as summary applies without --user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), func(ctx context.Context, a interfaces.CallAnalytics, w io.Writer, f report.Format) error {
			filter, err := buildFilter()
			if err != nil {
				return err
			}
			var groups []types.GroupSummary
			if filterUser != "" {
				groups, err = a.UserCallTypeSummary(ctx, filterUser, filter)
			} else {
				groups, err = a.CallTypeSummary(ctx, filter)
			}
			if err != nil {
				return err
			}
			return report.Groups(w, f, groups)
		})
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the user ids present in the export",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), func(ctx context.Context, a interfaces.CallAnalytics, w io.Writer, f report.Format) error {
			ids, err := a.UserIDs(ctx)
			if err != nil {
				return err
			}
			return report.UserIDs(w, f, ids)
		})
	},
}

var detailCmd = &cobra.Command{
	Use:   "detail",
	Short: "Drill into one month or year",
	Long: `Summarizes one period of the whole dataset and ranks users by target hit
percentage, overall and per NSE, MCX, equity, derivatives and options.

Examples:
  mis detail --period January-2025
  mis detail --period 2025 --scope yearly --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if periodFlag == "" {
			return fmt.Errorf("--period is required")
		}
		return runQuery(cmd.Context(), func(ctx context.Context, a interfaces.CallAnalytics, w io.Writer, f report.Format) error {
			d, err := a.PeriodDetail(ctx, periodFlag, types.Granularity(scopeFlag))
			if err != nil {
				return err
			}
			return report.PeriodDetail(w, f, d)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{summaryCmd, timelyCmd, callTypesCmd} {
		addFilterFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
	timelyCmd.Flags().StringVar(&granularityFlag, "granularity", "monthly", "Period size: yearly, monthly or daily")

	detailCmd.Flags().StringVar(&periodFlag, "period", "", `Period key, e.g. "January-2025" or "2025"`)
	detailCmd.Flags().StringVar(&scopeFlag, "scope", "monthly", "Period scope: monthly or yearly")

	rootCmd.AddCommand(usersCmd, detailCmd)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&filterStart, "start", "", "Earliest insertion date, YYYY-MM-DD or RFC3339")
	cmd.Flags().StringVar(&filterEnd, "end", "", "Latest insertion date, inclusive")
	cmd.Flags().StringVar(&filterUser, "user", "", "Restrict to one user id")
	cmd.Flags().StringSliceVar(&filterExchanges, "exchange", nil, "Exchanges to include (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&filterSegments, "segment", nil, "Exchange segments to include (repeatable or comma separated)")
	cmd.Flags().BoolVar(&filterAll, "all", false, "Summarize the whole dataset when no other filter is given")
}

func buildFilter() (types.Filter, error) {
	start, err := types.ParseDateBound(filterStart, false)
	if err != nil {
		return types.Filter{}, err
	}
	end, err := types.ParseDateBound(filterEnd, true)
	if err != nil {
		return types.Filter{}, err
	}
	return types.Filter{
		Start:     start,
		End:       end,
		Exchanges: filterExchanges,
		Segments:  filterSegments,
		All:       filterAll,
	}, nil
}

type queryFunc func(ctx context.Context, a interfaces.CallAnalytics, w io.Writer, f report.Format) error

// runQuery resolves the backend and the output, then runs q
func runQuery(ctx context.Context, q queryFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	a, err := initializeAnalytics(ctx)
	if err != nil {
		return err
	}
	out, err := openOutput()
	if err != nil {
		return err
	}
	if err := q(ctx, a, out, format); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
