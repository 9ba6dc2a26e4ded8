package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"mis-analytics/internal/types"
)

// Format selects how query results are rendered
type Format string

const (
	Table Format = "table"
	CSV   Format = "csv"
	JSON  Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Table, CSV, JSON:
		return f, nil
	case "":
		return Table, nil
	default:
		return "", fmt.Errorf("unknown format %q: want table, csv or json", s)
	}
}

// groupRow is one category of one group in long-form CSV output
type groupRow struct {
	Group      string  `csv:"group"`
	Category   string  `csv:"category"`
	Count      int     `csv:"count"`
	Percentage float64 `csv:"percentage"`
}

// userRow is one line of a period detail breakdown
type userRow struct {
	Breakdown      string  `csv:"breakdown"`
	UserID         int64   `csv:"user_id"`
	Total          int     `csv:"total"`
	TargetHit      int     `csv:"target_hit"`
	TargetHitPct   float64 `csv:"target_hit_pct"`
	StopLossHit    int     `csv:"stop_loss_hit"`
	StopLossHitPct float64 `csv:"stop_loss_hit_pct"`
	Closed         int     `csv:"closed"`
	Open           int     `csv:"open"`
}

// Summary renders the flat 11-row summary
func Summary(w io.Writer, f Format, s types.Summary) error {
	switch f {
	case JSON:
		return writeJSON(w, s)
	case CSV:
		return gocsv.Marshal(s.Rows(), w)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Category\tCount\tPercentage")
		for _, row := range s.Rows() {
			fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", row.Category, row.Count, row.Percentage)
		}
		writeMeans(tw, s)
		return tw.Flush()
	}
}

// Groups renders a grouped summary. The table puts categories down the side
// and one column per group, the way the dashboard lays it out.
func Groups(w io.Writer, f Format, groups []types.GroupSummary) error {
	switch f {
	case JSON:
		return writeJSON(w, groups)
	case CSV:
		rows := make([]groupRow, 0, len(groups)*int(types.NumCategories))
		for _, g := range groups {
			for _, r := range g.Rows() {
				rows = append(rows, groupRow{Group: g.Key, Category: r.Category, Count: r.Count, Percentage: r.Percentage})
			}
		}
		return gocsv.Marshal(rows, w)
	default:
		if len(groups) == 0 {
			_, err := fmt.Fprintln(w, "No calls match the filter")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		header := []string{"Category"}
		for _, g := range groups {
			header = append(header, g.Key)
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, c := range types.Categories() {
			cells := []string{c.String()}
			for _, g := range groups {
				cells = append(cells, fmt.Sprintf("%d (%.1f%%)", g.Count(c), g.Percentage(c)))
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		return tw.Flush()
	}
}

func UserIDs(w io.Writer, f Format, ids []int64) error {
	if f == JSON {
		return writeJSON(w, ids)
	}
	cw := csv.NewWriter(w)
	if f == CSV {
		if err := cw.Write([]string{"user_id"}); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := cw.Write([]string{strconv.FormatInt(id, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PeriodDetail renders the period summary followed by each user breakdown
func PeriodDetail(w io.Writer, f Format, d *types.PeriodDetail) error {
	switch f {
	case JSON:
		return writeJSON(w, d)
	case CSV:
		var rows []userRow
		for _, b := range breakdowns(d) {
			for _, u := range b.users {
				rows = append(rows, newUserRow(b.name, u))
			}
		}
		return gocsv.Marshal(rows, w)
	default:
		fmt.Fprintf(w, "%s (%s)\n\n", d.Period, d.Scope)
		if err := Summary(w, Table, d.Summary); err != nil {
			return err
		}
		for _, b := range breakdowns(d) {
			fmt.Fprintf(w, "\n%s\n", b.name)
			if len(b.users) == 0 {
				fmt.Fprintln(w, "  no calls")
				continue
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "User\tTotal\tTarget Hit\tStopLoss Hit\tClosed\tOpen")
			for _, u := range b.users {
				r := newUserRow(b.name, u)
				fmt.Fprintf(tw, "%d\t%d\t%d (%.1f%%)\t%d (%.1f%%)\t%d\t%d\n",
					r.UserID, r.Total, r.TargetHit, r.TargetHitPct, r.StopLossHit, r.StopLossHitPct, r.Closed, r.Open)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		return nil
	}
}

type breakdown struct {
	name  string
	users []types.UserSummary
}

func breakdowns(d *types.PeriodDetail) []breakdown {
	return []breakdown{
		{"All users", d.Users},
		{"NSE", d.NSE},
		{"MCX", d.MCX},
		{"Equity", d.Equity},
		{"Derivatives", d.Derivatives},
		{"Options", d.Options},
	}
}

func newUserRow(name string, u types.UserSummary) userRow {
	return userRow{
		Breakdown:      name,
		UserID:         u.UserID,
		Total:          u.Count(types.CategoryTotal),
		TargetHit:      u.Count(types.CategoryTargetHit),
		TargetHitPct:   u.Percentage(types.CategoryTargetHit),
		StopLossHit:    u.Count(types.CategoryStopLossHit),
		StopLossHitPct: u.Percentage(types.CategoryStopLossHit),
		Closed:         u.Count(types.CategoryClosed),
		Open:           u.Count(types.CategoryOpen),
	}
}

func writeMeans(w io.Writer, s types.Summary) {
	if s.MeanTargetExitDiffPct != nil {
		fmt.Fprintf(w, "Mean target/exit diff\t\t%.2f%%\n", *s.MeanTargetExitDiffPct)
	}
	if s.MeanStopLossExitDiffPct != nil {
		fmt.Fprintf(w, "Mean stop loss/exit diff\t\t%.2f%%\n", *s.MeanStopLossExitDiffPct)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
