package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrFilterRequired is returned by gross-level queries called without any
	// narrowing filter and without Filter.All
	ErrFilterRequired = errors.New("select date range or any filter")
	// ErrPeriodNotFound means no call falls in the requested period
	ErrPeriodNotFound = errors.New("no data for period")
	// ErrInvalidGranularity covers unknown granularities and unsupported detail scopes
	ErrInvalidGranularity = errors.New("invalid granularity")
	// ErrNoData means no dataset has been loaded
	ErrNoData = errors.New("no data available")
)

// Filter narrows a query. Every criterion is optional and they combine with AND.
type Filter struct {
	UserID    string    `json:"user_id,omitempty"`   // "" means any user; non-numeric matches nobody
	Start     time.Time `json:"start,omitempty"`     // inclusive, zero means unbounded
	End       time.Time `json:"end,omitempty"`       // inclusive, zero means unbounded
	Exchanges []string  `json:"exchanges,omitempty"` // exact membership, empty means any
	Segments  []string  `json:"segments,omitempty"`  // exact membership, empty means any
	All       bool      `json:"all,omitempty"`       // explicit request for the unfiltered aggregate
}

// Narrowed reports whether at least one criterion restricts the rows
func (f Filter) Narrowed() bool {
	return f.UserID != "" || !f.Start.IsZero() || !f.End.IsZero() || len(f.Exchanges) > 0 || len(f.Segments) > 0
}

// Category is one of the fixed summary rows
type Category int

const (
	CategoryTotal Category = iota
	CategoryTargetHit
	CategoryStopLossHit
	CategoryNeitherPositive
	CategoryNeitherNegative
	CategoryNeitherRedundant
	CategoryClosed
	CategoryOpenPositive
	CategoryOpenNegative
	CategoryOpenRedundant
	CategoryOpen

	NumCategories
)

var categoryNames = [NumCategories]string{
	"Total Calls",
	"Target Hit",
	"StopLoss Hit",
	"Neither target nor Stop loss hit - Positive",
	"Neither target nor Stop loss hit - Negative",
	"Neither target nor Stop loss hit - Redundant",
	"Total Closed Calls",
	"Open Calls - Positive",
	"Open Calls - Negative",
	"Open Calls - Redundant",
	"Total Open Calls",
}

func (c Category) String() string {
	if c < 0 || c >= NumCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Categories returns every category in display order
func Categories() []Category {
	out := make([]Category, NumCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

type Counts [NumCategories]int

type Percentages [NumCategories]float64

// Percentages is count/total*100 rounded to one decimal, all zero when there
// are no calls
func (c Counts) Percentages() Percentages {
	var p Percentages
	total := c[CategoryTotal]
	if total == 0 {
		return p
	}
	for i, n := range c {
		p[i] = math.Round(float64(n)/float64(total)*1000) / 10
	}
	return p
}

type SummaryRow struct {
	Category   string  `json:"category" csv:"category"`
	Count      int     `json:"count" csv:"count"`
	Percentage float64 `json:"percentage" csv:"percentage"`
}

// Summary is the fixed-shape result of one aggregation
type Summary struct {
	Counts      Counts      `json:"counts"`
	Percentages Percentages `json:"percentages"`

	// Means over the calls where the diff is known; nil when there are none
	MeanTargetExitDiffPct   *float64 `json:"mean_target_exit_diff_pct"`
	MeanStopLossExitDiffPct *float64 `json:"mean_stop_loss_exit_diff_pct"`
}

func (s Summary) Count(c Category) int {
	return s.Counts[c]
}

func (s Summary) Percentage(c Category) float64 {
	return s.Percentages[c]
}

// Rows returns the summary as category rows in display order
func (s Summary) Rows() []SummaryRow {
	rows := make([]SummaryRow, 0, NumCategories)
	for _, c := range Categories() {
		rows = append(rows, SummaryRow{Category: c.String(), Count: s.Counts[c], Percentage: s.Percentages[c]})
	}
	return rows
}

// GroupSummary is one group of a grouped query: a period, a call type or a user
type GroupSummary struct {
	Key string `json:"key"`
	Summary
}

type UserSummary struct {
	UserID int64 `json:"user_id"`
	Summary
}

// PeriodDetail drills into one month or year of the whole dataset. Every
// breakdown is sorted by target hit percentage, best first.
type PeriodDetail struct {
	Period      string        `json:"period"`
	Scope       Granularity   `json:"scope"`
	Summary     Summary       `json:"summary"`
	Users       []UserSummary `json:"users"`
	NSE         []UserSummary `json:"nse"`
	MCX         []UserSummary `json:"mcx"`
	Equity      []UserSummary `json:"equity"`
	Derivatives []UserSummary `json:"derivatives"`
	Options     []UserSummary `json:"options"`
}

// Granularity selects the period key of a timely summary
type Granularity string

const (
	Yearly  Granularity = "yearly"
	Monthly Granularity = "monthly"
	Daily   Granularity = "daily"
)

var periodLayouts = map[Granularity]string{
	Yearly:  "2006",
	Monthly: "January-2006",
	Daily:   "02-Jan-2006",
}

func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodLayouts[g]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
	return g, nil
}

// PeriodKey formats t as the group key for g: "2025", "January-2025" or "05-Jan-2025"
func (g Granularity) PeriodKey(t time.Time) string {
	return t.Format(periodLayouts[g])
}

// ParsePeriodKey turns any period key back into its first instant. Unknown
// keys give the zero time, which sorts after every real period.
func ParsePeriodKey(key string) time.Time {
	for _, g := range []Granularity{Daily, Monthly, Yearly} {
		if t, err := time.Parse(periodLayouts[g], key); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseDateBound parses a filter bound given as YYYY-MM-DD or RFC3339. A
// date-only end bound covers the whole day.
func ParseDateBound(s string, end bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if end {
			return t.Add(24*time.Hour - time.Nanosecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC3339", s)
	}
	return t, nil
}
