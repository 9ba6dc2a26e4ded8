package calls

import (
	"encoding/json"
	"strings"
	"time"
)

// Status values as they appear in the export
const (
	StatusOpen   = "Open"
	StatusClosed = "Closed"
)

// Side is the normalized BuySell column
type Side string

const (
	SideBuy     Side = "BUY"
	SideSell    Side = "SELL"
	SideUnknown Side = ""
)

// ParseSide trims and upper-cases the raw BuySell value. Anything other than
// BUY or SELL is SideUnknown.
func ParseSide(raw string) Side {
	switch Side(strings.ToUpper(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy
	case SideSell:
		return SideSell
	default:
		return SideUnknown
	}
}

// HitState is a tri-state outcome flag. Unknown is distinct from NotHit:
// the "neither target nor stop loss" buckets only count confirmed NotHit rows.
type HitState int8

const (
	HitUnknown HitState = iota
	HitNo
	HitYes
)

func (h HitState) String() string {
	switch h {
	case HitYes:
		return "hit"
	case HitNo:
		return "not_hit"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Hit as 1, NotHit as 0 and Unknown as null.
func (h HitState) MarshalJSON() ([]byte, error) {
	switch h {
	case HitYes:
		return []byte("1"), nil
	case HitNo:
		return []byte("0"), nil
	default:
		return []byte("null"), nil
	}
}

func (h *HitState) UnmarshalJSON(b []byte) error {
	var v *int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch {
	case v == nil:
		*h = HitUnknown
	case *v == 0:
		*h = HitNo
	default:
		*h = HitYes
	}
	return nil
}

// CallType is the production call classification
type CallType string

const (
	CallTypeMomentum   CallType = "Momentum"
	CallTypeIntraday   CallType = "Intraday"
	CallTypePositional CallType = "Positional"
	CallTypeStockOfDay CallType = "Stock of the day"
	CallTypeBTST       CallType = "BTST"
	CallTypeWealthPick CallType = "Wealth pick"
	CallTypeAnonymous  CallType = "Anonymous"
)

// CallRecord is one cleaned and enriched row of the structured call export.
// Nullable numerics are nil when unknown.
type CallRecord struct {
	CallID          string    `json:"call_id"`
	UserID          int64     `json:"user_id"`
	InsertionTime   time.Time `json:"insertion_time"`
	Validity        time.Time `json:"validity,omitempty"`
	ModifiedDT      time.Time `json:"modified_dt,omitempty"`
	Exchange        string    `json:"exchange"`
	ExchangeSegment string    `json:"exchange_segment"`
	Header          string    `json:"header"`
	BuySell         string    `json:"buy_sell"`

	Price           *float64 `json:"price"`
	TargetPrice     *float64 `json:"target_price"`
	StopLoss        *float64 `json:"stop_loss"`
	LastTradedPrice *float64 `json:"last_traded_price"`
	CallClosedLTP   *float64 `json:"call_closed_ltp"`

	Status            string `json:"status"`
	StatusDescription string `json:"status_description"`
	InternalRemark    string `json:"internal_remark"`

	// Derived once at load
	Year                int      `json:"year"`
	MonthLabel          string   `json:"month"`
	ExitPrice           *float64 `json:"exit_price"`
	ProfitPriceChange   *float64 `json:"profit_price_change"`
	StopLossHit         HitState `json:"stop_loss_hit"`
	TargetHit           HitState `json:"target_hit"`
	TargetExitDiffPct   *float64 `json:"target_exit_diff_pct"`
	StopLossExitDiffPct *float64 `json:"stop_loss_exit_diff_pct"`
	WeekLabel           string   `json:"week_label"`
	WeekNumber          int      `json:"week_number"`
	CallType            CallType `json:"call_type"`
}

// Side returns the normalized side of the call
func (r *CallRecord) Side() Side {
	return ParseSide(r.BuySell)
}

func (r *CallRecord) IsClosed() bool { return r.Status == StatusClosed }
func (r *CallRecord) IsOpen() bool { return r.Status == StatusOpen }

// Float returns a pointer to v. Handy for building records in code and tests.
func Float(v float64) *float64 {
	return &v
}
