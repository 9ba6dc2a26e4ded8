package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"mis-analytics/internal/calls"
)

var (
	atSpaceRe        = regexp.MustCompile(`@\s+`)
	stopLossKeywords = []string{"sl", "stop loss", "stoploss"}
)

// callTypeKeywords is ordered; the first keyword found wins
var callTypeKeywords = []struct {
	keyword  string
	callType calls.CallType
}{
	{"momentum", calls.CallTypeMomentum},
	{"intraday", calls.CallTypeIntraday},
	{"positional", calls.CallTypePositional},
	{"stock of the day", calls.CallTypeStockOfDay},
	{"btst", calls.CallTypeBTST},
	{"wealth pick", calls.CallTypeWealthPick},
}

// SanitizeDescription collapses "@   " to "@" so the at-sign extractor anchors
func SanitizeDescription(s string) string {
	return atSpaceRe.ReplaceAllString(s, "@")
}

// IsTestRow reports rows created while testing the call desk tooling
func IsTestRow(statusDescription, header string) bool {
	return strings.Contains(strings.ToLower(statusDescription), "test") ||
		strings.Contains(strings.ToLower(header), "test")
}

// Enricher derives the outcome columns of a record. Steps read fields written
// by earlier steps, so the order in Enrich matters.
type Enricher struct {
	extractors []PriceExtractor
}

func NewEnricher(extractors ...PriceExtractor) *Enricher {
	if len(extractors) == 0 {
		extractors = DefaultExtractors()
	}
	return &Enricher{extractors: extractors}
}

// Enrich fills every derived field of r. It never fails: anything that cannot
// be derived stays unknown.
func (e *Enricher) Enrich(r *calls.CallRecord) {
	r.Year = r.InsertionTime.Year()
	r.MonthLabel = r.InsertionTime.Format("January 2006")

	e.setExitPrice(r)
	backfillExitPrice(r)
	r.ProfitPriceChange = profitPriceChange(r)
	r.StopLossHit = classifyStopLoss(r)
	r.TargetHit = classifyTarget(r)
	r.TargetExitDiffPct = diffPct(r.ExitPrice, r.TargetPrice)
	r.StopLossExitDiffPct = diffPct(r.ExitPrice, r.StopLoss)

	r.WeekNumber = weekOfMonth(r.InsertionTime)
	r.WeekLabel = fmt.Sprintf("Week %d %s %d", r.WeekNumber, r.InsertionTime.Format("January"), r.InsertionTime.Year())
	r.CallType = classifyCallType(r.Header, r.StatusDescription)
}

// setExitPrice only looks at closed calls: text first, then the closing LTP,
// then the last traded price
func (e *Enricher) setExitPrice(r *calls.CallRecord) {
	r.ExitPrice = nil
	if !r.IsClosed() {
		return
	}
	if v, _, ok := ExtractExitPrice(e.extractors, r.StatusDescription, r.InternalRemark); ok {
		r.ExitPrice = calls.Float(v)
		return
	}
	for _, fallback := range []*float64{r.CallClosedLTP, r.LastTradedPrice} {
		if nonZero(fallback) {
			r.ExitPrice = calls.Float(*fallback)
			return
		}
	}
}

// backfillExitPrice uses the stop loss or target as exit when the remark says
// which one closed the call
func backfillExitPrice(r *calls.CallRecord) {
	if r.ExitPrice != nil {
		return
	}
	for _, text := range []string{r.StatusDescription, r.InternalRemark} {
		lower := strings.ToLower(text)
		if containsAny(lower, stopLossKeywords) {
			if nonZero(r.StopLoss) {
				r.ExitPrice = calls.Float(*r.StopLoss)
				return
			}
		} else if strings.Contains(lower, "target") {
			if nonZero(r.TargetPrice) {
				r.ExitPrice = calls.Float(*r.TargetPrice)
				return
			}
		}
	}
}

func profitPriceChange(r *calls.CallRecord) *float64 {
	if r.Price == nil || r.ExitPrice == nil {
		return nil
	}
	switch r.Side() {
	case calls.SideBuy:
		return calls.Float(*r.ExitPrice - *r.Price)
	case calls.SideSell:
		return calls.Float(*r.Price - *r.ExitPrice)
	default:
		return nil
	}
}

// classifyStopLoss: keyword match is case-insensitive
func classifyStopLoss(r *calls.CallRecord) calls.HitState {
	if containsAny(strings.ToLower(r.StatusDescription), stopLossKeywords) {
		return calls.HitYes
	}
	if r.StopLoss == nil || r.ExitPrice == nil {
		return calls.HitUnknown
	}
	sl, exit := *r.StopLoss, *r.ExitPrice
	switch r.Side() {
	case calls.SideBuy:
		return hitIf(sl >= exit)
	case calls.SideSell:
		return hitIf(sl <= exit)
	default:
		return calls.HitUnknown
	}
}

// classifyTarget: keyword match is case-sensitive ("Target" only). Historical
// reports depend on this, keep it.
func classifyTarget(r *calls.CallRecord) calls.HitState {
	if strings.Contains(r.StatusDescription, "Target") {
		return calls.HitYes
	}
	if r.TargetPrice == nil || r.ExitPrice == nil {
		return calls.HitUnknown
	}
	target, exit := *r.TargetPrice, *r.ExitPrice
	switch r.Side() {
	case calls.SideBuy:
		return hitIf(exit >= target)
	case calls.SideSell:
		return hitIf(exit <= target)
	default:
		return calls.HitUnknown
	}
}

func diffPct(exit, ref *float64) *float64 {
	if exit == nil || ref == nil || *ref == 0 {
		return nil
	}
	e, base := *exit, *ref
	return calls.Float(math.Abs((e-base)/base) * 100)
}

func classifyCallType(header, statusDescription string) calls.CallType {
	text := strings.ToLower(header + " " + statusDescription)
	for _, kw := range callTypeKeywords {
		if strings.Contains(text, kw.keyword) {
			return kw.callType
		}
	}
	return calls.CallTypeAnonymous
}

func hitIf(cond bool) calls.HitState {
	if cond {
		return calls.HitYes
	}
	return calls.HitNo
}

func nonZero(v *float64) bool {
	return v != nil && *v != 0
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
