package analytics

import (
	"gonum.org/v1/gonum/stat"

	"mis-analytics/internal/calls"
	"mis-analytics/internal/types"
)

// tally adds one record to the counts
type tally func(c *types.Counts, r *calls.CallRecord)

// statusTally backs the flat summaries. Closed and open come from the Status
// column; the neither buckets need both hit flags known as not hit.
func statusTally(c *types.Counts, r *calls.CallRecord) {
	c[types.CategoryTotal]++
	countHits(c, r)

	if r.TargetHit == calls.HitNo && r.StopLossHit == calls.HitNo && r.ProfitPriceChange != nil {
		switch p := *r.ProfitPriceChange; {
		case p > 0:
			c[types.CategoryNeitherPositive]++
		case p < 0:
			c[types.CategoryNeitherNegative]++
		default:
			c[types.CategoryNeitherRedundant]++
		}
	}

	switch {
	case r.IsClosed():
		c[types.CategoryClosed]++
	case r.IsOpen():
		c[types.CategoryOpen]++
		if r.Price == nil || r.LastTradedPrice == nil {
			return
		}
		price, ltp := *r.Price, *r.LastTradedPrice
		if price == ltp {
			c[types.CategoryOpenRedundant]++
			return
		}
		switch r.Side() {
		case calls.SideBuy:
			if price > ltp {
				c[types.CategoryOpenPositive]++
			} else {
				c[types.CategoryOpenNegative]++
			}
		case calls.SideSell:
			if price < ltp {
				c[types.CategoryOpenPositive]++
			} else {
				c[types.CategoryOpenNegative]++
			}
		}
	}
}

// exitTally backs the grouped summaries and the period detail. A call is
// closed when its exit price is known and open otherwise; open calls are
// marked against the last traded price.
func exitTally(c *types.Counts, r *calls.CallRecord) {
	c[types.CategoryTotal]++
	countHits(c, r)

	if r.ExitPrice != nil {
		c[types.CategoryClosed]++
		if r.TargetHit != calls.HitYes && r.StopLossHit != calls.HitYes {
			if cat, ok := sideMove(r, r.ExitPrice, types.CategoryNeitherPositive); ok {
				c[cat]++
			}
		}
		return
	}

	c[types.CategoryOpen]++
	if cat, ok := sideMove(r, r.LastTradedPrice, types.CategoryOpenPositive); ok {
		c[cat]++
	}
}

// sideMove classifies mark against the entry price. base is the positive
// category; negative and redundant follow it in the category order.
func sideMove(r *calls.CallRecord, mark *float64, base types.Category) (types.Category, bool) {
	if r.Price == nil || mark == nil {
		return 0, false
	}
	diff := *mark - *r.Price
	switch r.Side() {
	case calls.SideBuy:
	case calls.SideSell:
		diff = -diff
	default:
		return 0, false
	}
	switch {
	case diff > 0:
		return base, true
	case diff < 0:
		return base + 1, true
	default:
		return base + 2, true
	}
}

func countHits(c *types.Counts, r *calls.CallRecord) {
	if r.TargetHit == calls.HitYes {
		c[types.CategoryTargetHit]++
	}
	if r.StopLossHit == calls.HitYes {
		c[types.CategoryStopLossHit]++
	}
}

// summarize runs t over records and fills percentages and diff means
func summarize(records []*calls.CallRecord, t tally) types.Summary {
	var s types.Summary
	var targetDiffs, stopDiffs []float64
	for _, r := range records {
		t(&s.Counts, r)
		if r.TargetExitDiffPct != nil {
			targetDiffs = append(targetDiffs, *r.TargetExitDiffPct)
		}
		if r.StopLossExitDiffPct != nil {
			stopDiffs = append(stopDiffs, *r.StopLossExitDiffPct)
		}
	}
	s.Percentages = s.Counts.Percentages()
	s.MeanTargetExitDiffPct = mean(targetDiffs)
	s.MeanStopLossExitDiffPct = mean(stopDiffs)
	return s
}

func mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	return calls.Float(stat.Mean(xs, nil))
}
