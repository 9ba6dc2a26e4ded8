package analytics

import (
	"sort"

	"mis-analytics/internal/calls"
	"mis-analytics/internal/types"
)

type keyFunc func(r *calls.CallRecord) string

func groupBy(records []*calls.CallRecord, key keyFunc) (map[string][]*calls.CallRecord, []string) {
	groups := make(map[string][]*calls.CallRecord)
	for _, r := range records {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return groups, keys
}

// byPeriod groups records by period key, newest period first
func byPeriod(records []*calls.CallRecord, g types.Granularity) []types.GroupSummary {
	groups, keys := groupBy(records, func(r *calls.CallRecord) string {
		return g.PeriodKey(r.InsertionTime)
	})
	starts := make(map[string]int64, len(keys))
	for _, k := range keys {
		if t := types.ParsePeriodKey(k); !t.IsZero() {
			starts[k] = t.Unix()
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ti, iok := starts[keys[i]]
		tj, jok := starts[keys[j]]
		if !iok || !jok {
			return iok && !jok
		}
		return ti > tj
	})
	return summarizeGroups(groups, keys)
}

// byCallType groups records by call type in alphabetical order
func byCallType(records []*calls.CallRecord) []types.GroupSummary {
	groups, keys := groupBy(records, func(r *calls.CallRecord) string {
		return string(r.CallType)
	})
	return summarizeGroups(groups, keys)
}

func summarizeGroups(groups map[string][]*calls.CallRecord, keys []string) []types.GroupSummary {
	out := make([]types.GroupSummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.GroupSummary{Key: k, Summary: summarize(groups[k], exitTally)})
	}
	return out
}

// byUser ranks users by target hit percentage, best first. Ties keep
// ascending user id order.
func byUser(records []*calls.CallRecord) []types.UserSummary {
	groups := make(map[int64][]*calls.CallRecord)
	for _, r := range records {
		groups[r.UserID] = append(groups[r.UserID], r)
	}
	out := make([]types.UserSummary, 0, len(groups))
	for id, rs := range groups {
		out = append(out, types.UserSummary{UserID: id, Summary: summarize(rs, exitTally)})
	}
	sort.Slice(out, func(i, j int) bool {
		pi := out[i].Percentage(types.CategoryTargetHit)
		pj := out[j].Percentage(types.CategoryTargetHit)
		if pi != pj {
			return pi > pj
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
