package analytics

import (
	"strconv"
	"strings"

	"mis-analytics/internal/calls"
	"mis-analytics/internal/types"
)

type predicate func(r *calls.CallRecord) bool

// compile turns a filter into a row predicate
func compile(f types.Filter) predicate {
	var userID int64
	matchUser := false
	noUser := false
	if s := strings.TrimSpace(f.UserID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			noUser = true
		} else {
			userID, matchUser = id, true
		}
	}
	exchanges := toSet(f.Exchanges)
	segments := toSet(f.Segments)

	return func(r *calls.CallRecord) bool {
		if noUser {
			return false
		}
		if matchUser && r.UserID != userID {
			return false
		}
		if !f.Start.IsZero() && r.InsertionTime.Before(f.Start) {
			return false
		}
		if !f.End.IsZero() && r.InsertionTime.After(f.End) {
			return false
		}
		if exchanges != nil {
			if _, ok := exchanges[r.Exchange]; !ok {
				return false
			}
		}
		if segments != nil {
			if _, ok := segments[r.ExchangeSegment]; !ok {
				return false
			}
		}
		return true
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func selectRecords(ds *calls.Dataset, keep predicate) []*calls.CallRecord {
	out := make([]*calls.CallRecord, 0, len(ds.Records))
	for i := range ds.Records {
		if keep(&ds.Records[i]) {
			out = append(out, &ds.Records[i])
		}
	}
	return out
}

// withUser scopes f to userID, which takes precedence over f.UserID
func withUser(f types.Filter, userID string) types.Filter {
	f.UserID = userID
	return f
}
