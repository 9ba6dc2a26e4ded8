package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mis-analytics/internal/interfaces"
	"mis-analytics/internal/types"
)

// Remote answers analytics queries against a running mis server. Status codes
// are mapped back to the errors in the types package.
type Remote struct {
	client *Client
}

var _ interfaces.CallAnalytics = (*Remote)(nil)

func NewRemote(baseURL string, opts ...ClientOption) *Remote {
	opts = append([]ClientOption{WithBaseURL(baseURL)}, opts...)
	return &Remote{client: NewClient(opts...)}
}

func (r *Remote) Summary(ctx context.Context, f types.Filter) (types.Summary, error) {
	var resp SummaryResponse
	err := r.get(ctx, "/api/summary", filterQuery(f), &resp)
	return resp.Summary, err
}

// UserSummary with an empty id is the unguarded gross summary
func (r *Remote) UserSummary(ctx context.Context, userID string, f types.Filter) (types.Summary, error) {
	if userID == "" {
		f.All = true
		return r.Summary(ctx, f)
	}
	var resp SummaryResponse
	err := r.get(ctx, userPath(userID, "summary"), filterQuery(f), &resp)
	return resp.Summary, err
}

func (r *Remote) TimelySummary(ctx context.Context, f types.Filter, g types.Granularity) ([]types.GroupSummary, error) {
	q := filterQuery(f)
	q.Set("granularity", string(g))
	return r.groups(ctx, "/api/timely", q)
}

func (r *Remote) UserTimelySummary(ctx context.Context, userID string, f types.Filter, g types.Granularity) ([]types.GroupSummary, error) {
	if userID == "" {
		return r.TimelySummary(ctx, f, g)
	}
	q := filterQuery(f)
	q.Set("granularity", string(g))
	return r.groups(ctx, userPath(userID, "timely"), q)
}

func (r *Remote) CallTypeSummary(ctx context.Context, f types.Filter) ([]types.GroupSummary, error) {
	return r.groups(ctx, "/api/call-types", filterQuery(f))
}

func (r *Remote) UserCallTypeSummary(ctx context.Context, userID string, f types.Filter) ([]types.GroupSummary, error) {
	if userID == "" {
		f.All = true
		return r.CallTypeSummary(ctx, f)
	}
	return r.groups(ctx, userPath(userID, "call-types"), filterQuery(f))
}

func (r *Remote) UserIDs(ctx context.Context) ([]int64, error) {
	var resp UsersResponse
	if err := r.get(ctx, "/api/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.UserIDs, nil
}

func (r *Remote) PeriodDetail(ctx context.Context, period string, scope types.Granularity) (*types.PeriodDetail, error) {
	q := url.Values{}
	q.Set("period", period)
	q.Set("scope", string(scope))
	var detail types.PeriodDetail
	if err := r.get(ctx, "/api/details", q, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Reload asks the server to reload its export
func (r *Remote) Reload(ctx context.Context) (ReloadResponse, error) {
	var out ReloadResponse
	resp, err := r.client.POST(ctx, "/api/reload", nil)
	if err != nil {
		return out, mapError(err)
	}
	return out, resp.ParseJSON(&out)
}

func (r *Remote) groups(ctx context.Context, path string, q url.Values) ([]types.GroupSummary, error) {
	var resp GroupsResponse
	if err := r.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

func (r *Remote) get(ctx context.Context, path string, q url.Values, v any) error {
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := r.client.GET(ctx, path)
	if err != nil {
		return mapError(err)
	}
	return resp.ParseJSON(v)
}

func userPath(userID, leaf string) string {
	return "/api/users/" + url.PathEscape(userID) + "/" + leaf
}

func filterQuery(f types.Filter) url.Values {
	q := url.Values{}
	if f.UserID != "" {
		q.Set("user", f.UserID)
	}
	if !f.Start.IsZero() {
		q.Set("start", f.Start.Format(time.RFC3339Nano))
	}
	if !f.End.IsZero() {
		q.Set("end", f.End.Format(time.RFC3339Nano))
	}
	for _, e := range f.Exchanges {
		q.Add("exchange", e)
	}
	for _, s := range f.Segments {
		q.Add("segment", s)
	}
	if f.All {
		q.Set("all", strconv.FormatBool(true))
	}
	return q
}

func mapError(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return err
	}
	var sentinel error
	switch se.StatusCode {
	case http.StatusUnprocessableEntity:
		sentinel = types.ErrFilterRequired
	case http.StatusBadRequest:
		sentinel = types.ErrInvalidGranularity
	case http.StatusNotFound:
		sentinel = types.ErrPeriodNotFound
	case http.StatusServiceUnavailable:
		sentinel = types.ErrNoData
	default:
		return err
	}
	var body ErrorResponse
	if (&Response{Body: se.Body}).ParseJSON(&body) == nil && body.Error != "" {
		return fmt.Errorf("%w: %s", sentinel, body.Error)
	}
	return sentinel
}
