package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mis-analytics/internal/api"
	"mis-analytics/internal/logger"
	"mis-analytics/internal/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.cfg.Source != nil {
		if ds := s.cfg.Source.Current(); ds != nil {
			resp["dataset_id"] = ds.ID
			resp["rows"] = ds.Len()
			resp["loaded_at"] = ds.LoadedAt
		} else {
			resp["status"] = "no_data"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r)
	if !ok {
		return
	}
	sum, err := s.cfg.Analytics.Summary(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.SummaryResponse{Summary: sum, Rows: sum.Rows()})
}

func (s *Server) handleUserSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r)
	if !ok {
		return
	}
	sum, err := s.cfg.Analytics.UserSummary(r.Context(), chi.URLParam(r, "userID"), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.SummaryResponse{Summary: sum, Rows: sum.Rows()})
}

func (s *Server) handleTimely(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r)
	if !ok {
		return
	}
	groups, err := s.cfg.Analytics.TimelySummary(r.Context(), f, granularity(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewGroupsResponse(groups))
}

func (s *Server) handleUserTimely(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r)
	if !ok {
		return
	}
	groups, err := s.cfg.Analytics.UserTimelySummary(r.Context(), chi.URLParam(r, "userID"), f, granularity(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewGroupsResponse(groups))
}

func (s *Server) handleCallTypes(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r)
	if !ok {
		return
	}
	groups, err := s.cfg.Analytics.CallTypeSummary(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewGroupsResponse(groups))
}

func (s *Server) handleUserCallTypes(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filter(w, r)
	if !ok {
		return
	}
	groups, err := s.cfg.Analytics.UserCallTypeSummary(r.Context(), chi.URLParam(r, "userID"), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewGroupsResponse(groups))
}

func (s *Server) handleUserIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.cfg.Analytics.UserIDs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.UsersResponse{UserIDs: ids})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := q.Get("scope")
	if scope == "" {
		scope = string(types.Monthly)
	}
	detail, err := s.cfg.Analytics.PeriodDetail(r.Context(), q.Get("period"), types.Granularity(scope))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.cfg.Reloader.Reload(r.Context())
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Reload request failed", err)
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "reload failed, previous dataset kept"})
		return
	}
	writeJSON(w, http.StatusOK, api.ReloadResponse{DatasetID: ds.ID, Rows: ds.Len(), LoadedAt: ds.LoadedAt})
}

// filter reads the common query parameters: start, end, exchange, segment,
// user and all. Exchange and segment may repeat or be comma separated.
func (s *Server) filter(w http.ResponseWriter, r *http.Request) (types.Filter, bool) {
	q := r.URL.Query()
	start, err := types.ParseDateBound(q.Get("start"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return types.Filter{}, false
	}
	end, err := types.ParseDateBound(q.Get("end"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return types.Filter{}, false
	}
	all, _ := strconv.ParseBool(q.Get("all"))
	return types.Filter{
		UserID:    q.Get("user"),
		Start:     start,
		End:       end,
		Exchanges: splitList(q["exchange"]),
		Segments:  splitList(q["segment"]),
		All:       all || s.cfg.AllowUnfiltered,
	}, true
}

func granularity(r *http.Request) types.Granularity {
	g := r.URL.Query().Get("granularity")
	if g == "" {
		return types.Monthly
	}
	return types.Granularity(g)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrFilterRequired):
		writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{Error: "Select date range or any filter"})
	case errors.Is(err, types.ErrInvalidGranularity):
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, types.ErrPeriodNotFound):
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, types.ErrNoData):
		writeJSON(w, http.StatusServiceUnavailable, api.ErrorResponse{Error: err.Error()})
	default:
		logger.ErrorWithErr(r.Context(), "Query failed", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
