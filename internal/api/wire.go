package api

import (
	"time"

	"mis-analytics/internal/types"
)

// JSON bodies shared by the HTTP server and the remote client

type ErrorResponse struct {
	Error string `json:"error"`
}

type SummaryResponse struct {
	Summary types.Summary      `json:"summary"`
	Rows    []types.SummaryRow `json:"rows"`
}

type GroupsResponse struct {
	Categories []string             `json:"categories"`
	Groups     []types.GroupSummary `json:"groups"`
}

type UsersResponse struct {
	UserIDs []int64 `json:"user_ids"`
}

type ReloadResponse struct {
	DatasetID string    `json:"dataset_id"`
	Rows      int       `json:"rows"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// NewGroupsResponse attaches the category labels in display order
func NewGroupsResponse(groups []types.GroupSummary) GroupsResponse {
	names := make([]string, 0, types.NumCategories)
	for _, c := range types.Categories() {
		names = append(names, c.String())
	}
	if groups == nil {
		groups = []types.GroupSummary{}
	}
	return GroupsResponse{Categories: names, Groups: groups}
}
