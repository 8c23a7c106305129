package dto

import "faculty-appraisal/internal/model"

// ── appraisal workflow ──

// TransitionRequest body shared by every workflow action; each action reads
// the fields it needs.
type TransitionRequest struct {
	Comments string `json:"comments"`
	Reason   string `json:"reason"`
}

// ListAppraisalsQuery query string of the department listing
type ListAppraisalsQuery struct {
	Status string `form:"status"`
}

// AppraisalResponse one case with its history
type AppraisalResponse struct {
	Case   *model.AppraisalCase   `json:"case"`
	Events []model.AppraisalEvent `json:"events"`
}

// AppraisalListResponse department listing
type AppraisalListResponse struct {
	Cases []model.AppraisalCase `json:"cases"`
	Total int                   `json:"total"`
}

// SummaryResponse admin dashboard counters
type SummaryResponse struct {
	TotalCases    int64            `json:"totalCases"`
	CasesByStatus map[string]int64 `json:"casesByStatus"`
	UsersByRole   map[string]int64 `json:"usersByRole"`
}
