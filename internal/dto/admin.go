package dto

// ── 管理员模块 DTO ──

// UpdateCapacityRequest 修改导师名额
type UpdateCapacityRequest struct {
	MaxCapacity int `json:"max_capacity" binding:"required,min=1,max=50"`
}

// SupervisorCapacityResponse 导师名额信息
type SupervisorCapacityResponse struct {
	SupervisorID string `json:"supervisor_id"`
	Name         string `json:"name"`
	Department   string `json:"department,omitempty"`
	MaxCapacity  int    `json:"max_capacity"`
	CurrentLoad  int    `json:"current_load"`
	Available    int    `json:"available"`
	IsFull       bool   `json:"is_full"`
}

// CapacitySummaryResponse 全体导师名额汇总
type CapacitySummaryResponse struct {
	TotalCapacity  int                          `json:"total_capacity"`
	Assigned       int                          `json:"assigned"`
	Available      int                          `json:"available"`
	AtFullCapacity int                          `json:"at_full_capacity"`
	Supervisors    []SupervisorCapacityResponse `json:"supervisors"`
}

// SystemStatsResponse 系统统计
type SystemStatsResponse struct {
	Students          int64   `json:"students"`
	Supervisors       int64   `json:"supervisors"`
	Admins            int64   `json:"admins"`
	DraftProjects     int64   `json:"draft_projects"`
	ActiveProjects    int64   `json:"active_projects"`
	CompletedProjects int64   `json:"completed_projects"`
	PendingRequests   int64   `json:"pending_requests"`
	AcceptedRequests  int64   `json:"accepted_requests"`
	DeclinedRequests  int64   `json:"declined_requests"`
	AverageMatchScore float64 `json:"average_match_score"`
}
