package dto

// ── 里程碑模块 DTO ──

// MilestoneResponse 里程碑信息
type MilestoneResponse struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	Sequence       int    `json:"sequence"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	DueDate        string `json:"due_date"` // "2025-03-15"
	CompletedDate  string `json:"completed_date,omitempty"`
	Status         string `json:"status"`
	IsCriticalPath bool   `json:"is_critical_path"`
	Feedback       string `json:"feedback,omitempty"`
}

// TimelineResponse 项目时间线
type TimelineResponse struct {
	ProjectID       string              `json:"project_id"`
	ProjectTitle    string              `json:"project_title"`
	ProjectStatus   string              `json:"project_status"`
	ProgressPercent int                 `json:"progress_percent"`
	ScheduleWarning string              `json:"schedule_warning,omitempty"`
	Milestones      []MilestoneResponse `json:"milestones"`
}

// UpdateMilestoneStatusRequest 更新里程碑状态
type UpdateMilestoneStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in_progress completed delayed"`
}

// RescheduleMilestoneRequest 调整里程碑截止日期
type RescheduleMilestoneRequest struct {
	DueDate string `json:"due_date" binding:"required"` // "2025-03-01"
}

// MilestoneFeedbackRequest 导师反馈
type MilestoneFeedbackRequest struct {
	Feedback string `json:"feedback" binding:"required,max=2000"`
}

// MilestoneUpdateResponse 状态变更或调整后的结果（含级联顺延）
type MilestoneUpdateResponse struct {
	Milestone        MilestoneResponse   `json:"milestone"`
	Shifted          []MilestoneResponse `json:"shifted"`
	SlipDays         int                 `json:"slip_days,omitempty"`
	OverConstrained  bool                `json:"over_constrained"`
	Warning          string              `json:"warning,omitempty"`
	ProjectCompleted bool                `json:"project_completed"`
}

// ActivityLogResponse 项目操作记录
type ActivityLogResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}
