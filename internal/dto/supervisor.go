package dto

// ── 导师视图 DTO ──

// SupervisorStudentResponse 导师名下学生概览
type SupervisorStudentResponse struct {
	StudentID       string             `json:"student_id"`
	StudentName     string             `json:"student_name"`
	ProjectID       string             `json:"project_id"`
	ProjectTitle    string             `json:"project_title"`
	ProjectStatus   string             `json:"project_status"`
	ProgressPercent int                `json:"progress_percent"`
	NextMilestone   *MilestoneResponse `json:"next_milestone,omitempty"`
	DaysInactive    int                `json:"days_inactive"`
	Severity        string             `json:"severity"`
}

// AlertResponse 不活跃预警
type AlertResponse struct {
	StudentID      string `json:"student_id"`
	StudentName    string `json:"student_name"`
	ProjectID      string `json:"project_id"`
	ProjectTitle   string `json:"project_title"`
	DaysInactive   int    `json:"days_inactive"`
	Severity       string `json:"severity"`
	LastActivityAt string `json:"last_activity_at"`
}

// ClassifyRequest 不活跃分级查询
type ClassifyRequest struct {
	Days int `form:"days"` // 负数按 0 处理
}

// ClassifyResponse 不活跃分级结果
type ClassifyResponse struct {
	Days     int    `json:"days"`
	Severity string `json:"severity"`
}
