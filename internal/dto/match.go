package dto

// ── 匹配与分配模块 DTO ──

// MatchResponse 单个导师的匹配结果
type MatchResponse struct {
	SupervisorID        string   `json:"supervisor_id"`
	SupervisorName      string   `json:"supervisor_name"`
	Department          string   `json:"department,omitempty"`
	Expertise           []string `json:"expertise"`
	Score               int      `json:"score"`
	Reasons             []string `json:"reasons"`
	SimilarPastProjects []string `json:"similar_past_projects"`
	SkillOverlap        float64  `json:"skill_overlap"`
	InterestOverlap     float64  `json:"interest_overlap"`
	CapacityFactor      float64  `json:"capacity_factor"`
	CurrentLoad         int      `json:"current_load"`
	MaxCapacity         int      `json:"max_capacity"`
}

// MatchListResponse 学生的导师排名
type MatchListResponse struct {
	StudentID string          `json:"student_id"`
	Matches   []MatchResponse `json:"matches"`
	Cached    bool            `json:"cached"`
}

// SubmitRequestRequest 提交指导申请
type SubmitRequestRequest struct {
	SupervisorID string `json:"supervisor_id" binding:"required"`
	ProjectID    string `json:"project_id"    binding:"required"`
}

// DecideRequest 处理指导申请
type DecideRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept decline"`
}

// SupervisionRequestResponse 指导申请信息
type SupervisionRequestResponse struct {
	ID             string   `json:"id"`
	StudentID      string   `json:"student_id"`
	StudentName    string   `json:"student_name,omitempty"`
	SupervisorID   string   `json:"supervisor_id"`
	SupervisorName string   `json:"supervisor_name,omitempty"`
	ProjectID      string   `json:"project_id"`
	ProjectTitle   string   `json:"project_title,omitempty"`
	Status         string   `json:"status"`
	MatchScore     int      `json:"match_score"`
	MatchReasons   []string `json:"match_reasons"`
	CreatedAt      string   `json:"created_at"`
	RespondedAt    string   `json:"responded_at,omitempty"`
}

// DecisionResponse 处理结果
type DecisionResponse struct {
	Request           SupervisionRequestResponse `json:"request"`
	MilestonesCreated int                        `json:"milestones_created"`
}
