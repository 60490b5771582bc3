package model

import "time"

// 里程碑状态
const (
	MilestoneStatusPending    = "pending"
	MilestoneStatusInProgress = "in_progress"
	MilestoneStatusCompleted  = "completed"
	MilestoneStatusDelayed    = "delayed"
)

// Milestone 里程碑表 — 对应 milestones
type Milestone struct {
	MilestoneID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"milestone_id"`
	ProjectID     string     `gorm:"type:uuid;not null"                             json:"project_id"`
	Sequence      int        `gorm:"type:smallint;not null"                         json:"sequence"` // 创建时按截止日期确定的顺序
	Title         string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description   string     `gorm:"type:text"                                      json:"description,omitempty"`
	DueDate       time.Time  `gorm:"type:date;not null"                             json:"due_date"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | in_progress | completed | delayed
	// IsCriticalPath 学校规定的固定节点（开题、中期演示、终稿、答辩），截止日期不可变更
	IsCriticalPath bool    `gorm:"not null;default:false;<-:create" json:"is_critical_path"`
	Feedback       *string `gorm:"type:text"                        json:"feedback,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Milestone) TableName() string { return "milestones" }
