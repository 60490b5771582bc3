package model

import "time"

// 项目状态
const (
	ProjectStatusDraft             = "draft"
	ProjectStatusPendingSupervisor = "pending_supervisor"
	ProjectStatusActive            = "active"
	ProjectStatusCompleted         = "completed"
)

// Project 学生项目表 — 对应 projects
type Project struct {
	ProjectID    string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"project_id"`
	StudentID    string      `gorm:"type:uuid;not null"                             json:"student_id"`
	SupervisorID *string     `gorm:"type:uuid"                                      json:"supervisor_id,omitempty"`
	Title        string      `gorm:"type:varchar(300);not null"                     json:"title"`
	Abstract     string      `gorm:"type:text"                                      json:"abstract,omitempty"`
	Keywords     StringArray `gorm:"type:text[];not null;default:'{}'"              json:"keywords"`
	ProjectType  string      `gorm:"type:varchar(50);not null"                      json:"project_type"` // 对应里程碑模板
	Status       string      `gorm:"type:varchar(30);not null;default:'draft'"      json:"status"`       // draft | pending_supervisor | active | completed
	// LastActivityAt 最近一次项目活动（里程碑变更、反馈等），供不活跃预警使用
	LastActivityAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_activity_at"`
	// ScheduleWarning 非空表示排期过度约束（延期无法在下一个固定节点前吸收）
	ScheduleWarning *string `gorm:"type:varchar(500)" json:"schedule_warning,omitempty"`
	VersionedModel

	// 关联
	Student    *User       `gorm:"foreignKey:StudentID;references:UserID"    json:"student,omitempty"`
	Supervisor *User       `gorm:"foreignKey:SupervisorID;references:UserID" json:"supervisor,omitempty"`
	Milestones []Milestone `gorm:"foreignKey:ProjectID"                      json:"milestones,omitempty"`
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }
