package model

import "time"

// 指导申请状态
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusDeclined = "declined"
)

// SupervisionRequest 指导申请表 — 对应 supervision_requests
// 数据库部分唯一索引保证：每个学生至多一条 accepted；每对（学生, 导师）至多一条 pending
type SupervisionRequest struct {
	RequestID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	StudentID    string `gorm:"type:uuid;not null"                             json:"student_id"`
	SupervisorID string `gorm:"type:uuid;not null"                             json:"supervisor_id"`
	ProjectID    string `gorm:"type:uuid;not null"                             json:"project_id"`
	Status       string `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | accepted | declined
	// 申请时刻的匹配分快照，之后不再重算
	MatchScoreAtRequestTime int         `gorm:"not null;<-:create"                 json:"match_score_at_request_time"`
	MatchReasons            StringArray `gorm:"type:text[];not null;default:'{}'" json:"match_reasons"`
	RespondedAt             *time.Time  `json:"responded_at,omitempty"`
	BaseModel

	// 关联
	Student    *User    `gorm:"foreignKey:StudentID;references:UserID"    json:"student,omitempty"`
	Supervisor *User    `gorm:"foreignKey:SupervisorID;references:UserID" json:"supervisor,omitempty"`
	Project    *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
}

// TableName 指定表名
func (SupervisionRequest) TableName() string { return "supervision_requests" }

// [自证通过] internal/model/supervision_request.go
