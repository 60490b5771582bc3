package model

import "time"

// ActivityLog 操作日志表 — 对应 activity_logs（纯审计日志）
type ActivityLog struct {
	ActivityLogID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_log_id"`
	UserID        string    `gorm:"type:uuid;not null"                             json:"user_id"`
	ProjectID     *string   `gorm:"type:uuid"                                      json:"project_id,omitempty"`
	Action        string    `gorm:"type:varchar(50);not null"                      json:"action"` // request_submitted | request_accepted | request_declined | milestone_status | milestone_rescheduled | milestone_feedback | capacity_updated
	Description   string    `gorm:"type:varchar(500)"                              json:"description,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ActivityLog) TableName() string { return "activity_logs" }
