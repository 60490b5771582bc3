// Package activity 根据项目最近活动时间对学生不活跃程度分级。
package activity

import "time"

// Severity 不活跃严重程度
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityModerate Severity = "moderate"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Thresholds 分级阈值（天），须满足 0 < Moderate < Warning < Critical
type Thresholds struct {
	Moderate int
	Warning  int
	Critical int
}

// DefaultThresholds 默认阈值：5 / 7 / 14 天
func DefaultThresholds() Thresholds {
	return Thresholds{Moderate: 5, Warning: 7, Critical: 14}
}

// Monitor 不活跃分级器
type Monitor struct {
	th Thresholds
}

// NewMonitor 创建分级器
func NewMonitor(th Thresholds) *Monitor {
	return &Monitor{th: th}
}

// Classify 按不活跃天数分级；负数按 0 处理。
func (m *Monitor) Classify(days int) Severity {
	switch {
	case days >= m.th.Critical:
		return SeverityCritical
	case days >= m.th.Warning:
		return SeverityWarning
	case days >= m.th.Moderate:
		return SeverityModerate
	default:
		return SeverityNone
	}
}

// DaysInactive 计算 lastActivity 到 now 的整天数，不小于 0
func DaysInactive(lastActivity, now time.Time) int {
	if lastActivity.IsZero() || !now.After(lastActivity) {
		return 0
	}
	return int(now.Sub(lastActivity).Hours() / 24)
}

// Rank 严重程度排序值，越大越严重
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityModerate:
		return 1
	default:
		return 0
	}
}
