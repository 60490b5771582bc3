// Package milestone 实现项目里程碑的状态机、延期级联顺延与模板生成。
//
// 本包只做纯计算，不访问数据库；持久化与并发控制由 service 层负责。
package milestone

import (
	"errors"
	"time"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

var (
	ErrInvalidTransition      = errors.New("里程碑状态流转不合法")
	ErrLockedMilestone        = errors.New("关键节点截止日期不可修改")
	ErrMilestoneCompleted     = errors.New("已完成的里程碑不可修改")
	ErrScheduleOrderViolation = errors.New("调整后的截止日期破坏里程碑顺序")
	ErrUnknownStatus          = errors.New("未知的里程碑状态")
)

// transitions 合法状态流转表；completed 为终态。
var transitions = map[string][]string{
	model.MilestoneStatusPending:    {model.MilestoneStatusInProgress},
	model.MilestoneStatusInProgress: {model.MilestoneStatusCompleted, model.MilestoneStatusDelayed},
	model.MilestoneStatusDelayed:    {model.MilestoneStatusInProgress},
	model.MilestoneStatusCompleted:  nil,
}

// ValidStatus 判断状态值是否合法
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition 判断 from → to 是否允许。同状态视为不合法。
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition 在内存中推进里程碑状态。
// 首次进入 completed 时写入完成日期，之后不再修改。
func Transition(m *model.Milestone, to string, now time.Time) error {
	if !ValidStatus(to) {
		return ErrUnknownStatus
	}
	if !CanTransition(m.Status, to) {
		return ErrInvalidTransition
	}
	m.Status = to
	if to == model.MilestoneStatusCompleted && m.CompletedDate == nil {
		d := DateOf(now)
		m.CompletedDate = &d
	}
	return nil
}

// DateOf 截断为 UTC 日期（零点）
func DateOf(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween 返回 to - from 的整天数（按日期计算，可为负）
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
