package milestone

import (
	"fmt"
	"sort"
	"time"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

// CascadeResult 一次延期级联的结果
type CascadeResult struct {
	SlipDays int
	// Shifted 被顺延的里程碑（指向输入切片中的元素）
	Shifted []*model.Milestone
	// OverConstrained 至少一个里程碑被下一个关键节点截断，延期未被完全吸收
	OverConstrained bool
	Warning         string
}

// SortByDueDate 按截止日期升序排序，日期相同按 Sequence。
func SortByDueDate(ms []model.Milestone) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].DueDate.Equal(ms[j].DueDate) {
			return ms[i].DueDate.Before(ms[j].DueDate)
		}
		return ms[i].Sequence < ms[j].Sequence
	})
}

// ApplyDelay 在里程碑 ms[idx] 被标记为 delayed 后顺延其后的非关键里程碑。
//
// ms 必须已按 SortByDueDate 排序。滞后天数 slip = max(0, today - due)。
// 后续每个 pending/in_progress 的非关键里程碑顺延 slip 天，但不得越过
// 下一个关键节点（最多到其前一天），也不得越过其后不可移动的
// delayed/completed 里程碑（最多与其同日），且不会被提前。关键节点自身被延期时不级联。
func ApplyDelay(ms []model.Milestone, idx int, today time.Time) CascadeResult {
	res := CascadeResult{}
	if idx < 0 || idx >= len(ms) {
		return res
	}
	delayed := &ms[idx]
	if delayed.IsCriticalPath {
		return res
	}

	slip := DaysBetween(delayed.DueDate, today)
	if slip <= 0 {
		return res
	}
	res.SlipDays = slip

	var clamped []string
	for j := idx + 1; j < len(ms); j++ {
		m := &ms[j]
		if m.IsCriticalPath || !movable(m.Status) {
			continue
		}

		orig := DateOf(m.DueDate)
		target := orig.AddDate(0, 0, slip)
		if bound, ok := upperBound(ms, j); ok && target.After(bound) {
			target = bound
			clamped = append(clamped, m.Title)
		}
		if !target.After(orig) {
			continue
		}
		m.DueDate = target
		res.Shifted = append(res.Shifted, m)
	}

	if len(clamped) > 0 {
		res.OverConstrained = true
		res.Warning = fmt.Sprintf("schedule over-constrained: %d-day slip could not be absorbed before the next fixed deadline (%d milestone(s) capped)", slip, len(clamped))
	}
	return res
}

// Reschedule 手动调整非关键里程碑的截止日期。
// 新日期必须不早于前一个、不晚于后一个里程碑，且严格早于下一个关键节点。
func Reschedule(ms []model.Milestone, idx int, newDue time.Time) error {
	m := &ms[idx]
	if m.IsCriticalPath {
		return ErrLockedMilestone
	}
	if m.Status == model.MilestoneStatusCompleted {
		return ErrMilestoneCompleted
	}

	newDue = DateOf(newDue)
	if idx > 0 && newDue.Before(DateOf(ms[idx-1].DueDate)) {
		return ErrScheduleOrderViolation
	}
	if idx+1 < len(ms) && newDue.After(DateOf(ms[idx+1].DueDate)) {
		return ErrScheduleOrderViolation
	}
	if crit := nextCritical(ms, idx); crit != nil && !newDue.Before(DateOf(crit.DueDate)) {
		return ErrScheduleOrderViolation
	}

	m.DueDate = newDue
	return nil
}

func movable(status string) bool {
	return status == model.MilestoneStatusPending || status == model.MilestoneStatusInProgress
}

// upperBound ms[from] 顺延后的最晚日期：下一个关键节点的前一天，
// 与其后第一个不可移动的非关键里程碑的截止日，两者取早
func upperBound(ms []model.Milestone, from int) (time.Time, bool) {
	var (
		bound time.Time
		found bool
	)
	if crit := nextCritical(ms, from); crit != nil {
		bound, found = DateOf(crit.DueDate).AddDate(0, 0, -1), true
	}
	for k := from + 1; k < len(ms); k++ {
		if ms[k].IsCriticalPath || movable(ms[k].Status) {
			continue
		}
		pinned := DateOf(ms[k].DueDate)
		if !found || pinned.Before(bound) {
			bound, found = pinned, true
		}
		break
	}
	return bound, found
}

func nextCritical(ms []model.Milestone, from int) *model.Milestone {
	for k := from + 1; k < len(ms); k++ {
		if ms[k].IsCriticalPath {
			return &ms[k]
		}
	}
	return nil
}
