package milestone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

func day(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func ms(title string, seq int, due time.Time, status string, critical bool) model.Milestone {
	return model.Milestone{
		MilestoneID:    title,
		Title:          title,
		Sequence:       seq,
		DueDate:        due,
		Status:         status,
		IsCriticalPath: critical,
	}
}

// timeline 用于级联测试的典型排期
func timeline() []model.Milestone {
	return []model.Milestone{
		ms("lit-review", 1, day(1, 1), model.MilestoneStatusDelayed, false),
		ms("data", 2, day(1, 5), model.MilestoneStatusPending, false),
		ms("model", 3, day(1, 20), model.MilestoneStatusInProgress, false),
		ms("ipd", 4, day(1, 25), model.MilestoneStatusPending, true),
		ms("evaluation", 5, day(2, 10), model.MilestoneStatusPending, false),
		ms("final-report", 6, day(3, 1), model.MilestoneStatusPending, true),
		ms("appendix", 7, day(3, 5), model.MilestoneStatusCompleted, false),
	}
}

func TestApplyDelay_TenDaysLate(t *testing.T) {
	list := timeline()

	res := ApplyDelay(list, 0, day(1, 11))

	assert.Equal(t, 10, res.SlipDays)
	assert.True(t, res.OverConstrained)
	assert.NotEmpty(t, res.Warning)

	assert.Equal(t, day(1, 1), list[0].DueDate, "被延期的里程碑保留原截止日期")
	assert.Equal(t, day(1, 15), list[1].DueDate)
	assert.Equal(t, day(1, 24), list[2].DueDate, "越过关键节点时截断到其前一天")
	assert.Equal(t, day(1, 25), list[3].DueDate, "关键节点不可移动")
	assert.Equal(t, day(2, 20), list[4].DueDate)
	assert.Equal(t, day(3, 1), list[5].DueDate)
	assert.Equal(t, day(3, 5), list[6].DueDate, "已完成的里程碑不顺延")

	var shifted []string
	for _, m := range res.Shifted {
		shifted = append(shifted, m.MilestoneID)
	}
	assert.Equal(t, []string{"data", "model", "evaluation"}, shifted)
}

func TestApplyDelay_NotLateNoCascade(t *testing.T) {
	list := timeline()

	res := ApplyDelay(list, 0, day(1, 1))

	assert.Zero(t, res.SlipDays)
	assert.Empty(t, res.Shifted)
	assert.False(t, res.OverConstrained)
	assert.Equal(t, day(1, 5), list[1].DueDate)
}

func TestApplyDelay_AbsorbedWithoutWarning(t *testing.T) {
	list := timeline()

	res := ApplyDelay(list, 0, day(1, 3))

	assert.Equal(t, 2, res.SlipDays)
	assert.False(t, res.OverConstrained)
	assert.Equal(t, day(1, 7), list[1].DueDate)
	assert.Equal(t, day(1, 22), list[2].DueDate)
	assert.Equal(t, day(2, 12), list[4].DueDate)
}

func TestApplyDelay_CriticalDelayedDoesNotCascade(t *testing.T) {
	list := timeline()
	list[3].Status = model.MilestoneStatusDelayed

	res := ApplyDelay(list, 3, day(2, 5))

	assert.Empty(t, res.Shifted)
	assert.Equal(t, day(2, 10), list[4].DueDate)
}

func TestApplyDelay_DelayedNeighboursAreNotShifted(t *testing.T) {
	list := timeline()
	list[1].Status = model.MilestoneStatusDelayed

	ApplyDelay(list, 0, day(1, 4))

	assert.Equal(t, day(1, 5), list[1].DueDate)
	assert.Equal(t, day(1, 23), list[2].DueDate)
}

func TestApplyDelay_CappedByLaterDelayedMilestone(t *testing.T) {
	list := []model.Milestone{
		ms("a", 1, day(1, 1), model.MilestoneStatusDelayed, false),
		ms("b", 2, day(1, 5), model.MilestoneStatusPending, false),
		ms("c", 3, day(1, 8), model.MilestoneStatusDelayed, false),
		ms("crit", 4, day(2, 20), model.MilestoneStatusPending, true),
	}

	res := ApplyDelay(list, 0, day(1, 11))

	assert.Equal(t, 10, res.SlipDays)
	assert.Equal(t, day(1, 8), list[1].DueDate, "不得越过其后已延期的里程碑")
	assert.Equal(t, day(1, 8), list[2].DueDate, "已延期的里程碑不顺延")
	assert.True(t, res.OverConstrained)
	assert.NotEmpty(t, res.Warning)
	require.Len(t, res.Shifted, 1)
	assert.Equal(t, "b", res.Shifted[0].MilestoneID)
}

func TestApplyDelay_CappedByLaterCompletedMilestone(t *testing.T) {
	list := []model.Milestone{
		ms("a", 1, day(1, 1), model.MilestoneStatusDelayed, false),
		ms("b", 2, day(1, 5), model.MilestoneStatusInProgress, false),
		ms("c", 3, day(1, 6), model.MilestoneStatusCompleted, false),
		ms("d", 4, day(1, 10), model.MilestoneStatusPending, false),
	}

	res := ApplyDelay(list, 0, day(1, 4))

	assert.Equal(t, day(1, 6), list[1].DueDate)
	assert.Equal(t, day(1, 13), list[3].DueDate, "其后没有固定节点时完整顺延")
	assert.True(t, res.OverConstrained)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].DueDate.Before(list[i-1].DueDate),
			"%s 早于 %s", list[i].Title, list[i-1].Title)
	}
}

func TestApplyDelay_PreservesOrder(t *testing.T) {
	list := timeline()
	ApplyDelay(list, 0, day(2, 28))

	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].DueDate.Before(list[i-1].DueDate),
			"%s 早于 %s", list[i].Title, list[i-1].Title)
	}
}

func TestReschedule(t *testing.T) {
	t.Run("关键节点锁定", func(t *testing.T) {
		list := timeline()
		err := Reschedule(list, 3, day(1, 26))
		assert.ErrorIs(t, err, ErrLockedMilestone)
		assert.Equal(t, day(1, 25), list[3].DueDate)
	})

	t.Run("已完成不可调整", func(t *testing.T) {
		list := timeline()
		assert.ErrorIs(t, Reschedule(list, 6, day(3, 6)), ErrMilestoneCompleted)
	})

	t.Run("早于前一个里程碑", func(t *testing.T) {
		list := timeline()
		assert.ErrorIs(t, Reschedule(list, 2, day(1, 4)), ErrScheduleOrderViolation)
	})

	t.Run("越过下一个关键节点", func(t *testing.T) {
		list := timeline()
		assert.ErrorIs(t, Reschedule(list, 2, day(1, 25)), ErrScheduleOrderViolation)
	})

	t.Run("合法调整", func(t *testing.T) {
		list := timeline()
		require.NoError(t, Reschedule(list, 2, day(1, 24)))
		assert.Equal(t, day(1, 24), list[2].DueDate)
	})
}

func TestSortByDueDate_TieUsesSequence(t *testing.T) {
	list := []model.Milestone{
		ms("b", 2, day(4, 1), model.MilestoneStatusPending, false),
		ms("a", 1, day(4, 1), model.MilestoneStatusPending, true),
		ms("c", 3, day(3, 1), model.MilestoneStatusPending, false),
	}
	SortByDueDate(list)
	assert.Equal(t, "c", list[0].Title)
	assert.Equal(t, "a", list[1].Title)
	assert.Equal(t, "b", list[2].Title)
}
