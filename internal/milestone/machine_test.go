package milestone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hamzak1712/supervisor-works/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{model.MilestoneStatusPending, model.MilestoneStatusInProgress, true},
		{model.MilestoneStatusInProgress, model.MilestoneStatusCompleted, true},
		{model.MilestoneStatusInProgress, model.MilestoneStatusDelayed, true},
		{model.MilestoneStatusDelayed, model.MilestoneStatusInProgress, true},

		{model.MilestoneStatusDelayed, model.MilestoneStatusCompleted, false},
		{model.MilestoneStatusPending, model.MilestoneStatusCompleted, false},
		{model.MilestoneStatusPending, model.MilestoneStatusDelayed, false},
		{model.MilestoneStatusCompleted, model.MilestoneStatusInProgress, false},
		{model.MilestoneStatusCompleted, model.MilestoneStatusPending, false},
		{model.MilestoneStatusInProgress, model.MilestoneStatusInProgress, false},
		{model.MilestoneStatusInProgress, model.MilestoneStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransition_CompletedDateSetOnce(t *testing.T) {
	m := &model.Milestone{Status: model.MilestoneStatusPending}
	day1 := time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)

	require.NoError(t, Transition(m, model.MilestoneStatusInProgress, day1))
	assert.Nil(t, m.CompletedDate)

	require.NoError(t, Transition(m, model.MilestoneStatusCompleted, day1))
	require.NotNil(t, m.CompletedDate)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *m.CompletedDate)

	err := Transition(m, model.MilestoneStatusInProgress, day1.AddDate(0, 0, 5))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, model.MilestoneStatusCompleted, m.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *m.CompletedDate)
}

func TestTransition_InvalidLeavesStateUnchanged(t *testing.T) {
	m := &model.Milestone{Status: model.MilestoneStatusDelayed}

	err := Transition(m, model.MilestoneStatusCompleted, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, model.MilestoneStatusDelayed, m.Status)
	assert.Nil(t, m.CompletedDate)
}

func TestTransition_UnknownStatus(t *testing.T) {
	m := &model.Milestone{Status: model.MilestoneStatusPending}
	assert.ErrorIs(t, Transition(m, "archived", time.Now()), ErrUnknownStatus)
}

func TestTransition_CriticalMilestoneFollowsNormalFlow(t *testing.T) {
	m := &model.Milestone{Status: model.MilestoneStatusPending, IsCriticalPath: true}
	now := time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, Transition(m, model.MilestoneStatusInProgress, now))
	require.NoError(t, Transition(m, model.MilestoneStatusCompleted, now))
	assert.Equal(t, model.MilestoneStatusCompleted, m.Status)
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2025, 1, 11, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 10, DaysBetween(from, to))
	assert.Equal(t, -10, DaysBetween(to, from))
	assert.Equal(t, 0, DaysBetween(from, from))
}
