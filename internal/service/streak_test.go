package service

import (
	"learning_progress_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, min int, loc *time.Location) *time.Time {
	t := time.Date(year, month, day, hour, min, 0, 0, loc)
	return &t
}

func TestEvaluateStreak_Start(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	update := EvaluateStreak(model.StreakState{}, now, time.UTC)

	assert.Equal(t, model.StreakStart, update.Action)
	assert.Equal(t, 1, update.State.CurrentStreak)
	assert.Equal(t, 1, update.State.LongestStreak)
	require.NotNil(t, update.State.LastActiveAt)
	assert.Equal(t, now, *update.State.LastActiveAt)
}

func TestEvaluateStreak_Extended(t *testing.T) {
	prev := model.StreakState{CurrentStreak: 5, LongestStreak: 5, LastActiveAt: at(2026, 3, 9, 22, 0, time.UTC)}
	update := EvaluateStreak(prev, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), time.UTC)

	assert.Equal(t, model.StreakExtended, update.Action)
	assert.Equal(t, 6, update.State.CurrentStreak)
	assert.Equal(t, 6, update.State.LongestStreak)
}

func TestEvaluateStreak_ExtendedKeepsHigherLongest(t *testing.T) {
	prev := model.StreakState{CurrentStreak: 5, LongestStreak: 12, LastActiveAt: at(2026, 3, 9, 22, 0, time.UTC)}
	update := EvaluateStreak(prev, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), time.UTC)

	assert.Equal(t, 6, update.State.CurrentStreak)
	assert.Equal(t, 12, update.State.LongestStreak)
}

func TestEvaluateStreak_Restarted(t *testing.T) {
	prev := model.StreakState{CurrentStreak: 10, LongestStreak: 10, LastActiveAt: at(2026, 3, 7, 12, 0, time.UTC)}
	update := EvaluateStreak(prev, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), time.UTC)

	assert.Equal(t, model.StreakRestarted, update.Action)
	assert.Equal(t, 1, update.State.CurrentStreak)
	assert.Equal(t, 10, update.State.LongestStreak)
	assert.Empty(t, update.Milestones)
}

func TestEvaluateStreak_SameDayOnlyRefreshesTimestamp(t *testing.T) {
	prev := model.StreakState{CurrentStreak: 4, LongestStreak: 9, LastActiveAt: at(2026, 3, 10, 0, 5, time.UTC)}
	now := time.Date(2026, 3, 10, 23, 55, 0, 0, time.UTC)
	update := EvaluateStreak(prev, now, time.UTC)

	assert.Equal(t, model.StreakAlreadyUpdated, update.Action)
	assert.Equal(t, 4, update.State.CurrentStreak)
	assert.Equal(t, 9, update.State.LongestStreak)
	assert.Equal(t, now, *update.State.LastActiveAt)
	assert.Nil(t, update.Milestone)
}

func TestEvaluateStreak_UsesCalendarDaysNotElapsedHours(t *testing.T) {
	shanghai := time.FixedZone("UTC+8", 8*3600)

	// 20 分钟后跨过本地午夜，算作第二天
	prev := model.StreakState{CurrentStreak: 2, LongestStreak: 2, LastActiveAt: at(2026, 3, 9, 23, 50, shanghai)}
	update := EvaluateStreak(prev, time.Date(2026, 3, 10, 0, 10, 0, 0, shanghai), shanghai)
	assert.Equal(t, model.StreakExtended, update.Action)

	// 同一 UTC 时刻在 UTC 时区仍是同一天
	update = EvaluateStreak(prev, time.Date(2026, 3, 10, 0, 10, 0, 0, shanghai), time.UTC)
	assert.Equal(t, model.StreakAlreadyUpdated, update.Action)
}

func TestEvaluateStreak_AcrossDSTChange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2026-03-08 夏令时开始，当天只有 23 小时
	prev := model.StreakState{CurrentStreak: 3, LongestStreak: 3, LastActiveAt: at(2026, 3, 7, 23, 30, ny)}
	update := EvaluateStreak(prev, time.Date(2026, 3, 8, 23, 30, 0, 0, ny), ny)
	assert.Equal(t, model.StreakExtended, update.Action)
	assert.Equal(t, 4, update.State.CurrentStreak)
}

func TestEvaluateStreak_ClockMovedBackwardsIsSameDay(t *testing.T) {
	prev := model.StreakState{CurrentStreak: 3, LongestStreak: 3, LastActiveAt: at(2026, 3, 11, 8, 0, time.UTC)}
	update := EvaluateStreak(prev, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, model.StreakAlreadyUpdated, update.Action)
	assert.Equal(t, 3, update.State.CurrentStreak)
}

func TestEvaluateStreak_Milestone(t *testing.T) {
	prev := model.StreakState{CurrentStreak: 2, LongestStreak: 2, LastActiveAt: at(2026, 3, 9, 12, 0, time.UTC)}
	update := EvaluateStreak(prev, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), time.UTC)

	require.NotNil(t, update.Milestone)
	assert.Equal(t, 3, *update.Milestone)
	assert.Equal(t, []int{3}, update.Milestones)
}

func TestCrossedMilestones(t *testing.T) {
	assert.Equal(t, []int{3, 7, 14, 30}, CrossedMilestones(2, 40))
	assert.Empty(t, CrossedMilestones(3, 4))
	assert.Empty(t, CrossedMilestones(10, 1))
	assert.Equal(t, []int{365}, CrossedMilestones(364, 365))
}

func TestNextMilestone(t *testing.T) {
	require.NotNil(t, NextMilestone(0))
	assert.Equal(t, 3, *NextMilestone(0))
	assert.Equal(t, 7, *NextMilestone(3))
	assert.Equal(t, 365, *NextMilestone(100))
	assert.Nil(t, NextMilestone(365))
}

func TestStreakStatusAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	view := StreakStatusAt(model.StreakState{}, now, time.UTC)
	assert.Equal(t, model.StreakNone, view.Status)
	assert.Equal(t, 3, *view.NextMilestone)

	view = StreakStatusAt(model.StreakState{CurrentStreak: 4, LongestStreak: 4, LastActiveAt: at(2026, 3, 10, 1, 0, time.UTC)}, now, time.UTC)
	assert.Equal(t, model.StreakActive, view.Status)
	assert.Equal(t, 4, view.CurrentStreak)
	assert.Equal(t, 7, *view.NextMilestone)

	view = StreakStatusAt(model.StreakState{CurrentStreak: 4, LongestStreak: 4, LastActiveAt: at(2026, 3, 9, 1, 0, time.UTC)}, now, time.UTC)
	assert.Equal(t, model.StreakAtRisk, view.Status)
	assert.Equal(t, 4, view.CurrentStreak)

	view = StreakStatusAt(model.StreakState{CurrentStreak: 4, LongestStreak: 8, LastActiveAt: at(2026, 3, 1, 1, 0, time.UTC)}, now, time.UTC)
	assert.Equal(t, model.StreakBroken, view.Status)
	assert.Equal(t, 0, view.CurrentStreak)
	assert.Equal(t, 8, view.LongestStreak)
	assert.Equal(t, 3, *view.NextMilestone)
}
