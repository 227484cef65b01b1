package service

import (
	"learning_progress_backend/internal/model"
	"time"
)

// StreakUpdate 一次活动对连续学习状态的计算结果
type StreakUpdate struct {
	Action     model.StreakAction `json:"action"`
	Previous   model.StreakState  `json:"-"`
	State      model.StreakState  `json:"state"`
	Milestone  *int               `json:"milestone,omitempty"` // 本次新达到的最小里程碑
	Milestones []int              `json:"milestones,omitempty"`
}

// StreakStatusView 连续学习查询结果
type StreakStatusView struct {
	CurrentStreak int                `json:"currentStreak"`
	LongestStreak int                `json:"longestStreak"`
	Status        model.StreakStatus `json:"status"`
	NextMilestone *int               `json:"nextMilestone"`
	LastActiveAt  *time.Time         `json:"lastActiveAt,omitempty"`
}

// calendarDay 取 loc 时区下的日期，用 UTC 零点表示以便做天数差
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dayGap 两个时刻之间相差的自然日数，与夏令时无关
func dayGap(last, now time.Time, loc *time.Location) int {
	return int(calendarDay(now, loc).Sub(calendarDay(last, loc)).Hours() / 24)
}

// EvaluateStreak 根据上次活动日期计算本次活动后的连续学习状态
func EvaluateStreak(prev model.StreakState, now time.Time, loc *time.Location) StreakUpdate {
	next := prev
	at := now
	next.LastActiveAt = &at

	var action model.StreakAction
	switch {
	case prev.LastActiveAt == nil:
		action = model.StreakStart
		next.CurrentStreak = 1
	default:
		switch gap := dayGap(*prev.LastActiveAt, now, loc); {
		case gap <= 0:
			// 时钟回拨时也按同一天处理
			action = model.StreakAlreadyUpdated
		case gap == 1:
			action = model.StreakExtended
			next.CurrentStreak = prev.CurrentStreak + 1
		default:
			action = model.StreakRestarted
			next.CurrentStreak = 1
		}
	}
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}

	update := StreakUpdate{Action: action, Previous: prev, State: next}
	if action != model.StreakAlreadyUpdated {
		update.Milestones = CrossedMilestones(prev.CurrentStreak, next.CurrentStreak)
		if len(update.Milestones) > 0 {
			m := update.Milestones[0]
			update.Milestone = &m
		}
	}
	return update
}

// CrossedMilestones 返回 prev 未达到而 next 达到的里程碑，升序
func CrossedMilestones(prev, next int) []int {
	var crossed []int
	for _, m := range model.StreakMilestones {
		if prev < m && next >= m {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// NextMilestone 下一个尚未达到的里程碑，全部达到后为 nil
func NextMilestone(current int) *int {
	for _, m := range model.StreakMilestones {
		if m > current {
			next := m
			return &next
		}
	}
	return nil
}

// StreakStatusAt 查询时刻的连续学习状态，不修改任何数据
func StreakStatusAt(state model.StreakState, now time.Time, loc *time.Location) StreakStatusView {
	view := StreakStatusView{
		CurrentStreak: state.CurrentStreak,
		LongestStreak: state.LongestStreak,
		LastActiveAt:  state.LastActiveAt,
	}

	switch {
	case state.LastActiveAt == nil:
		view.Status = model.StreakNone
		view.CurrentStreak = 0
	default:
		switch gap := dayGap(*state.LastActiveAt, now, loc); {
		case gap <= 0:
			view.Status = model.StreakActive
		case gap == 1:
			view.Status = model.StreakAtRisk
		default:
			view.Status = model.StreakBroken
			view.CurrentStreak = 0
		}
	}
	view.NextMilestone = NextMilestone(view.CurrentStreak)
	return view
}
