package model

import "time"

// StreakAction 单次活动对连续学习天数的影响
type StreakAction string

const (
	StreakStart          StreakAction = "start"
	StreakAlreadyUpdated StreakAction = "already_updated"
	StreakExtended       StreakAction = "extended"
	StreakRestarted      StreakAction = "restarted"
)

// StreakStatus 查询时的连续学习状态
type StreakStatus string

const (
	StreakNone   StreakStatus = "none"    // 从未学习
	StreakActive StreakStatus = "active"  // 今天已学习
	StreakAtRisk StreakStatus = "at_risk" // 昨天学习过，今天还没有
	StreakBroken StreakStatus = "broken"  // 已中断
)

// StreakMilestones 里程碑天数，升序
var StreakMilestones = []int{3, 7, 14, 30, 60, 100, 365}

// StreakState 保存在用户记录上的连续学习状态
type StreakState struct {
	CurrentStreak int        `json:"currentStreak"`
	LongestStreak int        `json:"longestStreak"`
	LastActiveAt  *time.Time `json:"lastActiveAt,omitempty"`
	Version       int        `json:"version"`
}

func (u *User) StreakState() StreakState {
	return StreakState{
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
		LastActiveAt:  u.LastActiveAt,
		Version:       u.StreakVersion,
	}
}
