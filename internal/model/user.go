package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User 用户表由身份服务维护，本服务只读写学习统计字段
// swagger:model User
type User struct {
	BaseModel
	Name             string     `gorm:"size:100;not null" json:"name"`
	Email            string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role             UserRole   `gorm:"size:20;default:'student'" json:"role"`
	XP               int        `gorm:"default:0" json:"xp"`     // 成就经验
	Points           int        `gorm:"default:0" json:"points"` // 内容完成积分
	CompletedModules int        `gorm:"default:0" json:"completedModules"`
	CurrentStreak    int        `gorm:"default:0" json:"currentStreak"`
	LongestStreak    int        `gorm:"default:0" json:"longestStreak"`
	LastActiveAt     *time.Time `json:"lastActiveAt"`
	StreakVersion    int        `gorm:"not null;default:0" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserStats 用户学习统计聚合
type UserStats struct {
	UserID           uint       `json:"userId"`
	Points           int        `json:"points"`
	XP               int        `json:"xp"`
	CompletedModules int        `json:"completedModules"`
	CurrentStreak    int        `json:"currentStreak"`
	LongestStreak    int        `json:"longestStreak"`
	LastActiveAt     *time.Time `json:"lastActiveAt,omitempty"`
}

func (u *User) Stats() UserStats {
	return UserStats{
		UserID:           u.ID,
		Points:           u.Points,
		XP:               u.XP,
		CompletedModules: u.CompletedModules,
		CurrentStreak:    u.CurrentStreak,
		LongestStreak:    u.LongestStreak,
		LastActiveAt:     u.LastActiveAt,
	}
}
