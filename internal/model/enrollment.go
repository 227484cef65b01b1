package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentPaused    EnrollmentStatus = "paused"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentPaused, EnrollmentCompleted, EnrollmentDropped:
		return true
	}
	return false
}

// EnrollmentAction 显式生命周期操作
type EnrollmentAction string

const (
	ActionPause    EnrollmentAction = "pause"
	ActionResume   EnrollmentAction = "resume"
	ActionComplete EnrollmentAction = "complete"
	ActionDrop     EnrollmentAction = "drop"
)

var enrollmentTransitions = map[EnrollmentAction]map[EnrollmentStatus]EnrollmentStatus{
	ActionPause: {
		EnrollmentActive: EnrollmentPaused,
	},
	ActionResume: {
		EnrollmentPaused: EnrollmentActive,
	},
	ActionComplete: {
		EnrollmentActive: EnrollmentCompleted,
		EnrollmentPaused: EnrollmentCompleted,
	},
	ActionDrop: {
		EnrollmentActive: EnrollmentDropped,
		EnrollmentPaused: EnrollmentDropped,
	},
}

// NextEnrollmentStatus 返回执行 action 后的状态，非法迁移返回 false
func NextEnrollmentStatus(current EnrollmentStatus, action EnrollmentAction) (EnrollmentStatus, bool) {
	next, ok := enrollmentTransitions[action][current]
	return next, ok
}

// Enrollment 用户对某个模块的报名记录及聚合进度
// swagger:model Enrollment
type Enrollment struct {
	UUIDBase
	UserID             uint             `gorm:"not null;uniqueIndex:idx_enrollment_user_module" json:"userId"`
	ModuleID           uint             `gorm:"not null;uniqueIndex:idx_enrollment_user_module" json:"moduleId"`
	Status             EnrollmentStatus `gorm:"size:20;not null;index" json:"status"`
	ProgressPercentage int              `gorm:"not null;default:0" json:"progressPercentage"`
	CompletedSections  int              `gorm:"not null;default:0" json:"completedSections"`
	TotalSections      int              `gorm:"not null;default:0" json:"totalSections"`
	TimeSpent          int              `gorm:"not null;default:0" json:"timeSpent"`
	IsActive           bool             `gorm:"not null;default:true" json:"isActive"`
	Version            int              `gorm:"not null;default:0" json:"version"`
	EnrolledAt         time.Time        `json:"enrolledAt"`
	LastAccessedAt     time.Time        `json:"lastAccessedAt"`
	CompletedAt        *time.Time       `json:"completedAt,omitempty"`
	Grade              string           `gorm:"size:20" json:"grade,omitempty"`
	Feedback           string           `gorm:"type:text" json:"feedback,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// AllowsProgress 已退出的报名不能再写入学习进度
func (e *Enrollment) AllowsProgress() bool {
	return e.Status != EnrollmentDropped
}
