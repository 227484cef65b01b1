package model

import "time"

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// ProgressRecord 用户对单个内容项的学习进度
// swagger:model ProgressRecord
type ProgressRecord struct {
	UUIDBase
	UserID             uint           `gorm:"not null;uniqueIndex:idx_progress_user_content;index:idx_progress_user_module" json:"userId"`
	ContentID          uint           `gorm:"not null;uniqueIndex:idx_progress_user_content;index" json:"contentId"`
	ModuleID           uint           `gorm:"not null;index:idx_progress_user_module" json:"moduleId"`
	ContentType        ContentType    `gorm:"size:20;not null" json:"contentType"`
	Status             ProgressStatus `gorm:"size:20;not null;default:'not_started'" json:"status"`
	ProgressPercentage int            `gorm:"not null;default:0" json:"progressPercentage"`
	TimeSpent          int            `gorm:"not null;default:0" json:"timeSpent"` // 分钟
	Attempts           int            `gorm:"not null;default:0" json:"attempts"`
	Score              *int           `json:"score,omitempty"`
	MaxScore           *int           `json:"maxScore,omitempty"`
	StartedAt          *time.Time     `json:"startedAt,omitempty"`
	CompletedAt        *time.Time     `json:"completedAt,omitempty"`
	LastAccessedAt     time.Time      `json:"lastAccessedAt"`
	IsActive           bool           `gorm:"not null;default:true" json:"isActive"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

func (p *ProgressRecord) IsCompleted() bool {
	return p.Status == ProgressCompleted
}
