package model

// ContentType 内容类型
type ContentType string

const (
	ContentVideo    ContentType = "video"
	ContentLab      ContentType = "lab"
	ContentGame     ContentType = "game"
	ContentDocument ContentType = "document"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentVideo, ContentLab, ContentGame, ContentDocument:
		return true
	}
	return false
}

// Phase 学习阶段，包含若干模块
type Phase struct {
	BaseModel
	Title string `gorm:"size:255;not null" json:"title"`
	Order int    `gorm:"default:0" json:"order"`
}

func (Phase) TableName() string {
	return "phases"
}

type LearningModule struct {
	BaseModel
	PhaseID     uint   `gorm:"index" json:"phaseId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"default:0" json:"order"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`
}

func (LearningModule) TableName() string {
	return "learning_modules"
}

// ContentItem 模块下的内容项，同一模块同一章节内 order 唯一
type ContentItem struct {
	BaseModel
	ModuleID uint        `gorm:"not null;uniqueIndex:idx_content_module_section_order" json:"moduleId"`
	Section  string      `gorm:"size:100;default:'';uniqueIndex:idx_content_module_section_order" json:"section,omitempty"`
	Order    int         `gorm:"not null;uniqueIndex:idx_content_module_section_order" json:"order"`
	Type     ContentType `gorm:"size:20;not null" json:"type"`
	Title    string      `gorm:"size:255" json:"title"`
	Duration int         `gorm:"default:0" json:"duration"` // 分钟
	IsActive bool        `gorm:"default:true;index" json:"isActive"`
}

func (ContentItem) TableName() string {
	return "content_items"
}
