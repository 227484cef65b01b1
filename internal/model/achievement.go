package model

// Achievement 用户获得的成就，同一用户同一 Code 只发放一次
type Achievement struct {
	BaseModel
	UserID   uint   `gorm:"not null;uniqueIndex:idx_user_achievement_code" json:"userId"`
	Code     string `gorm:"size:64;not null;uniqueIndex:idx_user_achievement_code" json:"code"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Icon     string `gorm:"size:255" json:"icon,omitempty"`
	EarnedXP int    `gorm:"default:0" json:"earnedXp"`
}

func (Achievement) TableName() string {
	return "achievements"
}
