package repository

import (
	"context"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) WithTx(tx *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: tx}
}

// Grant 发放成就，已发放过则返回 false
func (r *AchievementRepository) Grant(ctx context.Context, achievement *model.Achievement) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(achievement)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return false, nil
		}
		return false, util.NewInternalError("achievement.Grant", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *AchievementRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&achievements).Error
	if err != nil {
		return nil, util.NewInternalError("achievement.List", err)
	}
	return achievements, nil
}
