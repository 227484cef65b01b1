package repository

import (
	"context"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{DB: tx}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, mapNotFound("user.Find", err, "user %d not found", id)
	}
	return &user, nil
}

// increment 原子累加统计字段
func (r *UserRepository) increment(ctx context.Context, op string, userID uint, column string, delta int) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return util.NewInternalError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return util.NewNotFoundError(op, "user %d not found", userID)
	}
	return nil
}

func (r *UserRepository) AddPoints(ctx context.Context, userID uint, points int) error {
	return r.increment(ctx, "user.AddPoints", userID, "points", points)
}

func (r *UserRepository) AddXP(ctx context.Context, userID uint, xp int) error {
	return r.increment(ctx, "user.AddXP", userID, "xp", xp)
}

func (r *UserRepository) IncrementCompletedModules(ctx context.Context, userID uint) error {
	return r.increment(ctx, "user.IncrementCompletedModules", userID, "completed_modules", 1)
}

// SaveStreakByVersion 仅当 streak_version 未变化时写回连续学习状态
func (r *UserRepository) SaveStreakByVersion(ctx context.Context, userID uint, expectedVersion int, state model.StreakState) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND streak_version = ?", userID, expectedVersion).
		Updates(map[string]any{
			"current_streak": state.CurrentStreak,
			"longest_streak": state.LongestStreak,
			"last_active_at": state.LastActiveAt,
			"streak_version": expectedVersion + 1,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, util.NewInternalError("user.SaveStreak", res.Error)
	}
	return res.RowsAffected > 0, nil
}
