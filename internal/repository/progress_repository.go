package repository

import (
	"context"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// FindActive 获取用户对内容项的有效进度记录
func (r *ProgressRepository) FindActive(ctx context.Context, userID, contentID uint) (*model.ProgressRecord, error) {
	var record model.ProgressRecord
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND content_id = ? AND is_active = ?", userID, contentID, true).
		First(&record).Error
	if err != nil {
		return nil, mapNotFound("progress.Find", err, "progress record for content %d not found", contentID)
	}
	return &record, nil
}

// findAny 不区分是否有效，内容重新上架时用于恢复旧记录
func (r *ProgressRepository) findAny(ctx context.Context, userID, contentID uint) (*model.ProgressRecord, error) {
	var record model.ProgressRecord
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND content_id = ?", userID, contentID).
		First(&record).Error
	if err != nil {
		return nil, mapNotFound("progress.Find", err, "progress record for content %d not found", contentID)
	}
	return &record, nil
}

// CreateIfAbsent 插入新记录，唯一键冲突时保留已有记录（可能已停用）并返回它
func (r *ProgressRepository) CreateIfAbsent(ctx context.Context, record *model.ProgressRecord) (*model.ProgressRecord, bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if res.Error != nil && !isDuplicateKey(res.Error) {
		return nil, false, util.NewInternalError("progress.Create", res.Error)
	}
	if res.Error == nil && res.RowsAffected > 0 {
		return record, true, nil
	}

	existing, err := r.findAny(ctx, record.UserID, record.ContentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ProgressRepository) Save(ctx context.Context, record *model.ProgressRecord) error {
	if err := r.DB.WithContext(ctx).Save(record).Error; err != nil {
		return util.NewInternalError("progress.Save", err)
	}
	return nil
}

// ListByUserModule 列出用户在模块下的有效进度记录
func (r *ProgressRepository) ListByUserModule(ctx context.Context, userID, moduleID uint) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND module_id = ? AND is_active = ?", userID, moduleID, true).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, util.NewInternalError("progress.List", err)
	}
	return records, nil
}

// ModuleSummary 用户在模块下的完成数与总学习时长
type ModuleSummary struct {
	Completed int
	TimeSpent int
}

func (r *ProgressRepository) SummarizeModule(ctx context.Context, userID, moduleID uint) (ModuleSummary, error) {
	var row struct {
		Completed int64
		TimeSpent int64
	}
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Select("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed, COALESCE(SUM(time_spent), 0) AS time_spent", model.ProgressCompleted).
		Where("user_id = ? AND module_id = ? AND is_active = ?", userID, moduleID, true).
		Scan(&row).Error
	if err != nil {
		return ModuleSummary{}, util.NewInternalError("progress.Summarize", err)
	}
	return ModuleSummary{Completed: int(row.Completed), TimeSpent: int(row.TimeSpent)}, nil
}

// DeactivateByContent 内容下架时软停用所有相关进度记录，返回停用条数
func (r *ProgressRepository) DeactivateByContent(ctx context.Context, contentID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Where("content_id = ? AND is_active = ?", contentID, true).
		Update("is_active", false)
	if res.Error != nil {
		return 0, util.NewInternalError("progress.Deactivate", res.Error)
	}
	return res.RowsAffected, nil
}
