package repository

import (
	"context"
	"learning_progress_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentRepository 课程目录只读视图（目录维护由内容服务负责）
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) WithTx(tx *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: tx}
}

// GetContentItem 获取有效的内容项
func (r *ContentRepository) GetContentItem(ctx context.Context, id uint) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.DB.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&item).Error
	if err != nil {
		return nil, mapNotFound("content.Get", err, "content item %d not found", id)
	}
	return &item, nil
}

// CountActiveContentItems 实时统计模块下有效内容项数量
func (r *ContentRepository) CountActiveContentItems(ctx context.Context, moduleID uint) (int, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ContentItem{}).
		Where("module_id = ? AND is_active = ?", moduleID, true).
		Count(&count).Error
	if err != nil {
		return 0, mapNotFound("content.Count", err, "module %d not found", moduleID)
	}
	return int(count), nil
}

// GetModule 获取有效的学习模块
func (r *ContentRepository) GetModule(ctx context.Context, id uint) (*model.LearningModule, error) {
	var module model.LearningModule
	err := r.DB.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&module).Error
	if err != nil {
		return nil, mapNotFound("module.Get", err, "module %d not found", id)
	}
	return &module, nil
}

// ListByModule 按章节与顺序列出模块下的有效内容
func (r *ContentRepository) ListByModule(ctx context.Context, moduleID uint) ([]model.ContentItem, error) {
	var items []model.ContentItem
	err := r.DB.WithContext(ctx).
		Where("module_id = ? AND is_active = ?", moduleID, true).
		Order("section ASC").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).
		Find(&items).Error
	return items, err
}

// Deactivate 下架内容项
func (r *ContentRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Model(&model.ContentItem{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return mapNotFound("content.Deactivate", gorm.ErrRecordNotFound, "content item %d not found", id)
	}
	return nil
}
