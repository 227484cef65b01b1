package repository

import (
	"context"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&enrollment).Error
	if err != nil {
		return nil, mapNotFound("enrollment.Find", err, "enrollment %s not found", id)
	}
	return &enrollment, nil
}

// FindByUserModule 获取用户在模块上的报名记录（包括已退出的）
func (r *EnrollmentRepository) FindByUserModule(ctx context.Context, userID, moduleID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&enrollment).Error
	if err != nil {
		return nil, mapNotFound("enrollment.Find", err, "user %d is not enrolled in module %d", userID, moduleID)
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *model.Enrollment) error {
	err := r.DB.WithContext(ctx).Create(enrollment).Error
	if isDuplicateKey(err) {
		return util.NewConflictError("enrollment.Create", "already enrolled in module %d", enrollment.ModuleID)
	}
	if err != nil {
		return util.NewInternalError("enrollment.Create", err)
	}
	return nil
}

// UpdateByVersion 基于 version 的比较并更新，成功后 version 自增
func (r *EnrollmentRepository) UpdateByVersion(ctx context.Context, id string, expectedVersion int, updates map[string]any) (bool, error) {
	if expectedVersion < 0 {
		return false, util.NewValidationError("enrollment.Update", "expected version must be >= 0")
	}
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = expectedVersion + 1

	res := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(values)
	if res.Error != nil {
		return false, util.NewInternalError("enrollment.Update", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListByUser 列出用户的报名记录，status 为空时返回全部
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID uint, status model.EnrollmentStatus) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("last_accessed_at DESC").Find(&enrollments).Error; err != nil {
		return nil, util.NewInternalError("enrollment.List", err)
	}
	return enrollments, nil
}

// ListByModule 列出模块下未退出的报名，用于目录变化后的重新聚合
func (r *EnrollmentRepository) ListByModule(ctx context.Context, moduleID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("module_id = ? AND status <> ?", moduleID, model.EnrollmentDropped).
		Find(&enrollments).Error
	if err != nil {
		return nil, util.NewInternalError("enrollment.ListByModule", err)
	}
	return enrollments, nil
}
