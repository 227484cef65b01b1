package service

import (
	"context"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"
	"learning_progress_backend/pkg/logger"
	"learning_progress_backend/pkg/monitoring"
	"learning_progress_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type EnrollmentService struct {
	Engine *AggregationEngine
}

func NewEnrollmentService(engine *AggregationEngine) *EnrollmentService {
	return &EnrollmentService{Engine: engine}
}

type CompleteEnrollmentRequest struct {
	Grade    string `json:"grade" binding:"max=20"`
	Feedback string `json:"feedback"`
}

// EnrollmentCompletion 显式完成模块的结果
type EnrollmentCompletion struct {
	Enrollment *model.Enrollment `json:"enrollment"`
	Streak     *StreakUpdate     `json:"streak,omitempty"`
}

// Enroll 报名模块；已退出的报名会被重新激活并保留原有进度
func (s *EnrollmentService) Enroll(ctx context.Context, userID, moduleID uint) (enrollment *model.Enrollment, err error) {
	ctx, end := tracing.StartSpan(ctx, "enrollment.Enroll",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("module.id", int64(moduleID)))
	defer end(&err)

	e := s.Engine
	if _, err := e.Repos.Content.GetModule(ctx, moduleID); err != nil {
		return nil, err
	}

	err = e.runLocked(ctx, "enrollment.Enroll", userID, moduleID, func(ctx context.Context, sc *txScope) error {
		existing, err := sc.enrollments.FindByUserModule(ctx, userID, moduleID)
		switch {
		case util.IsNotFound(err):
			created, err := s.create(ctx, sc, userID, moduleID)
			enrollment = created
			return err
		case err != nil:
			return err
		case existing.Status != model.EnrollmentDropped:
			return util.NewConflictError("enrollment.Enroll",
				"already enrolled in module %d with status %s", moduleID, existing.Status)
		}

		if err := s.reactivate(ctx, sc, existing); err != nil {
			return err
		}
		enrollment = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (s *EnrollmentService) create(ctx context.Context, sc *txScope, userID, moduleID uint) (*model.Enrollment, error) {
	total, err := sc.content.CountActiveContentItems(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	enrollment := &model.Enrollment{
		UserID:         userID,
		ModuleID:       moduleID,
		Status:         model.EnrollmentActive,
		TotalSections:  total,
		IsActive:       true,
		EnrolledAt:     sc.now,
		LastAccessedAt: sc.now,
	}
	if err := sc.enrollments.Create(ctx, enrollment); err != nil {
		return nil, err
	}

	sc.afterCommit(func() {
		monitoring.EnrollmentTransitions.WithLabelValues("none", string(model.EnrollmentActive)).Inc()
		logger.Log.Info("user enrolled",
			zap.String("enrollmentId", enrollment.ID),
			zap.Uint("userId", userID),
			zap.Uint("moduleId", moduleID))
	})
	return enrollment, nil
}

// reactivate dropped → active，同一条记录，历史进度保留并重新聚合
func (s *EnrollmentService) reactivate(ctx context.Context, sc *txScope, enrollment *model.Enrollment) error {
	err := s.Engine.casUpdate(ctx, sc, enrollment, map[string]any{
		"status":           model.EnrollmentActive,
		"is_active":        true,
		"last_accessed_at": sc.now,
	})
	if err != nil {
		return err
	}
	enrollment.Status = model.EnrollmentActive
	enrollment.IsActive = true
	enrollment.LastAccessedAt = sc.now

	id, userID := enrollment.ID, enrollment.UserID
	sc.afterCommit(func() {
		monitoring.EnrollmentTransitions.WithLabelValues(string(model.EnrollmentDropped), string(model.EnrollmentActive)).Inc()
		logger.Log.Info("enrollment reactivated", zap.String("enrollmentId", id), zap.Uint("userId", userID))
	})

	_, err = s.Engine.recompute(ctx, sc, enrollment)
	return err
}

func (s *EnrollmentService) Pause(ctx context.Context, userID uint, enrollmentID string) (*model.Enrollment, error) {
	return s.lifecycle(ctx, userID, enrollmentID, model.ActionPause)
}

func (s *EnrollmentService) Resume(ctx context.Context, userID uint, enrollmentID string) (*model.Enrollment, error) {
	return s.lifecycle(ctx, userID, enrollmentID, model.ActionResume)
}

// Drop 退出模块，已完成的模块不能退出
func (s *EnrollmentService) Drop(ctx context.Context, userID uint, enrollmentID string) (*model.Enrollment, error) {
	return s.lifecycle(ctx, userID, enrollmentID, model.ActionDrop)
}

func (s *EnrollmentService) lifecycle(ctx context.Context, userID uint, enrollmentID string, action model.EnrollmentAction) (enrollment *model.Enrollment, err error) {
	op := "enrollment." + string(action)
	ctx, end := tracing.StartSpan(ctx, op,
		attribute.Int64("user.id", int64(userID)), attribute.String("enrollment.id", enrollmentID))
	defer end(&err)

	owned, err := s.Get(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}

	err = s.Engine.runLocked(ctx, op, userID, owned.ModuleID, func(ctx context.Context, sc *txScope) error {
		current, err := sc.enrollments.FindByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if err := s.Engine.transition(ctx, sc, current, action); err != nil {
			return err
		}
		enrollment = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Complete 显式完成模块，与自动完成共用 markCompletedIfNotAlready
func (s *EnrollmentService) Complete(ctx context.Context, userID uint, enrollmentID string, req CompleteEnrollmentRequest) (result *EnrollmentCompletion, err error) {
	ctx, end := tracing.StartSpan(ctx, "enrollment.complete",
		attribute.Int64("user.id", int64(userID)), attribute.String("enrollment.id", enrollmentID))
	defer end(&err)

	owned, err := s.Get(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}

	err = s.Engine.runLocked(ctx, "enrollment.complete", userID, owned.ModuleID, func(ctx context.Context, sc *txScope) error {
		current, err := sc.enrollments.FindByID(ctx, enrollmentID)
		if err != nil {
			return err
		}
		if _, ok := model.NextEnrollmentStatus(current.Status, model.ActionComplete); !ok {
			return util.TransitionConflict("enrollment", string(model.ActionComplete), string(current.Status))
		}
		if _, err := s.Engine.markCompletedIfNotAlready(ctx, sc, current, req.Grade, req.Feedback); err != nil {
			return err
		}
		streak, err := s.Engine.Streaks.apply(ctx, sc, userID)
		if err != nil {
			return err
		}
		result = &EnrollmentCompletion{Enrollment: current, Streak: streak}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get 获取本人的报名记录
func (s *EnrollmentService) Get(ctx context.Context, userID uint, enrollmentID string) (*model.Enrollment, error) {
	enrollment, err := s.Engine.Repos.Enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.UserID != userID {
		return nil, util.NewForbiddenError("enrollment.Get", "enrollment %s belongs to another user", enrollmentID)
	}
	return enrollment, nil
}

// List 列出用户报名，status 为空返回全部
func (s *EnrollmentService) List(ctx context.Context, userID uint, status string) ([]model.Enrollment, error) {
	st := model.EnrollmentStatus(status)
	if status != "" && !st.Valid() {
		return nil, util.NewValidationError("enrollment.List", "unknown enrollment status %q", status)
	}
	return s.Engine.Repos.Enrollments.ListByUser(ctx, userID, st)
}
