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

type ProgressService struct {
	Engine *AggregationEngine
}

func NewProgressService(engine *AggregationEngine) *ProgressService {
	return &ProgressService{Engine: engine}
}

type UpdateProgressRequest struct {
	ProgressPercentage *int `json:"progressPercentage" binding:"required"`
	TimeSpent          int  `json:"timeSpent"` // 本次新增分钟数
}

type CompleteContentRequest struct {
	Score     *int `json:"score"`
	MaxScore  *int `json:"maxScore"`
	TimeSpent int  `json:"timeSpent"`
}

// ProgressResult 一次进度变更的结果
type ProgressResult struct {
	Record              *model.ProgressRecord `json:"record"`
	NewlyCompleted      bool                  `json:"newlyCompleted"`
	PointsAwarded       int                   `json:"pointsAwarded"`
	Enrollment          *model.Enrollment     `json:"enrollment"`
	EnrollmentCompleted bool                  `json:"enrollmentCompleted"`
	Streak              *StreakUpdate         `json:"streak,omitempty"`
}

// ContentProgress 模块内单个内容及其进度（未开始时 Progress 为空）
type ContentProgress struct {
	Content  model.ContentItem     `json:"content"`
	Progress *model.ProgressRecord `json:"progress,omitempty"`
}

type ModuleProgress struct {
	Enrollment *model.Enrollment `json:"enrollment"`
	Items      []ContentProgress `json:"items"`
}

// DeactivationResult 内容下架结果
type DeactivationResult struct {
	ContentID             uint  `json:"contentId"`
	DeactivatedRecords    int64 `json:"deactivatedRecords"`
	RecomputedEnrollments int   `json:"recomputedEnrollments"`
}

// requireEnrollment 写进度前校验报名状态，未报名与已退出都视为无权限
func requireEnrollment(ctx context.Context, sc *txScope, userID, moduleID uint) (*model.Enrollment, error) {
	enrollment, err := sc.enrollments.FindByUserModule(ctx, userID, moduleID)
	if util.IsNotFound(err) {
		return nil, util.NewForbiddenError("progress.Authorize", "user is not enrolled in module %d", moduleID)
	}
	if err != nil {
		return nil, err
	}
	if !enrollment.AllowsProgress() {
		return nil, util.NewForbiddenError("progress.Authorize", "enrollment in module %d has been dropped", moduleID)
	}
	return enrollment, nil
}

// loadOrStart 获取进度记录，不存在时以 not_started 创建
func loadOrStart(ctx context.Context, sc *txScope, userID uint, content *model.ContentItem) (*model.ProgressRecord, error) {
	rec, err := sc.progress.FindActive(ctx, userID, content.ID)
	if err == nil {
		return rec, nil
	}
	if !util.IsNotFound(err) {
		return nil, err
	}

	rec, created, err := sc.progress.CreateIfAbsent(ctx, &model.ProgressRecord{
		UserID:         userID,
		ContentID:      content.ID,
		ModuleID:       content.ModuleID,
		ContentType:    content.Type,
		Status:         model.ProgressNotStarted,
		LastAccessedAt: sc.now,
		IsActive:       true,
	})
	if err != nil {
		return nil, err
	}
	if !created && !rec.IsActive {
		rec.IsActive = true
		rec.ModuleID = content.ModuleID
		rec.ContentType = content.Type
	}
	return rec, nil
}

// GetOrCreate 访问内容时获取进度记录，首次访问自动创建
func (s *ProgressService) GetOrCreate(ctx context.Context, userID, contentID uint) (rec *model.ProgressRecord, err error) {
	ctx, end := tracing.StartSpan(ctx, "progress.GetOrCreate",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("content.id", int64(contentID)))
	defer end(&err)

	content, err := s.Engine.Repos.Content.GetContentItem(ctx, contentID)
	if err != nil {
		return nil, err
	}

	err = s.Engine.runLocked(ctx, "progress.GetOrCreate", userID, content.ModuleID, func(ctx context.Context, sc *txScope) error {
		enrollment, err := requireEnrollment(ctx, sc, userID, content.ModuleID)
		if err != nil {
			return err
		}
		r, err := loadOrStart(ctx, sc, userID, content)
		if err != nil {
			return err
		}
		r.LastAccessedAt = sc.now
		if err := sc.progress.Save(ctx, r); err != nil {
			return err
		}
		if _, err := s.Engine.recompute(ctx, sc, enrollment); err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateProgress 上报内容学习百分比，可附带新增学习时长
func (s *ProgressService) UpdateProgress(ctx context.Context, userID, contentID uint, percentage, timeSpent int) (*ProgressResult, error) {
	const op = "progress.Update"
	if err := validatePercentage(op, percentage); err != nil {
		monitoring.ProgressUpdates.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := validateTimeSpent(op, timeSpent); err != nil {
		monitoring.ProgressUpdates.WithLabelValues("rejected").Inc()
		return nil, err
	}

	threshold := s.Engine.Policy().VideoAutoCompleteThreshold
	return s.mutate(ctx, op, userID, contentID, func(rec *model.ProgressRecord, sc *txScope) bool {
		rec.TimeSpent += timeSpent
		return applyPercentage(rec, percentage, threshold, sc.now)
	})
}

// CompleteContent 显式完成内容，重复调用不会重复发放积分
func (s *ProgressService) CompleteContent(ctx context.Context, userID, contentID uint, req CompleteContentRequest) (*ProgressResult, error) {
	const op = "progress.Complete"
	if err := validateScore(op, req.Score, req.MaxScore); err != nil {
		monitoring.ProgressUpdates.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := validateTimeSpent(op, req.TimeSpent); err != nil {
		monitoring.ProgressUpdates.WithLabelValues("rejected").Inc()
		return nil, err
	}

	return s.mutate(ctx, op, userID, contentID, func(rec *model.ProgressRecord, sc *txScope) bool {
		return applyCompletion(rec, req.Score, req.MaxScore, req.TimeSpent, sc.now)
	})
}

// mutate 进度变更的公共流程：校验报名、写记录、发积分、聚合、更新连续学习
func (s *ProgressService) mutate(ctx context.Context, op string, userID, contentID uint, apply func(rec *model.ProgressRecord, sc *txScope) bool) (result *ProgressResult, err error) {
	ctx, end := tracing.StartSpan(ctx, op,
		attribute.Int64("user.id", int64(userID)), attribute.Int64("content.id", int64(contentID)))
	defer end(&err)
	defer func() {
		switch {
		case err != nil:
			monitoring.ProgressUpdates.WithLabelValues("rejected").Inc()
		case result.NewlyCompleted:
			monitoring.ProgressUpdates.WithLabelValues("completed").Inc()
		default:
			monitoring.ProgressUpdates.WithLabelValues("updated").Inc()
		}
	}()

	content, err := s.Engine.Repos.Content.GetContentItem(ctx, contentID)
	if err != nil {
		return nil, err
	}

	err = s.Engine.runLocked(ctx, op, userID, content.ModuleID, func(ctx context.Context, sc *txScope) error {
		enrollment, err := requireEnrollment(ctx, sc, userID, content.ModuleID)
		if err != nil {
			return err
		}
		rec, err := loadOrStart(ctx, sc, userID, content)
		if err != nil {
			return err
		}

		res := &ProgressResult{Record: rec, Enrollment: enrollment}
		res.NewlyCompleted = apply(rec, sc)
		if err := sc.progress.Save(ctx, rec); err != nil {
			return err
		}
		if res.NewlyCompleted {
			if res.PointsAwarded, err = s.Engine.Awards.AwardContentCompletion(ctx, sc, rec); err != nil {
				return err
			}
		}
		if res.EnrollmentCompleted, err = s.Engine.recompute(ctx, sc, enrollment); err != nil {
			return err
		}
		if res.Streak, err = s.Engine.Streaks.apply(ctx, sc, userID); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ModuleProgress 用户在模块下的报名与全部内容进度
func (s *ProgressService) ModuleProgress(ctx context.Context, userID, moduleID uint) (*ModuleProgress, error) {
	repos := s.Engine.Repos
	if _, err := repos.Content.GetModule(ctx, moduleID); err != nil {
		return nil, err
	}
	enrollment, err := repos.Enrollments.FindByUserModule(ctx, userID, moduleID)
	if util.IsNotFound(err) {
		return nil, util.NewForbiddenError("progress.Module", "user is not enrolled in module %d", moduleID)
	}
	if err != nil {
		return nil, err
	}

	items, err := repos.Content.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, util.NewInternalError("progress.Module", err)
	}
	records, err := repos.Progress.ListByUserModule(ctx, userID, moduleID)
	if err != nil {
		return nil, err
	}
	byContent := make(map[uint]*model.ProgressRecord, len(records))
	for i := range records {
		byContent[records[i].ContentID] = &records[i]
	}

	view := &ModuleProgress{Enrollment: enrollment, Items: make([]ContentProgress, 0, len(items))}
	for _, item := range items {
		view.Items = append(view.Items, ContentProgress{Content: item, Progress: byContent[item.ID]})
	}
	return view, nil
}

// DeactivateContent 内容下架：停用相关进度记录并重新聚合模块下所有报名
func (s *ProgressService) DeactivateContent(ctx context.Context, contentID uint) (result *DeactivationResult, err error) {
	ctx, end := tracing.StartSpan(ctx, "progress.DeactivateContent", attribute.Int64("content.id", int64(contentID)))
	defer end(&err)

	e := s.Engine
	content, err := e.Repos.Content.GetContentItem(ctx, contentID)
	if err != nil {
		return nil, err
	}

	result = &DeactivationResult{ContentID: contentID}
	err = runInTx(ctx, e.DB, e.Repos, "progress.DeactivateContent", 1, e.Now, func(ctx context.Context, sc *txScope) error {
		if err := sc.content.Deactivate(ctx, contentID); err != nil {
			return err
		}
		n, err := sc.progress.DeactivateByContent(ctx, contentID)
		result.DeactivatedRecords = n
		return err
	})
	if err != nil {
		return nil, err
	}

	enrollments, err := e.Repos.Enrollments.ListByModule(ctx, content.ModuleID)
	if err != nil {
		return nil, err
	}
	for _, en := range enrollments {
		err := e.runLocked(ctx, "progress.Reaggregate", en.UserID, en.ModuleID, func(ctx context.Context, sc *txScope) error {
			current, err := sc.enrollments.FindByID(ctx, en.ID)
			if err != nil {
				return err
			}
			if current.Status == model.EnrollmentDropped {
				return nil
			}
			_, err = e.recompute(ctx, sc, current)
			return err
		})
		if err != nil {
			return nil, err
		}
		result.RecomputedEnrollments++
	}

	logger.Log.Info("content deactivated",
		zap.Uint("contentId", contentID),
		zap.Uint("moduleId", content.ModuleID),
		zap.Int64("records", result.DeactivatedRecords),
		zap.Int("enrollments", result.RecomputedEnrollments))
	return result, nil
}
