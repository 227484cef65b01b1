package service

import (
	"context"
	"fmt"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/repository"
	"learning_progress_backend/internal/util"
	"learning_progress_backend/pkg/keylock"
	"learning_progress_backend/pkg/logger"
	"learning_progress_backend/pkg/monitoring"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories 进度引擎使用的仓储集合
type Repositories struct {
	Content      *repository.ContentRepository
	Progress     *repository.ProgressRepository
	Enrollments  *repository.EnrollmentRepository
	Users        *repository.UserRepository
	Achievements *repository.AchievementRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Content:      repository.NewContentRepository(db),
		Progress:     repository.NewProgressRepository(db),
		Enrollments:  repository.NewEnrollmentRepository(db),
		Users:        repository.NewUserRepository(db),
		Achievements: repository.NewAchievementRepository(db),
	}
}

// txScope 单个事务内的仓储与提交后回调
type txScope struct {
	tx           *gorm.DB
	now          time.Time
	content      *repository.ContentRepository
	progress     *repository.ProgressRepository
	enrollments  *repository.EnrollmentRepository
	users        *repository.UserRepository
	achievements *repository.AchievementRepository
	committed    []func()
}

func (r Repositories) withTx(tx *gorm.DB, now time.Time) *txScope {
	return &txScope{
		tx:           tx,
		now:          now,
		content:      r.Content.WithTx(tx),
		progress:     r.Progress.WithTx(tx),
		enrollments:  r.Enrollments.WithTx(tx),
		users:        r.Users.WithTx(tx),
		achievements: r.Achievements.WithTx(tx),
	}
}

// afterCommit 注册事务提交成功后执行的回调（指标、缓存失效、日志）
func (s *txScope) afterCommit(fn func()) {
	s.committed = append(s.committed, fn)
}

// runInTx 在事务中执行 fn，并发冲突时整体重试
func runInTx(ctx context.Context, db *gorm.DB, repos Repositories, op string, maxTries int, clock func() time.Time, fn func(ctx context.Context, sc *txScope) error) error {
	return retryOnConflict(ctx, op, maxTries, func() error {
		var sc *txScope
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			sc = repos.withTx(tx, clock())
			return fn(ctx, sc)
		})
		if err != nil {
			return util.NewInternalError(op, err)
		}
		for _, cb := range sc.committed {
			cb()
		}
		return nil
	})
}

// AggregationEngine 进度聚合与奖励引擎
//
// 所有内容进度变更都经过这里：按 (用户, 模块) 串行化，在同一事务里
// 写进度记录、重新聚合报名进度、更新连续学习并发放奖励。报名记录的
// version 字段做比较并更新，多实例部署时冲突会整体重试。
type AggregationEngine struct {
	DB      *gorm.DB
	Repos   Repositories
	Awards  *AwardService
	Streaks *StreakService
	Now     func() time.Time

	locks  *keylock.KeyLock
	mu     sync.RWMutex
	policy config.ProgressConfig
}

func NewAggregationEngine(
	db *gorm.DB,
	repos Repositories,
	awards *AwardService,
	streaks *StreakService,
	policy config.ProgressConfig,
) *AggregationEngine {
	return &AggregationEngine{
		DB:      db,
		Repos:   repos,
		Awards:  awards,
		Streaks: streaks,
		Now:     time.Now,
		locks:   keylock.New(),
		policy:  policy,
	}
}

// SetPolicy 配置热更新
func (e *AggregationEngine) SetPolicy(policy config.ProgressConfig) {
	e.mu.Lock()
	e.policy = policy
	e.mu.Unlock()
}

func (e *AggregationEngine) Policy() config.ProgressConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// SetClock 统一替换引擎与连续学习使用的时钟
func (e *AggregationEngine) SetClock(now func() time.Time) {
	e.Now = now
	if e.Streaks != nil {
		e.Streaks.Now = now
	}
}

func moduleLockKey(userID, moduleID uint) string {
	return fmt.Sprintf("%d:%d", userID, moduleID)
}

// runLocked 持有 (用户, 模块) 锁执行事务
func (e *AggregationEngine) runLocked(ctx context.Context, op string, userID, moduleID uint, fn func(ctx context.Context, sc *txScope) error) error {
	unlock := e.locks.Lock(moduleLockKey(userID, moduleID))
	defer unlock()
	return runInTx(ctx, e.DB, e.Repos, op, e.Policy().MaxConflictRetries, e.Now, fn)
}

// totalCount 模块内容总数：live 取实时数量，snapshot 取报名时快照（内容下架时随之减少）
func (e *AggregationEngine) totalCount(ctx context.Context, sc *txScope, enrollment *model.Enrollment) (int, error) {
	live, err := sc.content.CountActiveContentItems(ctx, enrollment.ModuleID)
	if err != nil {
		return 0, err
	}
	if e.Policy().TotalCountPolicy != config.TotalCountSnapshot || enrollment.TotalSections <= 0 {
		return live, nil
	}
	if live < enrollment.TotalSections {
		return live, nil
	}
	return enrollment.TotalSections, nil
}

// casUpdate 按版本号更新报名记录，版本不一致返回并发冲突
func (e *AggregationEngine) casUpdate(ctx context.Context, sc *txScope, enrollment *model.Enrollment, updates map[string]any) error {
	ok, err := sc.enrollments.UpdateByVersion(ctx, enrollment.ID, enrollment.Version, updates)
	if err != nil {
		return err
	}
	if !ok {
		monitoring.AggregationConflicts.Inc()
		return util.NewConcurrencyError("enrollment.Update", "enrollment %s was modified concurrently", enrollment.ID)
	}
	enrollment.Version++
	return nil
}

// recompute 重新聚合报名进度，达到 100% 时按策略自动完成，返回是否本次完成
func (e *AggregationEngine) recompute(ctx context.Context, sc *txScope, enrollment *model.Enrollment) (bool, error) {
	total, err := e.totalCount(ctx, sc, enrollment)
	if err != nil {
		return false, err
	}
	summary, err := sc.progress.SummarizeModule(ctx, enrollment.UserID, enrollment.ModuleID)
	if err != nil {
		return false, err
	}

	completed := summary.Completed
	if completed > total {
		completed = total
	}
	percentage := roundPercentage(completed, total)
	// 已完成的报名固定为 100，只刷新计数与时长
	if enrollment.Status == model.EnrollmentCompleted {
		percentage = 100
	}

	err = e.casUpdate(ctx, sc, enrollment, map[string]any{
		"progress_percentage": percentage,
		"completed_sections":  completed,
		"total_sections":      total,
		"time_spent":          summary.TimeSpent,
		"last_accessed_at":    sc.now,
	})
	if err != nil {
		return false, err
	}
	enrollment.ProgressPercentage = percentage
	enrollment.CompletedSections = completed
	enrollment.TotalSections = total
	enrollment.TimeSpent = summary.TimeSpent
	enrollment.LastAccessedAt = sc.now

	if percentage < 100 || !e.Policy().ImplicitCompletion {
		return false, nil
	}
	switch enrollment.Status {
	case model.EnrollmentActive, model.EnrollmentPaused:
		return e.markCompletedIfNotAlready(ctx, sc, enrollment, "", "")
	}
	return false, nil
}

// markCompletedIfNotAlready 显式完成与自动完成共用的唯一入口
//
// 已完成时返回 false 且不产生任何副作用；已退出时返回冲突错误。
func (e *AggregationEngine) markCompletedIfNotAlready(ctx context.Context, sc *txScope, enrollment *model.Enrollment, grade, feedback string) (bool, error) {
	if enrollment.Status == model.EnrollmentCompleted {
		return false, nil
	}
	from := enrollment.Status
	next, ok := model.NextEnrollmentStatus(from, model.ActionComplete)
	if !ok {
		return false, util.TransitionConflict("enrollment", string(model.ActionComplete), string(from))
	}

	completedAt := sc.now
	updates := map[string]any{
		"status":              next,
		"progress_percentage": 100,
		"completed_at":        completedAt,
		"last_accessed_at":    sc.now,
	}
	if grade != "" {
		updates["grade"] = grade
	}
	if feedback != "" {
		updates["feedback"] = feedback
	}
	if err := e.casUpdate(ctx, sc, enrollment, updates); err != nil {
		return false, err
	}
	enrollment.Status = next
	enrollment.ProgressPercentage = 100
	enrollment.CompletedAt = &completedAt
	enrollment.LastAccessedAt = sc.now
	if grade != "" {
		enrollment.Grade = grade
	}
	if feedback != "" {
		enrollment.Feedback = feedback
	}

	if err := e.Awards.AwardModuleCompletion(ctx, sc, enrollment); err != nil {
		return false, err
	}

	userID, moduleID, id := enrollment.UserID, enrollment.ModuleID, enrollment.ID
	sc.afterCommit(func() {
		monitoring.EnrollmentTransitions.WithLabelValues(string(from), string(next)).Inc()
		logger.Log.Info("enrollment completed",
			zap.String("enrollmentId", id),
			zap.Uint("userId", userID),
			zap.Uint("moduleId", moduleID),
			zap.String("from", string(from)))
	})
	return true, nil
}

// transition 暂停、恢复、退出等不涉及聚合的状态迁移
func (e *AggregationEngine) transition(ctx context.Context, sc *txScope, enrollment *model.Enrollment, action model.EnrollmentAction) error {
	from := enrollment.Status
	next, ok := model.NextEnrollmentStatus(from, action)
	if !ok {
		return util.TransitionConflict("enrollment", string(action), string(from))
	}

	updates := map[string]any{
		"status":           next,
		"last_accessed_at": sc.now,
	}
	isActive := next != model.EnrollmentDropped
	updates["is_active"] = isActive
	if err := e.casUpdate(ctx, sc, enrollment, updates); err != nil {
		return err
	}
	enrollment.Status = next
	enrollment.IsActive = isActive
	enrollment.LastAccessedAt = sc.now

	id, userID := enrollment.ID, enrollment.UserID
	sc.afterCommit(func() {
		monitoring.EnrollmentTransitions.WithLabelValues(string(from), string(next)).Inc()
		logger.Log.Info("enrollment transition",
			zap.String("enrollmentId", id),
			zap.Uint("userId", userID),
			zap.String("from", string(from)),
			zap.String("to", string(next)))
	})
	return nil
}
