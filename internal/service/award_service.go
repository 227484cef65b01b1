package service

import (
	"context"
	"fmt"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/pkg/logger"
	"learning_progress_backend/pkg/monitoring"
	"sync"

	"go.uber.org/zap"
)

// AwardService 积分与成就发放，用户统计字段只在这里修改
type AwardService struct {
	mu  sync.RWMutex
	cfg config.AwardsConfig
}

func NewAwardService(cfg config.AwardsConfig) *AwardService {
	return &AwardService{cfg: cfg}
}

// SetConfig 配置热更新
func (s *AwardService) SetConfig(cfg config.AwardsConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *AwardService) Config() config.AwardsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// PointsFor 完成某类内容获得的积分
func (s *AwardService) PointsFor(t model.ContentType) int {
	cfg := s.Config()
	switch t {
	case model.ContentVideo:
		return cfg.Video
	case model.ContentLab:
		return cfg.Lab
	case model.ContentGame:
		return cfg.Game
	case model.ContentDocument:
		return cfg.Document
	}
	return 0
}

// AwardContentCompletion 进度记录首次进入 completed 时调用，同一事务内累加积分
func (s *AwardService) AwardContentCompletion(ctx context.Context, sc *txScope, rec *model.ProgressRecord) (int, error) {
	points := s.PointsFor(rec.ContentType)
	if points > 0 {
		if err := sc.users.AddPoints(ctx, rec.UserID, points); err != nil {
			return 0, err
		}
	}

	userID, contentID, contentType := rec.UserID, rec.ContentID, rec.ContentType
	sc.afterCommit(func() {
		monitoring.ContentCompletions.WithLabelValues(string(contentType)).Inc()
		if points > 0 {
			monitoring.PointsAwarded.WithLabelValues(string(contentType)).Add(float64(points))
		}
		logger.Log.Info("content completed",
			zap.Uint("userId", userID),
			zap.Uint("contentId", contentID),
			zap.String("type", string(contentType)),
			zap.Int("points", points))
	})
	return points, nil
}

// AwardModuleCompletion 模块完成：发放模块成就并累加完成模块数，重复调用无副作用
func (s *AwardService) AwardModuleCompletion(ctx context.Context, sc *txScope, enrollment *model.Enrollment) error {
	granted, err := s.grant(ctx, sc, &model.Achievement{
		UserID:   enrollment.UserID,
		Code:     fmt.Sprintf("module_completed:%d", enrollment.ModuleID),
		Name:     fmt.Sprintf("Completed module %d", enrollment.ModuleID),
		EarnedXP: s.Config().ModuleCompletionXP,
	})
	if err != nil || !granted {
		return err
	}
	return sc.users.IncrementCompletedModules(ctx, enrollment.UserID)
}

// AwardStreakMilestones 为本次跨越的每个里程碑发放成就
func (s *AwardService) AwardStreakMilestones(ctx context.Context, sc *txScope, userID uint, milestones []int) error {
	xp := s.Config().StreakMilestoneXP
	for _, m := range milestones {
		_, err := s.grant(ctx, sc, &model.Achievement{
			UserID:   userID,
			Code:     fmt.Sprintf("streak_%d", m),
			Name:     fmt.Sprintf("%d-day streak", m),
			EarnedXP: xp,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *AwardService) grant(ctx context.Context, sc *txScope, achievement *model.Achievement) (bool, error) {
	granted, err := sc.achievements.Grant(ctx, achievement)
	if err != nil || !granted {
		return false, err
	}
	if achievement.EarnedXP > 0 {
		if err := sc.users.AddXP(ctx, achievement.UserID, achievement.EarnedXP); err != nil {
			return false, err
		}
	}

	userID, code, xp := achievement.UserID, achievement.Code, achievement.EarnedXP
	sc.afterCommit(func() {
		logger.Log.Info("achievement granted",
			zap.Uint("userId", userID),
			zap.String("code", code),
			zap.Int("xp", xp))
	})
	return true, nil
}
