package service

import (
	"context"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"
	"learning_progress_backend/pkg/logger"
	"learning_progress_backend/pkg/monitoring"
	"learning_progress_backend/pkg/tracing"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// StreakStateCache 连续学习状态缓存，Set 不得用低版本覆盖高版本
type StreakStateCache interface {
	Get(ctx context.Context, userID uint) (*model.StreakState, error)
	Set(ctx context.Context, userID uint, state model.StreakState) error
	Delete(ctx context.Context, userID uint) error
}

type StreakService struct {
	DB         *gorm.DB
	Repos      Repositories
	Cache      StreakStateCache // 可为 nil
	Awards     *AwardService
	Location   *time.Location
	MaxRetries int
	Now        func() time.Time

	group singleflight.Group
}

func NewStreakService(
	db *gorm.DB,
	repos Repositories,
	cache StreakStateCache,
	awards *AwardService,
	loc *time.Location,
	maxRetries int,
) *StreakService {
	if loc == nil {
		loc = time.Local
	}
	return &StreakService{
		DB:         db,
		Repos:      repos,
		Cache:      cache,
		Awards:     awards,
		Location:   loc,
		MaxRetries: maxRetries,
		Now:        time.Now,
	}
}

// RecordActivity 记录一次学习活动（独立事务）
func (s *StreakService) RecordActivity(ctx context.Context, userID uint) (update *StreakUpdate, err error) {
	ctx, end := tracing.StartSpan(ctx, "streak.RecordActivity", attribute.Int64("user.id", int64(userID)))
	defer end(&err)

	err = runInTx(ctx, s.DB, s.Repos, "streak.RecordActivity", s.MaxRetries, s.Now, func(ctx context.Context, sc *txScope) error {
		u, err := s.apply(ctx, sc, userID)
		update = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

// apply 在调用方事务内推进连续学习状态
func (s *StreakService) apply(ctx context.Context, sc *txScope, userID uint) (*StreakUpdate, error) {
	user, err := sc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	update := EvaluateStreak(user.StreakState(), sc.now, s.Location)
	ok, err := sc.users.SaveStreakByVersion(ctx, userID, user.StreakVersion, update.State)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.NewConcurrencyError("streak.Update", "streak of user %d was modified concurrently", userID)
	}
	update.State.Version = user.StreakVersion + 1

	if len(update.Milestones) > 0 {
		if err := s.Awards.AwardStreakMilestones(ctx, sc, userID, update.Milestones); err != nil {
			return nil, err
		}
	}

	action, current, state := update.Action, update.State.CurrentStreak, update.State
	sc.afterCommit(func() {
		monitoring.StreakUpdates.WithLabelValues(string(action)).Inc()
		s.refresh(ctx, userID, state)
		if action != model.StreakAlreadyUpdated {
			logger.Log.Debug("streak updated",
				zap.Uint("userId", userID),
				zap.String("action", string(action)),
				zap.Int("currentStreak", current))
		}
	})
	return &update, nil
}

// GetStatus 查询连续学习状态，中断时 currentStreak 显示为 0 但不写库
func (s *StreakService) GetStatus(ctx context.Context, userID uint) (*StreakStatusView, error) {
	state, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := StreakStatusAt(*state, s.Now(), s.Location)
	return &view, nil
}

func (s *StreakService) loadState(ctx context.Context, userID uint) (*model.StreakState, error) {
	if s.Cache != nil {
		state, err := s.Cache.Get(ctx, userID)
		if err != nil {
			logger.Log.Warn("streak cache read failed", zap.Uint("userId", userID), zap.Error(err))
		} else if state != nil {
			return state, nil
		}
	}

	v, err, _ := s.group.Do(strconv.FormatUint(uint64(userID), 10), func() (any, error) {
		user, err := s.Repos.Users.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		state := user.StreakState()
		if s.Cache != nil {
			if err := s.Cache.Set(ctx, userID, state); err != nil {
				logger.Log.Warn("streak cache write failed", zap.Uint("userId", userID), zap.Error(err))
			}
		}
		return &state, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.StreakState), nil
}

// refresh 提交后写入新状态，写入失败时删除缓存
func (s *StreakService) refresh(ctx context.Context, userID uint, state model.StreakState) {
	if s.Cache == nil {
		return
	}
	err := s.Cache.Set(ctx, userID, state)
	if err == nil {
		return
	}
	logger.Log.Warn("streak cache refresh failed", zap.Uint("userId", userID), zap.Error(err))
	if err := s.Cache.Delete(ctx, userID); err != nil {
		logger.Log.Warn("streak cache invalidation failed", zap.Uint("userId", userID), zap.Error(err))
	}
}
