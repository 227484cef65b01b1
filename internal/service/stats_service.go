package service

import (
	"context"
	"learning_progress_backend/internal/model"
)

type StatsService struct {
	Repos   Repositories
	Streaks *StreakService
}

func NewStatsService(repos Repositories, streaks *StreakService) *StatsService {
	return &StatsService{Repos: repos, Streaks: streaks}
}

// UserLearningStats 用户学习统计总览
type UserLearningStats struct {
	model.UserStats
	Streak       *StreakStatusView   `json:"streak"`
	Achievements []model.Achievement `json:"achievements"`
}

func (s *StatsService) GetUserStats(ctx context.Context, userID uint) (*UserLearningStats, error) {
	user, err := s.Repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	achievements, err := s.Repos.Achievements.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	streak := StreakStatusAt(user.StreakState(), s.Streaks.Now(), s.Streaks.Location)
	return &UserLearningStats{
		UserStats:    user.Stats(),
		Streak:       &streak,
		Achievements: achievements,
	}, nil
}
