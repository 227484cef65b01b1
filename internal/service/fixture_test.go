package service

import (
	"context"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/testutil"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	clock       *testutil.Clock
	cache       *memoryStreakCache
	awards      *AwardService
	streaks     *StreakService
	engine      *AggregationEngine
	progress    *ProgressService
	enrollments *EnrollmentService
	stats       *StatsService
}

func newFixture(t *testing.T, opts ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Defaults()
	for _, opt := range opts {
		opt(cfg)
	}

	db := testutil.NewDB(t)
	repos := NewRepositories(db)
	cache := newMemoryStreakCache()
	awards := NewAwardService(cfg.Awards)
	streaks := NewStreakService(db, repos, cache, awards, time.UTC, cfg.Progress.MaxConflictRetries)
	engine := NewAggregationEngine(db, repos, awards, streaks, cfg.Progress)

	clock := testutil.NewClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	engine.SetClock(clock.Now)

	return &fixture{
		db:          db,
		clock:       clock,
		cache:       cache,
		awards:      awards,
		streaks:     streaks,
		engine:      engine,
		progress:    NewProgressService(engine),
		enrollments: NewEnrollmentService(engine),
		stats:       NewStatsService(repos, streaks),
	}
}

func (f *fixture) reloadUser(t *testing.T, id uint) *model.User {
	t.Helper()
	var user model.User
	require.NoError(t, f.db.First(&user, id).Error)
	return &user
}

func (f *fixture) reloadEnrollment(t *testing.T, id string) *model.Enrollment {
	t.Helper()
	var enrollment model.Enrollment
	require.NoError(t, f.db.Where("id = ?", id).First(&enrollment).Error)
	return &enrollment
}

func (f *fixture) enroll(t *testing.T, userID, moduleID uint) *model.Enrollment {
	t.Helper()
	enrollment, err := f.enrollments.Enroll(context.Background(), userID, moduleID)
	require.NoError(t, err)
	return enrollment
}

func repeat(t model.ContentType, n int) []model.ContentType {
	types := make([]model.ContentType, n)
	for i := range types {
		types[i] = t
	}
	return types
}

// memoryStreakCache 记录调用次数的内存缓存，beforeSet 在写入前执行
type memoryStreakCache struct {
	mu        sync.Mutex
	states    map[uint]model.StreakState
	gets      int
	sets      int
	deletes   int
	beforeSet func(userID uint, state model.StreakState)
}

func newMemoryStreakCache() *memoryStreakCache {
	return &memoryStreakCache{states: map[uint]model.StreakState{}}
}

func (c *memoryStreakCache) Get(_ context.Context, userID uint) (*model.StreakState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	state, ok := c.states[userID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (c *memoryStreakCache) Set(_ context.Context, userID uint, state model.StreakState) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook(userID, state)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if cur, ok := c.states[userID]; ok && cur.Version > state.Version {
		return nil
	}
	c.states[userID] = state
	return nil
}

func (c *memoryStreakCache) Delete(_ context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.states, userID)
	return nil
}
