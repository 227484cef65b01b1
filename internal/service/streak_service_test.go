package service

import (
	"context"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/testutil"
	"learning_progress_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStreak(t *testing.T, f *fixture, userID uint, current, longest int, lastActive time.Time) {
	t.Helper()
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]any{
		"current_streak": current,
		"longest_streak": longest,
		"last_active_at": lastActive,
	}).Error)
}

func TestRecordActivity_Extended(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db)
	seedStreak(t, f, user.ID, 5, 5, f.clock.Now().Add(-24*time.Hour))

	update, err := f.streaks.RecordActivity(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StreakExtended, update.Action)
	assert.Equal(t, 6, update.State.CurrentStreak)
	assert.Equal(t, 6, update.State.LongestStreak)

	stored := f.reloadUser(t, user.ID)
	assert.Equal(t, 6, stored.CurrentStreak)
	assert.Equal(t, 6, stored.LongestStreak)
	assert.Equal(t, 1, stored.StreakVersion)
}

func TestRecordActivity_Restarted(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db)
	seedStreak(t, f, user.ID, 10, 10, f.clock.Now().Add(-72*time.Hour))

	update, err := f.streaks.RecordActivity(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StreakRestarted, update.Action)
	assert.Equal(t, 1, update.State.CurrentStreak)
	assert.Equal(t, 10, update.State.LongestStreak)
}

func TestRecordActivity_IdempotentWithinDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db)

	first, err := f.streaks.RecordActivity(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StreakStart, first.Action)

	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Hour)
		update, err := f.streaks.RecordActivity(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StreakAlreadyUpdated, update.Action)
		assert.Equal(t, 1, update.State.CurrentStreak)
	}

	stored := f.reloadUser(t, user.ID)
	assert.Equal(t, 1, stored.CurrentStreak)
	require.NotNil(t, stored.LastActiveAt)
	assert.True(t, stored.LastActiveAt.Equal(f.clock.Now()))
}

func TestRecordActivity_MilestoneGrantsAchievementOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db)
	seedStreak(t, f, user.ID, 2, 2, f.clock.Now().Add(-24*time.Hour))

	update, err := f.streaks.RecordActivity(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, update.Milestone)
	assert.Equal(t, 3, *update.Milestone)

	stored := f.reloadUser(t, user.ID)
	assert.Equal(t, f.awards.Config().StreakMilestoneXP, stored.XP)

	achievements, err := f.engine.Repos.Achievements.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, achievements, 1)
	assert.Equal(t, "streak_3", achievements[0].Code)

	// 中断后重新达到 3 天不会再次发放
	f.clock.Advance(5 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		_, err := f.streaks.RecordActivity(ctx, user.ID)
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}
	assert.Equal(t, 3, f.reloadUser(t, user.ID).CurrentStreak)
	assert.Equal(t, f.awards.Config().StreakMilestoneXP, f.reloadUser(t, user.ID).XP)
}

func TestRecordActivity_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.streaks.RecordActivity(context.Background(), 777)
	assert.True(t, util.IsNotFound(err))
}

func TestGetStatus_BrokenStreakIsReadOnly(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db)
	seedStreak(t, f, user.ID, 9, 12, f.clock.Now().Add(-4*24*time.Hour))

	view, err := f.streaks.GetStatus(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StreakBroken, view.Status)
	assert.Equal(t, 0, view.CurrentStreak)
	assert.Equal(t, 12, view.LongestStreak)
	require.NotNil(t, view.NextMilestone)
	assert.Equal(t, 3, *view.NextMilestone)

	stored := f.reloadUser(t, user.ID)
	assert.Equal(t, 9, stored.CurrentStreak)
	assert.Zero(t, stored.StreakVersion)
}

func TestGetStatus_UsesCacheAndRefreshesOnActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db)

	view, err := f.streaks.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StreakNone, view.Status)
	assert.Equal(t, 1, f.cache.sets)

	_, err = f.streaks.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.sets)

	_, err = f.streaks.RecordActivity(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.cache.sets)
	assert.Zero(t, f.cache.deletes)

	view, err = f.streaks.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StreakActive, view.Status)
	assert.Equal(t, 1, view.CurrentStreak)
	assert.Equal(t, 2, f.cache.sets, "status is served from the refreshed entry")
}

func TestGetStatus_StaleReadDoesNotOverwriteNewerCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db)

	// 读取方已从库中读到旧状态，写入缓存前另一请求提交了活动
	f.cache.beforeSet = func(userID uint, stale model.StreakState) {
		assert.Zero(t, stale.CurrentStreak)
		_, err := f.streaks.RecordActivity(ctx, userID)
		require.NoError(t, err)
	}

	view, err := f.streaks.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, view.CurrentStreak)

	view, err = f.streaks.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StreakActive, view.Status)
	assert.Equal(t, 1, view.CurrentStreak)

	cached, err := f.cache.Get(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 1, cached.Version)
}

func TestStats_Aggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db)
	module, items := testutil.SeedModule(t, f.db, model.ContentLab)
	f.enroll(t, user.ID, module.ID)

	_, err := f.progress.CompleteContent(ctx, user.ID, items[0].ID, CompleteContentRequest{})
	require.NoError(t, err)

	stats, err := f.stats.GetUserStats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Points)
	assert.Equal(t, 100, stats.XP)
	assert.Equal(t, 1, stats.CompletedModules)
	assert.Equal(t, model.StreakActive, stats.Streak.Status)
	assert.Len(t, stats.Achievements, 1)
}
