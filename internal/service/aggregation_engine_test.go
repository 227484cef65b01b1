package service

import (
	"context"
	"errors"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/testutil"
	"learning_progress_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOnConflict_RetriesConcurrencyErrors(t *testing.T) {
	calls := 0
	err := retryOnConflict(context.Background(), "test", 5, func() error {
		calls++
		if calls < 3 {
			return util.NewConcurrencyError("test", "busy")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflict_GivesUpAfterMaxTries(t *testing.T) {
	calls := 0
	err := retryOnConflict(context.Background(), "test", 3, func() error {
		calls++
		return util.NewConcurrencyError("test", "busy")
	})
	assert.True(t, util.IsConcurrency(err))
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflict_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retryOnConflict(context.Background(), "test", 5, func() error {
		calls++
		return util.NewConflictError("test", "cannot")
	})
	assert.True(t, util.IsConflict(err))
	assert.Equal(t, 1, calls)

	calls = 0
	err = retryOnConflict(context.Background(), "test", 5, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRecompute_StaleVersionIsConcurrencyConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db)
	module, _ := testutil.SeedModule(t, f.db, model.ContentDocument)
	enrollment := f.enroll(t, user.ID, module.ID)

	// 另一个实例抢先写入
	require.NoError(t, f.db.Model(&model.Enrollment{}).Where("id = ?", enrollment.ID).
		Update("version", enrollment.Version+1).Error)

	stale := *enrollment
	err := runInTx(ctx, f.db, f.engine.Repos, "test", 2, f.clock.Now, func(ctx context.Context, sc *txScope) error {
		attempt := stale
		_, err := f.engine.recompute(ctx, sc, &attempt)
		return err
	})
	assert.True(t, util.IsConcurrency(err))

	stored := f.reloadEnrollment(t, enrollment.ID)
	assert.Equal(t, enrollment.Version+1, stored.Version)
}

func TestRecompute_ReloadAfterConflictSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, f.db)
	module, _ := testutil.SeedModule(t, f.db, model.ContentDocument)
	enrollment := f.enroll(t, user.ID, module.ID)

	bumped := false
	err := f.engine.runLocked(ctx, "test", user.ID, module.ID, func(ctx context.Context, sc *txScope) error {
		current, err := sc.enrollments.FindByID(ctx, enrollment.ID)
		if err != nil {
			return err
		}
		if !bumped {
			bumped = true
			if err := sc.tx.Model(&model.Enrollment{}).Where("id = ?", enrollment.ID).
				Update("version", current.Version+1).Error; err != nil {
				return err
			}
		}
		_, err = f.engine.recompute(ctx, sc, current)
		return err
	})
	require.NoError(t, err)
	assert.True(t, bumped)
}
