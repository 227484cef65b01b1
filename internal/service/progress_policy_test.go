package service

import (
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policyNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestApplyPercentage_VideoAutoCompletesAtThreshold(t *testing.T) {
	rec := &model.ProgressRecord{ContentType: model.ContentVideo, Status: model.ProgressNotStarted}

	assert.False(t, applyPercentage(rec, 50, 90, policyNow))
	assert.Equal(t, model.ProgressInProgress, rec.Status)
	require.NotNil(t, rec.StartedAt)

	assert.True(t, applyPercentage(rec, 90, 90, policyNow))
	assert.Equal(t, model.ProgressCompleted, rec.Status)
	assert.Equal(t, 100, rec.ProgressPercentage)
	require.NotNil(t, rec.CompletedAt)
}

func TestApplyPercentage_NonVideoNeedsFullPercentage(t *testing.T) {
	rec := &model.ProgressRecord{ContentType: model.ContentDocument, Status: model.ProgressNotStarted}

	assert.False(t, applyPercentage(rec, 95, 90, policyNow))
	assert.Equal(t, model.ProgressInProgress, rec.Status)
	assert.True(t, applyPercentage(rec, 100, 90, policyNow))
}

func TestApplyPercentage_NeverRegresses(t *testing.T) {
	rec := &model.ProgressRecord{ContentType: model.ContentLab, Status: model.ProgressNotStarted}

	applyPercentage(rec, 60, 90, policyNow)
	applyPercentage(rec, 30, 90, policyNow)
	assert.Equal(t, 60, rec.ProgressPercentage)

	applyPercentage(rec, 100, 90, policyNow)
	later := policyNow.Add(time.Hour)
	assert.False(t, applyPercentage(rec, 10, 90, later))
	assert.Equal(t, 100, rec.ProgressPercentage)
	assert.Equal(t, model.ProgressCompleted, rec.Status)
	assert.Equal(t, later, rec.LastAccessedAt)
}

func TestApplyPercentage_ZeroKeepsNotStarted(t *testing.T) {
	rec := &model.ProgressRecord{ContentType: model.ContentGame, Status: model.ProgressNotStarted}

	assert.False(t, applyPercentage(rec, 0, 90, policyNow))
	assert.Equal(t, model.ProgressNotStarted, rec.Status)
	assert.Nil(t, rec.StartedAt)
}

func TestApplyCompletion_IdempotentButCountsAttempts(t *testing.T) {
	rec := &model.ProgressRecord{ContentType: model.ContentLab, Status: model.ProgressInProgress}
	score, maxScore := 8, 10

	assert.True(t, applyCompletion(rec, &score, &maxScore, 5, policyNow))

	retry, retryMax := 3, 20
	assert.False(t, applyCompletion(rec, &retry, &retryMax, 7, policyNow))
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, 8, *rec.Score)
	assert.Equal(t, 10, *rec.MaxScore)
	assert.Equal(t, 5, rec.TimeSpent)
	assert.Equal(t, 100, rec.ProgressPercentage)
}

func TestRoundPercentage(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 4, 75},
		{4, 4, 100},
		{5, 4, 100},
		{199, 200, 99},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, roundPercentage(tc.completed, tc.total), "%d/%d", tc.completed, tc.total)
	}
}

func TestValidation(t *testing.T) {
	assert.True(t, util.IsValidation(validatePercentage("op", -1)))
	assert.True(t, util.IsValidation(validatePercentage("op", 101)))
	assert.NoError(t, validatePercentage("op", 0))
	assert.NoError(t, validatePercentage("op", 100))

	assert.True(t, util.IsValidation(validateTimeSpent("op", -5)))

	score, maxScore := 11, 10
	assert.True(t, util.IsValidation(validateScore("op", &score, &maxScore)))
	zero := 0
	assert.True(t, util.IsValidation(validateScore("op", nil, &zero)))
	assert.NoError(t, validateScore("op", nil, nil))
}
