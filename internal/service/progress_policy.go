package service

import (
	"learning_progress_backend/internal/model"
	"learning_progress_backend/internal/util"
	"math"
	"time"
)

// applyPercentage 按上报的百分比推进进度记录，返回本次是否首次完成
//
// 已完成的记录不会回退，只刷新访问时间。视频达到阈值即视为完成，
// 其他类型需要达到 100。
func applyPercentage(rec *model.ProgressRecord, percentage, videoThreshold int, now time.Time) bool {
	rec.LastAccessedAt = now
	if rec.IsCompleted() {
		return false
	}

	if percentage > rec.ProgressPercentage {
		rec.ProgressPercentage = percentage
	}
	if rec.StartedAt == nil && rec.ProgressPercentage > 0 {
		started := now
		rec.StartedAt = &started
	}

	if completionReached(rec.ContentType, rec.ProgressPercentage, videoThreshold) {
		markRecordCompleted(rec, now)
		return true
	}
	if rec.ProgressPercentage > 0 {
		rec.Status = model.ProgressInProgress
	}
	return false
}

// applyCompletion 显式完成内容，记录尝试次数、成绩与学习时长
//
// 已完成的记录只累加尝试次数，成绩与时长保持首次完成时的值。
func applyCompletion(rec *model.ProgressRecord, score, maxScore *int, timeSpent int, now time.Time) bool {
	rec.LastAccessedAt = now
	rec.Attempts++
	if rec.IsCompleted() {
		return false
	}

	rec.TimeSpent += timeSpent
	if score != nil {
		s := *score
		rec.Score = &s
	}
	if maxScore != nil {
		m := *maxScore
		rec.MaxScore = &m
	}
	if rec.StartedAt == nil {
		started := now
		rec.StartedAt = &started
	}
	markRecordCompleted(rec, now)
	return true
}

func markRecordCompleted(rec *model.ProgressRecord, now time.Time) {
	completed := now
	rec.Status = model.ProgressCompleted
	rec.ProgressPercentage = 100
	rec.CompletedAt = &completed
}

func completionReached(t model.ContentType, percentage, videoThreshold int) bool {
	if t == model.ContentVideo && percentage >= videoThreshold {
		return true
	}
	return percentage >= 100
}

// roundPercentage round(100*completed/total)，总数为 0 时为 0。
// 与普通四舍五入不同，未全部完成时最多 99（如 199/200 得 99），
// 保证 100 只对应全部完成。
func roundPercentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	pct := int(math.Round(float64(completed) * 100 / float64(total)))
	if pct >= 100 {
		return 99
	}
	return pct
}

func validatePercentage(op string, percentage int) error {
	if percentage < 0 || percentage > 100 {
		return util.NewValidationError(op, "progress percentage must be between 0 and 100, got %d", percentage)
	}
	return nil
}

func validateTimeSpent(op string, minutes int) error {
	if minutes < 0 {
		return util.NewValidationError(op, "time spent must not be negative, got %d", minutes)
	}
	return nil
}

func validateScore(op string, score, maxScore *int) error {
	if score != nil && *score < 0 {
		return util.NewValidationError(op, "score must not be negative")
	}
	if maxScore != nil && *maxScore <= 0 {
		return util.NewValidationError(op, "max score must be positive")
	}
	if score != nil && maxScore != nil && *score > *maxScore {
		return util.NewValidationError(op, "score %d exceeds max score %d", *score, *maxScore)
	}
	return nil
}
