package service

import (
	"context"
	"errors"
	"learning_progress_backend/internal/util"
	"learning_progress_backend/pkg/logger"
	"learning_progress_backend/pkg/monitoring"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// retryOnConflict 并发冲突时按指数退避重试，其他错误立即返回
func retryOnConflict(ctx context.Context, op string, maxTries int, fn func() error) error {
	if maxTries < 1 {
		maxTries = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if !util.IsConcurrency(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if attempt < maxTries {
			monitoring.AggregationRetries.Inc()
			logger.Log.Debug("retrying after concurrent modification",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(maxTries)))

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	if err != nil && util.IsConcurrency(err) {
		logger.Log.Warn("giving up after concurrent modifications",
			zap.String("op", op),
			zap.Int("attempts", attempt))
	}
	return err
}
