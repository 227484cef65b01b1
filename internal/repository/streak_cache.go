package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"learning_progress_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

const streakCacheKeyPrefix = "learning:streak:"

// 仅当缓存中没有更新版本时才写入
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, decoded = pcall(cjson.decode, cur)
  if ok and tonumber(decoded['version']) and tonumber(decoded['version']) > tonumber(ARGV[2]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// StreakCache 用户连续学习状态缓存，条目带 StreakVersion，旧版本不会覆盖新版本
type StreakCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewStreakCache(rdb *redis.Client, ttl time.Duration) *StreakCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StreakCache{Redis: rdb, TTL: ttl}
}

func streakCacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", streakCacheKeyPrefix, userID)
}

// Get 缓存未命中时返回 nil, nil
func (c *StreakCache) Get(ctx context.Context, userID uint) (*model.StreakState, error) {
	val, err := c.Redis.Get(ctx, streakCacheKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state model.StreakState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		// 脏数据直接丢弃
		c.Redis.Del(ctx, streakCacheKey(userID))
		return nil, nil
	}
	return &state, nil
}

// Set 写入状态，缓存中已有更高版本时忽略
func (c *StreakCache) Set(ctx context.Context, userID uint, state model.StreakState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	err = setIfNewer.Run(ctx, c.Redis, []string{streakCacheKey(userID)}, data, state.Version, c.TTL.Milliseconds()).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (c *StreakCache) Delete(ctx context.Context, userID uint) error {
	return c.Redis.Del(ctx, streakCacheKey(userID)).Err()
}
