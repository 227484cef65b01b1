// Package testutil 测试用的内存数据库、种子数据与可控时钟
package testutil

import (
	"fmt"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/pkg/database"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB 每个测试一个独立的 sqlite 内存库，单连接保证事务串行
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func SeedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	id := uuid.NewString()[:8]
	user := &model.User{
		Name:  "learner-" + id,
		Email: id + "@example.com",
		Role:  model.Student,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// SeedModule 创建模块及按顺序排列的内容项
func SeedModule(t *testing.T, db *gorm.DB, types ...model.ContentType) (*model.LearningModule, []model.ContentItem) {
	t.Helper()
	module := &model.LearningModule{Title: "module-" + uuid.NewString()[:8], IsActive: true}
	require.NoError(t, db.Create(module).Error)

	items := make([]model.ContentItem, 0, len(types))
	for i, typ := range types {
		items = append(items, model.ContentItem{
			ModuleID: module.ID,
			Section:  "main",
			Order:    i + 1,
			Type:     typ,
			Title:    fmt.Sprintf("%s %d", typ, i+1),
			Duration: 10,
			IsActive: true,
		})
	}
	if len(items) > 0 {
		require.NoError(t, db.Create(&items).Error)
	}
	return module, items
}

// AddContent 向已有模块追加内容项
func AddContent(t *testing.T, db *gorm.DB, moduleID uint, typ model.ContentType, order int) model.ContentItem {
	t.Helper()
	item := model.ContentItem{
		ModuleID: moduleID,
		Section:  "main",
		Order:    order,
		Type:     typ,
		IsActive: true,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

// Clock 可手动推进的时钟
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
