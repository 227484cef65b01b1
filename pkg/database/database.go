package database

import (
	"fmt"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/internal/model"
	"learning_progress_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dialector 按配置选择数据库驱动
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "learning.db"
		}
		return sqlite.Open(path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Open 建立连接，唯一键冲突统一翻译为 gorm.ErrDuplicatedKey
func Open(dialector gorm.Dialector, mode string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if mode == "debug" {
		level = gormlogger.Info
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(&cfg.Database)
	if err != nil {
		return nil, err
	}

	db, err := Open(dialector, cfg.Server.Mode)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Database connection established", zap.String("driver", dialector.Name()))

	// release 模式下默认不自动迁移，需要 --migrate 显式开启
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		logger.Log.Info("Database migration completed")
	}
	return db, nil
}

// Migrate 同步表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Phase{},
		&model.LearningModule{},
		&model.ContentItem{},
		&model.Enrollment{},
		&model.ProgressRecord{},
		&model.Achievement{},
	)
}
