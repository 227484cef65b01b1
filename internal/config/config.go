package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Awards    AwardsConfig    `mapstructure:"awards"`
	Streak    StreakConfig    `mapstructure:"streak"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"` // 强制执行数据库迁移
	MigrateOnly  bool `mapstructure:"-"` // 仅迁移模式（迁移后退出）
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"` // mysql / postgres / sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	Path      string `mapstructure:"path"` // sqlite 文件路径
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level      string `mapstructure:"level"` // debug/info/warn/error，为空按运行模式
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// 统计模块总内容数的策略
const (
	TotalCountLive     = "live"
	TotalCountSnapshot = "snapshot"
)

type ProgressConfig struct {
	VideoAutoCompleteThreshold int    `mapstructure:"video_auto_complete_threshold"`
	ImplicitCompletion         bool   `mapstructure:"implicit_completion"`
	TotalCountPolicy           string `mapstructure:"total_count_policy"`
	MaxConflictRetries         int    `mapstructure:"max_conflict_retries"`
}

type AwardsConfig struct {
	Video              int `mapstructure:"video"`
	Lab                int `mapstructure:"lab"`
	Game               int `mapstructure:"game"`
	Document           int `mapstructure:"document"`
	ModuleCompletionXP int `mapstructure:"module_completion_xp"`
	StreakMilestoneXP  int `mapstructure:"streak_milestone_xp"`
}

type StreakConfig struct {
	Timezone        string `mapstructure:"timezone"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
}

// Location 返回计算自然日边界所用的时区
func (s StreakConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Defaults 返回所有可选项的默认值，配置文件缺省时使用
func Defaults() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080", Mode: "debug"},
		Database:  DatabaseConfig{Driver: "mysql", Charset: "utf8mb4", ParseTime: true, SSLMode: "disable"},
		RateLimit: RateLimitConfig{MaxRequests: 600, WindowMinutes: 1},
		Log:       LogConfig{File: "logs/app.log", MaxSize: 100, MaxBackups: 5, MaxAge: 30},
		Progress: ProgressConfig{
			VideoAutoCompleteThreshold: 90,
			ImplicitCompletion:         true,
			TotalCountPolicy:           TotalCountLive,
			MaxConflictRetries:         5,
		},
		Awards: AwardsConfig{
			Video:              10,
			Lab:                50,
			Game:               30,
			Document:           5,
			ModuleCompletionXP: 100,
			StreakMilestoneXP:  20,
		},
		Streak: StreakConfig{CacheTTLMinutes: 10},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.charset", d.Database.Charset)
	v.SetDefault("database.parsetime", d.Database.ParseTime)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("rate_limit.max_requests", d.RateLimit.MaxRequests)
	v.SetDefault("rate_limit.window_minutes", d.RateLimit.WindowMinutes)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("progress.video_auto_complete_threshold", d.Progress.VideoAutoCompleteThreshold)
	v.SetDefault("progress.implicit_completion", d.Progress.ImplicitCompletion)
	v.SetDefault("progress.total_count_policy", d.Progress.TotalCountPolicy)
	v.SetDefault("progress.max_conflict_retries", d.Progress.MaxConflictRetries)
	v.SetDefault("awards.video", d.Awards.Video)
	v.SetDefault("awards.lab", d.Awards.Lab)
	v.SetDefault("awards.game", d.Awards.Game)
	v.SetDefault("awards.document", d.Awards.Document)
	v.SetDefault("awards.module_completion_xp", d.Awards.ModuleCompletionXP)
	v.SetDefault("awards.streak_milestone_xp", d.Awards.StreakMilestoneXP)
	v.SetDefault("streak.cache_ttl_minutes", d.Streak.CacheTTLMinutes)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LEARNING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Streak
	v.BindEnv("streak.timezone", "STREAK_TIMEZONE")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if t := c.Progress.VideoAutoCompleteThreshold; t < 1 || t > 100 {
		return fmt.Errorf("progress.video_auto_complete_threshold must be in [1,100], got %d", t)
	}

	switch c.Progress.TotalCountPolicy {
	case TotalCountLive, TotalCountSnapshot:
	default:
		return fmt.Errorf("unsupported progress.total_count_policy %q", c.Progress.TotalCountPolicy)
	}

	if c.Progress.MaxConflictRetries < 1 {
		return fmt.Errorf("progress.max_conflict_retries must be positive")
	}

	for name, pts := range map[string]int{
		"video":    c.Awards.Video,
		"lab":      c.Awards.Lab,
		"game":     c.Awards.Game,
		"document": c.Awards.Document,
	} {
		if pts < 0 {
			return fmt.Errorf("awards.%s cannot be negative", name)
		}
	}

	if c.Streak.Timezone != "" {
		if _, err := time.LoadLocation(c.Streak.Timezone); err != nil {
			return fmt.Errorf("invalid streak.timezone: %w", err)
		}
	}

	return nil
}
