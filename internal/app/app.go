package app

import (
	"context"
	"errors"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/internal/controller"
	"learning_progress_backend/internal/repository"
	"learning_progress_backend/internal/service"
	"learning_progress_backend/pkg/configwatcher"
	"learning_progress_backend/pkg/database"
	"learning_progress_backend/pkg/logger"
	"learning_progress_backend/pkg/monitoring"
	"learning_progress_backend/pkg/security"
	"learning_progress_backend/pkg/tracing"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.Limiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type services struct {
	awards      *service.AwardService
	streaks     *service.StreakService
	engine      *service.AggregationEngine
	progress    *service.ProgressService
	enrollments *service.EnrollmentService
	stats       *service.StatsService
}

type controllers struct {
	enrollment *controller.EnrollmentController
	progress   *controller.ProgressController
	streak     *controller.StreakController
	admin      *controller.AdminController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	a.Config = cfg
}

func (a *App) initServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	repos := service.NewRepositories(db)

	// 缓存未启用时传入 nil 接口，避免带类型的 nil
	var cache service.StreakStateCache
	if rdb != nil {
		cache = repository.NewStreakCache(rdb, time.Duration(cfg.Streak.CacheTTLMinutes)*time.Minute)
	}

	s := &services{}
	s.awards = service.NewAwardService(cfg.Awards)
	s.streaks = service.NewStreakService(db, repos, cache, s.awards, cfg.Streak.Location(), cfg.Progress.MaxConflictRetries)
	s.engine = service.NewAggregationEngine(db, repos, s.awards, s.streaks, cfg.Progress)
	s.progress = service.NewProgressService(s.engine)
	s.enrollments = service.NewEnrollmentService(s.engine)
	s.stats = service.NewStatsService(repos, s.streaks)

	a.RegisterConfigCallback(func(next *config.Config) {
		s.engine.SetPolicy(next.Progress)
		s.awards.SetConfig(next.Awards)
	})
	if a.limiter != nil {
		a.RegisterConfigCallback(func(next *config.Config) {
			a.limiter.SetLimit(next.RateLimit.MaxRequests, time.Duration(next.RateLimit.WindowMinutes)*time.Minute)
		})
	}

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		enrollment: controller.NewEnrollmentController(s.enrollments),
		progress:   controller.NewProgressController(s.progress),
		streak:     controller.NewStreakController(s.streaks, s.stats),
		admin:      controller.NewAdminController(s.enrollments, s.progress),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware(security.KeyByIP))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 组装应用，db/rdb 由调用方初始化
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		limiter: security.NewLimiter(
			cfg.RateLimit.MaxRequests,
			time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute,
		),
	}

	app.services = app.initServices(cfg, db, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app
}

func NewApp(cfg *config.Config, configDir string) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	app := New(cfg, db, rdb)
	app.ConfigDir = configDir

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("learning-progress", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	return app, nil
}

func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.limiter.Run(ctx)

	if a.ConfigDir != "" {
		w := configwatcher.New(filepath.Join(a.ConfigDir, "config.yaml"), a.applyConfig)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(shutdownCtx)
	logger.Log.Info("Server exiting")
}

// Close 释放追踪、缓存与数据库连接
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Error("Failed to close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = logger.Log.Sync()
}

// Stop 供 main 在非信号路径下清理
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Close(ctx)
}
