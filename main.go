// @title 学习进度服务 API
// @version 1.0
// @description 报名、内容进度聚合与连续学习服务

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"learning_progress_backend/internal/app"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/pkg/logger"
	"log"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	watch := flag.Bool("watch-config", true, "监听配置文件变更并热更新")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	dir := *configDir
	if !*watch {
		dir = ""
	}

	application, err := app.NewApp(cfg, dir)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if *migrateOnly {
		logger.Log.Info("数据库迁移完成，退出程序")
		application.Stop()
		return
	}

	application.Run()
}
