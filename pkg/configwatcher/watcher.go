package configwatcher

import (
	"context"
	"learning_progress_backend/internal/config"
	"learning_progress_backend/pkg/logger"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader 收到通过校验的新配置
type Reloader func(cfg *config.Config)

// Watcher 监听配置文件变更并防抖重载
type Watcher struct {
	path     string
	debounce time.Duration
	load     func(dir string) (*config.Config, error)
	reload   Reloader
}

func New(configFile string, reload Reloader) *Watcher {
	return &Watcher{
		path:     configFile,
		debounce: time.Second,
		load:     config.LoadConfig,
		reload:   reload,
	}
}

// Run 阻塞直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	// 编辑器常用 rename 方式保存，监听目录而非文件
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	var fire <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			newCfg, err := w.load(filepath.Dir(absPath))
			if err != nil {
				logger.Log.Error("Failed to reload config, keeping previous", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("file", absPath))
			w.reload(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
