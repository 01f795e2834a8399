package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/internal/config"
	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/logger"
)

// watchConfig 监听配置文件，变更后重新加载并替换全局配置。
// 监听所在目录，编辑器以 rename 方式保存时文件句柄会变化。
func watchConfig(ctx context.Context, path string, onReload func(*config.Config)) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("Config watch init failed", "error", err)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("Config watch add failed", "error", err)
		return
	}
	target := filepath.Clean(path)

	var debounce *time.Timer
	trigger := func() {
		newCfg, err := config.Load(path)
		if err != nil {
			logger.Warn("Config reload failed", "error", err)
			return
		}
		logger.Info("Config reloaded", "path", path)
		if onReload != nil {
			onReload(newCfg)
		}
	}
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, trigger)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watch error", "error", err)
		}
	}
}
