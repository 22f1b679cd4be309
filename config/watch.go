package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HotReloader 监听配置文件变更，重新加载并通过回调应用安全子集
// （日志级别、出站限速）。策略常数有意不做热更新：在途报价的语义
// 依赖放单时的参数，换常数必须重启。
type HotReloader struct {
	path     string
	cooldown time.Duration
	watcher  *fsnotify.Watcher
	apply    func(AppConfig)

	lastReload time.Time
}

// NewHotReloader 创建热更新器。cooldown 避免编辑器连续写入触发多次加载。
func NewHotReloader(path string, cooldown time.Duration, apply func(AppConfig)) (*HotReloader, error) {
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch config file: %w", err)
	}
	return &HotReloader{
		path:     path,
		cooldown: cooldown,
		watcher:  watcher,
		apply:    apply,
	}, nil
}

// Start 阻塞监听直到 ctx 取消；通常跑在独立 goroutine 里。
// 加载或校验失败时保留旧配置，静默跳过本次变更。
func (h *HotReloader) Start(ctx context.Context) error {
	defer h.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-h.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write != fsnotify.Write &&
				event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if time.Since(h.lastReload) < h.cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(h.path)
			if err != nil {
				continue
			}
			h.lastReload = time.Now()
			if h.apply != nil {
				h.apply(cfg)
			}
		case _, ok := <-h.watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
