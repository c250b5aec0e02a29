// Package watch 监听导出目录，文件写入稳定后按曲名分组自动上传。
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"StemShare/core/stem"
	"StemShare/logger"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle 文件在多长时间内没有变化才算导出完成
const DefaultSettle = 3 * time.Second

// Group 同一首曲目的一组分轨文件
type Group struct {
	Title string
	Paths []string
}

// HandlerFunc 处理一组稳定下来的文件
type HandlerFunc func(ctx context.Context, g Group) error

// Watcher 导出目录监听器
type Watcher struct {
	dir     string
	settle  time.Duration
	handle  HandlerFunc
	mu      sync.Mutex
	pending map[string]time.Time // 路径 -> 最后一次变化时间
	now     func() time.Time
}

// New 创建监听器，settle <= 0 时使用 DefaultSettle
func New(dir string, settle time.Duration, handle HandlerFunc) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		handle:  handle,
		pending: make(map[string]time.Time),
		now:     time.Now,
	}
}

// GroupFiles 按文件名推断出的曲名分组；组和组内路径都排序，结果稳定
func GroupFiles(paths []string) []Group {
	byTitle := make(map[string][]string)
	for _, p := range paths {
		title := stem.ExtractTitle(filepath.Base(p))
		byTitle[title] = append(byTitle[title], p)
	}
	groups := make([]Group, 0, len(byTitle))
	for title, ps := range byTitle {
		sort.Strings(ps)
		groups = append(groups, Group{Title: title, Paths: ps})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups
}

// touch 记录一次文件变化
func (w *Watcher) touch(path string) {
	w.mu.Lock()
	w.pending[path] = w.now()
	w.mu.Unlock()
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()
}

// due 取出已经稳定的文件。同一曲名下只要还有文件在变化，整组继续等待。
func (w *Watcher) due() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	busy := make(map[string]bool)
	for p, at := range w.pending {
		if now.Sub(at) < w.settle {
			busy[stem.ExtractTitle(filepath.Base(p))] = true
		}
	}

	var ready []string
	for p := range w.pending {
		if !busy[stem.ExtractTitle(filepath.Base(p))] {
			ready = append(ready, p)
			delete(w.pending, p)
		}
	}
	return ready
}

// relevant 只关心音频文件的创建、写入和改名进入
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	return stem.HasAudioExtension(ev.Name)
}

// Run 开始监听，直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("开始监听导出目录",
		logger.String("dir", w.dir),
		logger.Duration("settle", w.settle))

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				w.forget(ev.Name)
			case relevant(ev):
				w.touch(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听出错", logger.ErrorField(err))
		case <-ticker.C:
			ready := w.due()
			if len(ready) == 0 {
				continue
			}
			for _, g := range GroupFiles(ready) {
				if err := w.handle(ctx, g); err != nil {
					logger.Error("自动上传失败",
						logger.String("title", g.Title),
						logger.Int("files", len(g.Paths)),
						logger.ErrorField(err))
				}
			}
		}
	}
}
