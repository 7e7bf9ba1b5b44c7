// Package watcher 监听目录变化，变化停止一段时间后触发回调
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moyu-x/folder-sorter/internal"
	"github.com/moyu-x/folder-sorter/pkg/logger"
)

type Options struct {
	// Debounce 最后一次变化后等待的时间
	Debounce time.Duration
	// Ignore 返回 true 的路径不监听也不触发
	Ignore func(path string) bool
}

func (o *Options) setDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = internal.DefaultDebounce
	}
	if o.Ignore == nil {
		o.Ignore = func(string) bool { return false }
	}
}

type Watcher struct {
	fsw  *fsnotify.Watcher
	opts Options
}

func New(opts Options) (*Watcher, error) {
	opts.setDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监听失败: %w", err)
	}

	return &Watcher{fsw: fsw, opts: opts}, nil
}

// Watch 递归监听目录
func (w *Watcher) Watch(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Get().Warn().Err(err).Msgf("无法访问: %s", path)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.opts.Ignore(path) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("监听目录 %s: %w", path, err)
		}
		logger.Get().Trace().Msgf("已监听: %s", path)
		return nil
	})
}

// Run 阻塞直到 ctx 取消，onChange 在当前 goroutine 中执行
// onChange 执行期间产生的变化会在它返回后重新计时
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	log := logger.Unit("watcher")

	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			log.Debug().Msgf("检测到变化: %s %s", event.Op, event.Name)
			timer.Reset(w.opts.Debounce)
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("文件监听出错")

		case <-fire:
			fire = nil
			onChange()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if w.opts.Ignore(event.Name) {
		return false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	// 新建的子目录也要监听
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.Watch(event.Name); err != nil {
				logger.Get().Warn().Err(err).Msgf("监听新目录失败: %s", event.Name)
			}
		}
	}
	return true
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
