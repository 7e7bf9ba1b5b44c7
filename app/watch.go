package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/moyu-x/folder-sorter/pkg/classifier"
	"github.com/moyu-x/folder-sorter/pkg/logger"
	"github.com/moyu-x/folder-sorter/pkg/progress"
	"github.com/moyu-x/folder-sorter/pkg/watcher"
)

type WatchOptions struct {
	Sort     SortOptions
	Debounce time.Duration
	// OnRun 每次整理结束后调用
	OnRun func(stats *progress.Stats, err error)
}

// RunWatch 先整理一次，之后目录有变化就重新整理，直到 ctx 取消
// 正在进行的整理不会被打断
func RunWatch(ctx context.Context, opts *WatchOptions) error {
	root, err := filepath.Abs(opts.Sort.Root)
	if err != nil {
		return fmt.Errorf("解析目录路径: %w", err)
	}
	sortOpts := opts.Sort
	sortOpts.Root = root

	run := func() {
		stats, err := RunSort(&sortOpts)
		if err != nil {
			logger.Get().Error().Err(err).Msg("整理失败")
		}
		if opts.OnRun != nil {
			opts.OnRun(stats, err)
		}
	}

	run()
	if err := ctx.Err(); err != nil {
		return nil
	}

	w, err := watcher.New(watcher.Options{
		Debounce: opts.Debounce,
		Ignore:   categoryIgnorer(root),
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		return err
	}

	logger.Get().Info().Msgf("开始监听目录: %s", root)
	err = w.Run(ctx, run)
	logger.Get().Info().Msg("停止监听")
	return err
}

// categoryIgnorer 分类目录里的变化由整理本身产生，不需要再触发
func categoryIgnorer(root string) func(string) bool {
	prefixes := make([]string, 0, len(classifier.Categories()))
	for _, c := range classifier.Categories() {
		prefixes = append(prefixes, filepath.Join(root, string(c)))
	}

	return func(path string) bool {
		for _, p := range prefixes {
			if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}
}
