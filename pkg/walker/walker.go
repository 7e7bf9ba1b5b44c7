// Package walker 遍历目录树，把每个文件交给 relocator 处理并清理空目录
package walker

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/moyu-x/folder-sorter/pkg/logger"
	"github.com/moyu-x/folder-sorter/pkg/progress"
	"github.com/moyu-x/folder-sorter/pkg/relocator"
	"github.com/moyu-x/folder-sorter/pkg/scanner"
)

// Strategy 并发模型，一次运行只使用一种
type Strategy string

const (
	// Sequential 单线程深度优先
	Sequential Strategy = "sequential"
	// Nested 每个目录并发处理子目录，文件交给共享的协程池
	Nested Strategy = "nested"
	// Batch 先扫描全部文件，统一处理后再按层级从深到浅清理目录
	Batch Strategy = "batch"
)

var ErrUnknownStrategy = errors.New("未知的遍历策略")

// Strategies 返回全部可用策略
func Strategies() []Strategy {
	return []Strategy{Sequential, Nested, Batch}
}

// ParseStrategy 解析策略名称，空字符串返回默认的 Nested
func ParseStrategy(name string) (Strategy, error) {
	if name == "" {
		return Nested, nil
	}
	for _, s := range Strategies() {
		if strings.EqualFold(name, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
}

// DefaultWorkers 默认协程池大小
func DefaultWorkers() int {
	return runtime.NumCPU() * 2
}

type Options struct {
	Strategy Strategy
	Workers  int
}

type Walker struct {
	fs       afero.Fs
	rel      *relocator.Relocator
	listener progress.Listener
	opts     Options
}

func New(fs afero.Fs, rel *relocator.Relocator, listener progress.Listener, opts Options) *Walker {
	if opts.Strategy == "" {
		opts.Strategy = Nested
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	if listener == nil {
		listener = progress.Multi()
	}

	return &Walker{
		fs:       fs,
		rel:      rel,
		listener: listener,
		opts:     opts,
	}
}

// Walk 整理 root，root 本身不会被移动或删除
// 读取目录失败会中止遍历，单个文件的失败只通过事件报告
func (w *Walker) Walk(root string) error {
	root = filepath.Clean(root)
	start := time.Now()

	logger.Get().Info().
		Str("strategy", string(w.opts.Strategy)).
		Int("workers", w.opts.Workers).
		Msgf("开始整理目录: %s", root)

	var err error
	switch w.opts.Strategy {
	case Sequential:
		err = w.sequentialFolder(root, root)
	case Nested:
		err = w.walkNested(root)
	case Batch:
		err = w.walkBatch(root)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, w.opts.Strategy)
	}

	if err == nil {
		err = w.pruneExpansionDirs(root)
	}
	if err != nil {
		logger.Get().Error().Err(err).Msgf("整理目录失败: %s", root)
		return err
	}

	logger.Get().Info().Msgf("目录整理完成: %s，耗时 %s", root, time.Since(start).Round(time.Millisecond))
	return nil
}

func (w *Walker) sequentialFolder(root, dir string) error {
	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		return fmt.Errorf("读取目录 %s: %w", dir, err)
	}

	unit := logger.Unit(w.unitName(root, dir))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !entry.IsDir() {
			w.relocate(unit, root, path)
			continue
		}
		if w.rel.IsExpansionDir(root, path) {
			continue
		}
		if err := w.sequentialFolder(root, path); err != nil {
			return err
		}
	}

	return w.pruneChildren(root, dir)
}

func (w *Walker) walkNested(root string) error {
	pool, err := ants.NewPool(w.opts.Workers)
	if err != nil {
		return fmt.Errorf("创建协程池: %w", err)
	}
	defer pool.Release()

	return w.nestedFolder(pool, root, root)
}

// nestedFolder 子目录各自一个 goroutine，文件提交到协程池
// 两者都结束后才清理本目录下的空子目录，所以 root 的子目录最后清理
func (w *Walker) nestedFolder(pool *ants.Pool, root, dir string) error {
	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		return fmt.Errorf("读取目录 %s: %w", dir, err)
	}

	unit := logger.Unit(w.unitName(root, dir))
	unit.Debug().Msgf("处理目录，共 %d 项", len(entries))

	var (
		g     errgroup.Group
		files sync.WaitGroup
	)
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if w.rel.IsExpansionDir(root, path) {
				continue
			}
			g.Go(func() error {
				return w.nestedFolder(pool, root, path)
			})
			continue
		}

		w.submit(pool, &files, func() { w.relocate(unit, root, path) })
	}

	err = g.Wait()
	files.Wait()
	if err != nil {
		return err
	}

	return w.pruneChildren(root, dir)
}

func (w *Walker) walkBatch(root string) error {
	inv, err := scanner.NewFileWalker(w.fs).Discover(root, func(dir string) bool {
		return w.rel.IsExpansionDir(root, dir)
	})
	if err != nil {
		return err
	}

	logger.Get().Info().Msgf("扫描完成，共 %d 个文件，%d 个目录", len(inv.Files), len(inv.Folders))

	pool, err := ants.NewPool(w.opts.Workers)
	if err != nil {
		return fmt.Errorf("创建协程池: %w", err)
	}
	defer pool.Release()

	var files sync.WaitGroup
	for _, path := range inv.Files {
		w.submit(pool, &files, func() {
			w.relocate(logger.Unit(w.unitName(root, filepath.Dir(path))), root, path)
		})
	}
	files.Wait()

	levels := inv.ByDepth()
	for depth := len(levels) - 1; depth >= 1; depth-- {
		var level sync.WaitGroup
		for _, dir := range levels[depth] {
			w.submit(pool, &level, func() { w.pruneIfEmpty(root, dir) })
		}
		level.Wait()
	}

	// 解压失败后可能留下空的类型目录
	return w.pruneChildren(root, root)
}

// submit 提交任务到协程池，池已关闭时在当前 goroutine 执行
func (w *Walker) submit(pool *ants.Pool, wg *sync.WaitGroup, task func()) {
	wg.Add(1)
	err := pool.Submit(func() {
		defer wg.Done()
		task()
	})
	if err != nil {
		logger.Get().Debug().Err(err).Msg("提交任务失败，直接执行")
		task()
		wg.Done()
	}
}

func (w *Walker) relocate(unit zerolog.Logger, root, path string) {
	ev := w.rel.Relocate(root, path)
	report(unit, ev)
	w.listener.OnEvent(ev)
}

func report(unit zerolog.Logger, ev progress.Event) {
	switch ev.Action {
	case progress.ActionMoved:
		unit.Debug().Msgf("已移动: %s -> %s", ev.Source, ev.Destination)
	case progress.ActionUnchanged:
		unit.Trace().Msgf("位置不变: %s", ev.Source)
	case progress.ActionExpanded:
		if ev.Err != nil {
			unit.Warn().Err(ev.Err).Msgf("已解压，但原压缩包未删除: %s", ev.Source)
			return
		}
		unit.Debug().Msgf("已解压: %s -> %s", ev.Source, ev.Destination)
	case progress.ActionExpansionFailed:
		unit.Warn().Err(ev.Err).Bool("removed", ev.ArchiveRemoved).Msgf("解压失败: %s", ev.Source)
	case progress.ActionFailed:
		unit.Error().Err(ev.Err).Msgf("处理文件失败: %s", ev.Source)
	case progress.ActionPruned:
		unit.Debug().Msgf("已删除空目录: %s", ev.Source)
	}
}

// pruneExpansionDirs 解压目录不会被遍历，最后检查一遍，删除其中空的
func (w *Walker) pruneExpansionDirs(root string) error {
	dir := w.rel.ArchiveDir(root)
	if ok, _ := afero.DirExists(w.fs, dir); !ok {
		return nil
	}
	if err := w.pruneChildren(root, dir); err != nil {
		return err
	}
	w.pruneIfEmpty(root, dir)
	return nil
}

func (w *Walker) pruneChildren(root, dir string) error {
	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		return fmt.Errorf("读取目录 %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			w.pruneIfEmpty(root, filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}

// pruneIfEmpty 删除空目录，删除失败（比如又被写入了文件）时忽略
func (w *Walker) pruneIfEmpty(root, dir string) {
	if dir == root {
		return
	}
	if w.rel.IsExpansionDir(root, dir) {
		unlock := w.rel.LockExpansion(dir)
		defer unlock()
	}

	empty, err := afero.IsEmpty(w.fs, dir)
	if err != nil || !empty {
		return
	}

	unit := logger.Unit(w.unitName(root, filepath.Dir(dir)))
	if err := w.fs.Remove(dir); err != nil {
		unit.Debug().Err(err).Msgf("删除空目录失败: %s", dir)
		return
	}

	ev := progress.Event{Action: progress.ActionPruned, Source: dir}
	report(unit, ev)
	w.listener.OnEvent(ev)
}

func (w *Walker) unitName(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return "root"
	}
	return filepath.ToSlash(rel)
}
