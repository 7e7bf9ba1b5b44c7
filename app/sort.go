package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/moyu-x/folder-sorter/internal/runlock"
	"github.com/moyu-x/folder-sorter/pkg/classifier"
	"github.com/moyu-x/folder-sorter/pkg/database"
	"github.com/moyu-x/folder-sorter/pkg/logger"
	"github.com/moyu-x/folder-sorter/pkg/manifest"
	"github.com/moyu-x/folder-sorter/pkg/progress"
	"github.com/moyu-x/folder-sorter/pkg/relocator"
	"github.com/moyu-x/folder-sorter/pkg/walker"
)

var (
	ErrNotDirectory = errors.New("不是目录")
	ErrFilesLost    = errors.New("整理后有文件丢失")
)

type SortOptions struct {
	Root           string
	Strategy       string
	Workers        int
	Collision      string
	ArchiveFailure string
	Verify         bool
	JournalPath    string

	// Listener 额外的事件接收者，比如界面上的进度条
	Listener progress.Listener
	// Fs 为空时使用真实文件系统
	Fs afero.Fs
}

// RunSort 整理一个目录，返回统计结果
// 整理中途出错时也会返回已有的统计
func RunSort(opts *SortOptions) (*progress.Stats, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("解析目录路径: %w", err)
	}

	isDir, err := afero.IsDir(fs, root)
	if err != nil {
		return nil, fmt.Errorf("无法访问目录 %s: %w", root, err)
	}
	if !isDir {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	strategy, err := walker.ParseStrategy(opts.Strategy)
	if err != nil {
		return nil, err
	}
	collision, err := relocator.ParseCollisionPolicy(opts.Collision)
	if err != nil {
		return nil, err
	}
	archiveFailure, err := relocator.ParseArchiveFailurePolicy(opts.ArchiveFailure)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = walker.DefaultWorkers()
	}

	// 只有真实文件系统需要跨进程加锁
	if _, ok := fs.(*afero.OsFs); ok {
		lock, err := runlock.Acquire(root)
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	logger.Get().Info().Msgf("整理目录: %s", root)
	logger.Get().Info().Msgf("策略: %s，并发数: %d，冲突处理: %s，解压失败: %s", strategy, workers, collision, archiveFailure)

	var before manifest.Manifest
	if opts.Verify {
		logger.Get().Info().Msg("计算整理前的文件指纹")
		before, err = manifest.Snapshot(fs, root, skipArchives, workers)
		if err != nil {
			return nil, err
		}
	}

	tracker := progress.NewTracker()
	listeners := []progress.Listener{tracker}

	var journal *database.Journal
	if opts.JournalPath != "" {
		journal, err = database.Open(opts.JournalPath)
		if err != nil {
			return nil, err
		}
		defer journal.Close()

		runID, err := journal.BeginRun(root, string(strategy))
		if err != nil {
			return nil, err
		}
		logger.Get().Info().Msgf("整理记录 ID: %s", runID)
		listeners = append(listeners, journal)
	}
	if opts.Listener != nil {
		listeners = append(listeners, opts.Listener)
	}

	extensions := classifier.NewExtensionTracker()
	rel := relocator.New(fs, classifier.NewDefault(extensions), relocator.Options{
		Collision:      collision,
		ArchiveFailure: archiveFailure,
	})
	w := walker.New(fs, rel, progress.Multi(listeners...), walker.Options{
		Strategy: strategy,
		Workers:  workers,
	})

	walkErr := w.Walk(root)

	if journal != nil {
		if err := journal.FinishRun(); err != nil {
			logger.Get().Warn().Err(err).Msg("保存整理记录失败")
		}
	}

	stats := tracker.Snapshot()
	stats.KnownExtensions = extensions.Known()
	stats.UnknownExtensions = extensions.Unknown()

	if walkErr != nil {
		stats.EndTime = time.Now()
		return &stats, walkErr
	}

	if opts.Verify {
		after, err := manifest.Snapshot(fs, root, nil, workers)
		if err != nil {
			stats.EndTime = time.Now()
			return &stats, err
		}
		stats.Lost = manifest.Missing(before, after)
	}

	stats.EndTime = time.Now()
	logger.Get().Info().
		Int("moved", stats.Moved).
		Int("expanded", stats.Expanded).
		Int("failed", stats.Failed).
		Int("pruned", stats.Pruned).
		Msgf("整理完成，耗时 %.2f 秒", stats.Elapsed().Seconds())

	if stats.Lost > 0 {
		logger.Get().Error().Int("lost", stats.Lost).Msg("校验失败，有文件在整理后找不到")
		return &stats, fmt.Errorf("%w: %d 个", ErrFilesLost, stats.Lost)
	}
	return &stats, nil
}

// 压缩包会被解压后删除，不参与前后对比
func skipArchives(_ string, info os.FileInfo) bool {
	_, suffix := relocator.SplitName(info.Name())
	return classifier.IsArchive(suffix)
}
