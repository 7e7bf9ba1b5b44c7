package relocator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/moyu-x/folder-sorter/pkg/archive"
	"github.com/moyu-x/folder-sorter/pkg/classifier"
	"github.com/moyu-x/folder-sorter/pkg/logger"
	"github.com/moyu-x/folder-sorter/pkg/normalizer"
	"github.com/moyu-x/folder-sorter/pkg/progress"
)

// CollisionPolicy 目标文件已存在时的处理方式
type CollisionPolicy string

const (
	CollisionFail      CollisionPolicy = "fail"
	CollisionRename    CollisionPolicy = "rename"
	CollisionOverwrite CollisionPolicy = "overwrite"
)

// ArchiveFailurePolicy 解压失败后如何处理原压缩包
type ArchiveFailurePolicy string

const (
	ArchiveFailureDelete ArchiveFailurePolicy = "delete"
	ArchiveFailureKeep   ArchiveFailurePolicy = "keep"
)

var (
	ErrDestinationExists = errors.New("目标文件已存在")
	ErrUnknownPolicy     = errors.New("未知的处理策略")
)

// ParseCollisionPolicy 空字符串返回默认的 fail
func ParseCollisionPolicy(name string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(strings.ToLower(name)); p {
	case "":
		return CollisionFail, nil
	case CollisionFail, CollisionRename, CollisionOverwrite:
		return p, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
}

// ParseArchiveFailurePolicy 空字符串返回默认的 delete
func ParseArchiveFailurePolicy(name string) (ArchiveFailurePolicy, error) {
	switch p := ArchiveFailurePolicy(strings.ToLower(name)); p {
	case "":
		return ArchiveFailureDelete, nil
	case ArchiveFailureDelete, ArchiveFailureKeep:
		return p, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
}

type Options struct {
	Collision      CollisionPolicy
	ArchiveFailure ArchiveFailurePolicy
}

// Result 单个文件的处理结果
type Result = progress.Event

// Relocator 负责单个文件的解压或移动
type Relocator struct {
	fs         afero.Fs
	classifier *classifier.Classifier
	opts       Options
	expand     func(fs afero.Fs, src, dst string, opts archive.Options) archive.Outcome

	// 解压目录 -> *sync.Mutex
	expandLocks sync.Map
}

func New(fs afero.Fs, cls *classifier.Classifier, opts Options) *Relocator {
	if opts.Collision == "" {
		opts.Collision = CollisionFail
	}
	if opts.ArchiveFailure == "" {
		opts.ArchiveFailure = ArchiveFailureDelete
	}

	return &Relocator{
		fs:         fs,
		classifier: cls,
		opts:       opts,
		expand:     archive.Expand,
	}
}

// SplitName 拆分文件名为主干和扩展名
// 以点开头且只有一个点的名称（如 .bashrc）视为没有扩展名，结尾的点也不算扩展名
func SplitName(name string) (stem, suffix string) {
	i := strings.LastIndex(name, ".")
	if i > 0 && i < len(name)-1 {
		return name[:i], name[i:]
	}
	return name, ""
}

// Relocate 处理 root 下的一个文件
func (r *Relocator) Relocate(root, path string) Result {
	stem, suffix := SplitName(filepath.Base(path))
	category := r.classifier.Classify(strings.ToLower(suffix))

	if classifier.IsArchive(suffix) {
		return r.expandArchive(root, path, stem, r.classifier.ArchiveCategory())
	}
	return r.move(root, path, stem, suffix, category)
}

// ArchiveDir 返回压缩包解压目录所在的分类目录
func (r *Relocator) ArchiveDir(root string) string {
	return filepath.Join(root, string(r.classifier.ArchiveCategory()))
}

// IsExpansionDir 判断 dir 是否为压缩包解压出来的目录
func (r *Relocator) IsExpansionDir(root, dir string) bool {
	return filepath.Dir(filepath.Clean(dir)) == r.ArchiveDir(root)
}

// LockExpansion 锁住一个解压目录，解压和清理空目录不会同时进行
func (r *Relocator) LockExpansion(dir string) (unlock func()) {
	mu, _ := r.expandLocks.LoadOrStore(filepath.Clean(dir), &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// expandArchive 解压目录的冲突处理和普通文件一致：
// fail 时目录已存在则保留压缩包并报告失败，rename 时依次尝试 stem_1、stem_2 ...，
// overwrite 时解压到已有目录并覆盖同名条目
func (r *Relocator) expandArchive(root, path, stem string, category classifier.Category) progress.Event {
	categoryDir := filepath.Join(root, string(category))
	base := filepath.Join(categoryDir, stem)
	ev := progress.Event{
		Source:      path,
		Destination: base,
		Category:    string(category),
	}

	if err := r.fs.MkdirAll(categoryDir, 0755); err != nil {
		return keepArchive(ev, fmt.Errorf("创建类型目录: %w", err))
	}

	if r.opts.Collision == CollisionOverwrite {
		unlock := r.LockExpansion(base)
		defer unlock()

		existed, _ := afero.DirExists(r.fs, base)
		if err := r.fs.MkdirAll(base, 0755); err != nil {
			return keepArchive(ev, fmt.Errorf("创建解压目录: %w", err))
		}
		return r.expandInto(ev, existed)
	}

	candidate := base
	for i := 1; i <= maxRenameAttempts; i++ {
		ev.Destination = candidate
		done, result := r.tryExpandInto(ev, candidate)
		if done {
			return result
		}
		if r.opts.Collision == CollisionFail {
			return keepArchive(ev, fmt.Errorf("%w: %s", ErrDestinationExists, candidate))
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}

	return keepArchive(ev, fmt.Errorf("%w: 重命名次数超过 %d", ErrDestinationExists, maxRenameAttempts))
}

// tryExpandInto 独占创建 dst 后解压，dst 已存在时返回 false
func (r *Relocator) tryExpandInto(ev progress.Event, dst string) (bool, progress.Event) {
	unlock := r.LockExpansion(dst)
	defer unlock()

	if err := r.fs.Mkdir(dst, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, ev
		}
		return true, keepArchive(ev, fmt.Errorf("创建解压目录: %w", err))
	}
	return true, r.expandInto(ev, false)
}

// expandInto 解压到 ev.Destination，调用方持有该目录的锁
func (r *Relocator) expandInto(ev progress.Event, dstExisted bool) progress.Event {
	path, dst := ev.Source, ev.Destination

	out := r.expand(r.fs, path, dst, archive.Options{Overwrite: r.opts.Collision == CollisionOverwrite})
	if out.Expanded {
		ev.Action = progress.ActionExpanded
		if err := r.fs.Remove(path); err != nil {
			ev.Err = fmt.Errorf("删除压缩包: %w", err)
		} else {
			ev.ArchiveRemoved = true
		}
		logger.Get().Trace().Msgf("解压出 %d 个文件: %s", out.Files, dst)
		return ev
	}

	ev.Action = progress.ActionExpansionFailed
	ev.Err = out.Reason

	// 清理解压了一半的目录，之前已存在的目录不动
	if !dstExisted {
		if err := r.fs.RemoveAll(dst); err != nil {
			logger.Get().Debug().Err(err).Msgf("清理解压目录失败: %s", dst)
		}
	}

	if r.opts.ArchiveFailure == ArchiveFailureDelete {
		if err := r.fs.Remove(path); err != nil {
			ev.Err = errors.Join(ev.Err, fmt.Errorf("删除压缩包: %w", err))
		} else {
			ev.ArchiveRemoved = true
		}
	}
	return ev
}

// keepArchive 没有开始解压的失败，压缩包本身没问题，不受 ArchiveFailurePolicy 影响
func keepArchive(ev progress.Event, err error) progress.Event {
	ev.Action = progress.ActionExpansionFailed
	ev.Err = err
	return ev
}

func (r *Relocator) move(root, path, stem, suffix string, category classifier.Category) progress.Event {
	categoryDir := filepath.Join(root, string(category))
	dst := filepath.Join(categoryDir, normalizer.Normalize(stem)+suffix)

	ev := progress.Event{
		Source:      path,
		Destination: dst,
		Category:    string(category),
	}

	if filepath.Clean(path) == dst {
		ev.Action = progress.ActionUnchanged
		return ev
	}

	info, err := r.fs.Stat(path)
	if err != nil {
		return failedEvent(ev, fmt.Errorf("读取文件信息: %w", err))
	}
	ev.Size = info.Size()

	if err := r.fs.MkdirAll(categoryDir, 0755); err != nil {
		return failedEvent(ev, fmt.Errorf("创建类型目录: %w", err))
	}

	placed, err := r.place(path, dst)
	if err != nil {
		return failedEvent(ev, err)
	}

	ev.Destination = placed
	ev.Action = progress.ActionMoved
	return ev
}

func failedEvent(ev progress.Event, err error) progress.Event {
	ev.Action = progress.ActionFailed
	ev.Err = err
	return ev
}
