// Package runlock 保证同一个目录同时只有一次整理
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"

	"github.com/moyu-x/folder-sorter/pkg/logger"
)

var ErrLocked = errors.New("该目录正在被另一个进程整理")

type Lock struct {
	path string
	lock *flock.Flock
}

// PathFor 返回 root 对应的锁文件路径，锁文件放在系统临时目录，不会出现在被整理的目录里
func PathFor(root string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("folder-sorter-%016x.lock", xxhash.Sum64String(filepath.Clean(root))))
}

// Acquire 尝试获取 root 的锁，已被占用时立即返回 ErrLocked
func Acquire(root string) (*Lock, error) {
	path := PathFor(root)
	l := &Lock{path: path, lock: flock.New(path)}

	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("获取目录锁: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, root)
	}

	logger.Get().Debug().Msgf("已获取目录锁: %s", path)
	return l, nil
}

func (l *Lock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("释放目录锁: %w", err)
	}
	return nil
}
