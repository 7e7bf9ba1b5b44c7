package relocator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/moyu-x/folder-sorter/pkg/logger"
)

// 自动重命名的最大尝试次数
const maxRenameAttempts = 10000

// place 按冲突策略把 src 移动到 dst，返回最终路径
func (r *Relocator) place(src, dst string) (string, error) {
	switch r.opts.Collision {
	case CollisionOverwrite:
		return dst, r.moveFile(src, dst)
	case CollisionRename:
		return r.moveFileWithRename(src, dst)
	default:
		if err := r.reserve(dst); err != nil {
			return "", err
		}
		return dst, r.moveOntoReserved(src, dst)
	}
}

// reserve 以 O_EXCL 创建占位文件，并发移动到同一目标时只有一个能成功
func (r *Relocator) reserve(dst string) error {
	f, err := r.fs.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
		}
		return fmt.Errorf("创建占位文件: %w", err)
	}
	return f.Close()
}

func (r *Relocator) moveOntoReserved(src, dst string) error {
	if err := r.moveFile(src, dst); err != nil {
		if rmErr := r.fs.Remove(dst); rmErr != nil {
			logger.Get().Debug().Err(rmErr).Msgf("删除占位文件失败: %s", dst)
		}
		return err
	}
	return nil
}

// moveFileWithRename 目标已存在时依次尝试 name_1.ext、name_2.ext ...
func (r *Relocator) moveFileWithRename(src, dst string) (string, error) {
	ext := filepath.Ext(dst)
	base := strings.TrimSuffix(dst, ext)

	candidate := dst
	for i := 1; i <= maxRenameAttempts; i++ {
		err := r.reserve(candidate)
		if err == nil {
			if candidate != dst {
				logger.Get().Debug().
					Str("original_path", dst).
					Str("new_path", candidate).
					Msg("文件名冲突，自动重命名")
			}
			return candidate, r.moveOntoReserved(src, candidate)
		}
		if !errors.Is(err, ErrDestinationExists) {
			return "", err
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}

	return "", fmt.Errorf("%w: 重命名次数超过 %d", ErrDestinationExists, maxRenameAttempts)
}

// moveFile 使用 rename 移动文件，跨设备时回退为复制后删除
func (r *Relocator) moveFile(src, dst string) error {
	err := r.fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("移动文件: %w", err)
	}

	logger.Get().Debug().
		Err(err).
		Str("source", src).
		Str("destination", dst).
		Msg("直接重命名失败，尝试复制后删除")

	if err := r.copyFile(src, dst); err != nil {
		return fmt.Errorf("复制文件: %w", err)
	}
	if err := r.fs.Remove(src); err != nil {
		return fmt.Errorf("删除原文件: %w", err)
	}
	return nil
}

func (r *Relocator) copyFile(src, dst string) error {
	sourceFile, err := r.fs.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	info, err := sourceFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := r.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	if err := destFile.Close(); err != nil {
		return err
	}

	return r.fs.Chmod(dst, info.Mode())
}
