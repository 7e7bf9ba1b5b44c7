package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/moyu-x/folder-sorter/pkg/logger"
)

type FileWalker struct {
	fs afero.Fs
}

func NewFileWalker(fs afero.Fs) *FileWalker {
	return &FileWalker{fs: fs}
}

// Walk 遍历 root 下的所有文件，读取失败的路径跳过
func (w *FileWalker) Walk(root string, callback func(path string, info os.FileInfo) error) error {
	return afero.Walk(w.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() {
			return nil
		}

		return callback(path, info)
	})
}

func (w *FileWalker) CountFiles(dirs []string) (int, error) {
	logger.Get().Info().Msgf("开始统计文件数量，共 %d 个目录", len(dirs))

	count := 0
	for _, dir := range dirs {
		logger.Get().Debug().Msgf("扫描目录: %s", dir)
		err := w.Walk(dir, func(path string, info os.FileInfo) error {
			count++
			return nil
		})
		if err != nil {
			logger.Get().Error().Err(err).Msgf("扫描目录失败: %s", dir)
			return 0, err
		}
	}

	logger.Get().Info().Msgf("文件统计完成，共找到 %d 个文件", count)
	return count, nil
}

// Folder 发现的目录及其相对 root 的深度，root 的直接子目录深度为 1
type Folder struct {
	Path  string
	Depth int
}

// Inventory 一次完整扫描的结果
type Inventory struct {
	Files   []string
	Folders []Folder
}

// MaxDepth 返回最深的目录层级，没有目录时为 0
func (inv *Inventory) MaxDepth() int {
	max := 0
	for _, f := range inv.Folders {
		if f.Depth > max {
			max = f.Depth
		}
	}
	return max
}

// ByDepth 按层级分组，下标即深度
func (inv *Inventory) ByDepth() [][]string {
	levels := make([][]string, inv.MaxDepth()+1)
	for _, f := range inv.Folders {
		levels[f.Depth] = append(levels[f.Depth], f.Path)
	}
	return levels
}

// Discover 扫描 root 下全部文件和目录（不含 root 本身）
// skip 返回 true 的目录连同其内容一起跳过；读取目录失败时直接返回错误
func (w *FileWalker) Discover(root string, skip func(dir string) bool) (*Inventory, error) {
	inv := &Inventory{}
	if err := w.discover(root, 1, skip, inv); err != nil {
		return nil, err
	}

	sort.Strings(inv.Files)
	return inv, nil
}

func (w *FileWalker) discover(dir string, depth int, skip func(string) bool, inv *Inventory) error {
	entries, err := afero.ReadDir(w.fs, dir)
	if err != nil {
		return fmt.Errorf("读取目录 %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !entry.IsDir() {
			inv.Files = append(inv.Files, path)
			continue
		}
		if skip != nil && skip(path) {
			continue
		}

		inv.Folders = append(inv.Folders, Folder{Path: path, Depth: depth})
		if err := w.discover(path, depth+1, skip, inv); err != nil {
			return err
		}
	}
	return nil
}
