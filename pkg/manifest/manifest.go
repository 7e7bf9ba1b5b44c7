// Package manifest 记录目录树中文件内容的哈希，用来确认整理前后没有丢文件
package manifest

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/moyu-x/folder-sorter/pkg/hasher"
	"github.com/moyu-x/folder-sorter/pkg/scanner"
)

// Manifest 内容哈希到文件数量的映射
type Manifest map[uint64]int

// Total 文件总数
func (m Manifest) Total() int {
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}

// Snapshot 计算 root 下所有文件的哈希，skip 返回 true 的文件不计入
func Snapshot(fs afero.Fs, root string, skip func(path string, info os.FileInfo) bool, workers int) (Manifest, error) {
	pool := hasher.NewHashPool(fs, workers)
	if err := pool.Start(); err != nil {
		return nil, err
	}

	type collected struct {
		m   Manifest
		err error
	}
	done := make(chan collected, 1)
	go func() {
		c := collected{m: Manifest{}}
		for result := range pool.Results() {
			if result.Error != nil {
				c.err = errors.Join(c.err, fmt.Errorf("%s: %w", result.Path, result.Error))
				continue
			}
			c.m[result.Hash]++
		}
		done <- c
	}()

	walkErr := scanner.NewFileWalker(fs).Walk(root, func(path string, info os.FileInfo) error {
		if skip != nil && skip(path, info) {
			return nil
		}
		pool.AddTask(hasher.HashTask{Path: path, Size: info.Size()})
		return nil
	})
	pool.Close()

	c := <-done
	if walkErr != nil {
		return nil, fmt.Errorf("扫描目录: %w", walkErr)
	}
	if c.err != nil {
		return nil, fmt.Errorf("计算哈希: %w", c.err)
	}
	return c.m, nil
}

// Missing 返回 before 中有而 after 中缺少的文件数
func Missing(before, after Manifest) int {
	lost := 0
	for h, n := range before {
		if diff := n - after[h]; diff > 0 {
			lost += diff
		}
	}
	return lost
}
