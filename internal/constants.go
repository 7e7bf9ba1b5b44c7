package internal

import "time"

const (
	// 整理记录数据库默认路径，为空表示不记录
	DefaultJournalPath = "~/.folder-sorter/journal.db"

	// 配置目录
	DefaultConfigDir = "$HOME/.folder-sorter"

	// 缓冲区大小
	DefaultBufferSize = 1000

	// 监听模式下，最后一次变化后等待多久再整理
	DefaultDebounce = 2 * time.Second

	// 整理记录批量写入的条数
	JournalBatchSize = 200
)
