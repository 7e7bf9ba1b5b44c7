package app

import (
	"io"

	"github.com/moyu-x/folder-sorter/pkg/logger"
)

// InitLogger 初始化日志，verbose 时强制 debug 级别
// console 为 nil 时只写日志文件，供终端界面使用
func InitLogger(level, file string, verbose bool, console io.Writer) error {
	if verbose {
		level = "debug"
	}
	return logger.InitWithWriter(level, file, console)
}
