package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moyu-x/folder-sorter/app"
	"github.com/moyu-x/folder-sorter/config"
	"github.com/moyu-x/folder-sorter/internal"
	"github.com/moyu-x/folder-sorter/pkg/progress"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "监听目录，有新文件时自动整理",
	Long: `先整理一次目录，之后持续监听目录变化。
目录中有文件新建或写入时，等待一段时间没有新的变化后再整理一次。
分类文件夹内的变化不会触发整理。按 Ctrl+C 退出。`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := sourceDir
	if len(args) == 1 {
		root = args[0]
	}
	if root == "" {
		return fmt.Errorf("请通过 -s 或参数指定要监听的目录")
	}

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := app.InitLogger(cfg.Logging.Level, cfg.Logging.File, verbose, os.Stderr); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunWatch(ctx, &app.WatchOptions{
		Sort:     sortOptions(cfg, root),
		Debounce: cfg.Watch.Debounce,
		OnRun: func(stats *progress.Stats, err error) {
			if stats == nil {
				return
			}
			fmt.Printf("[%s] 整理用时 %.2f 秒\n", time.Now().Format(time.DateTime), stats.Elapsed().Seconds())
			printStats(stats)
		},
	})
}

func init() {
	watchCmd.Flags().Duration("debounce", internal.DefaultDebounce, "最后一次变化后等待多久再整理")

	rootCmd.AddCommand(watchCmd)
}
