package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moyu-x/folder-sorter/app"
	"github.com/moyu-x/folder-sorter/config"
	"github.com/moyu-x/folder-sorter/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "以交互界面整理目录",
	Long: `打开终端交互界面，选择遍历策略并输入目录后开始整理，界面上显示实时进度。
日志只写入 --log-file 指定的文件。`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	// 界面占用终端，日志不输出到控制台
	if err := app.InitLogger(cfg.Logging.Level, cfg.Logging.File, verbose, nil); err != nil {
		return err
	}

	return tui.Run(&tui.Config{Sort: sortOptions(cfg, sourceDir)})
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
