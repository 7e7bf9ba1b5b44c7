package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moyu-x/folder-sorter/app"
	"github.com/moyu-x/folder-sorter/config"
	"github.com/moyu-x/folder-sorter/internal"
	"github.com/moyu-x/folder-sorter/pkg/database"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查看整理记录",
	Long: `列出最近的整理记录。使用 --run 指定记录 ID（可以只写前几位）查看每个文件的处理结果。
整理时需要通过 --journal 开启记录。`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := app.InitLogger(cfg.Logging.Level, cfg.Logging.File, verbose, os.Stderr); err != nil {
		return err
	}

	path := cfg.Journal.Path
	if path == "" {
		path = internal.DefaultJournalPath
	}

	journal, err := database.Open(path)
	if err != nil {
		return err
	}
	defer journal.Close()

	runID, _ := cmd.Flags().GetString("run")
	if runID != "" {
		records, err := journal.Records(runID)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("没有找到整理记录: %s\n", runID)
			return nil
		}
		printRecords(records)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := journal.Runs(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("还没有整理记录")
		return nil
	}
	printRuns(runs)
	return nil
}

func init() {
	historyCmd.Flags().String("run", "", "查看指定整理的详细记录")
	historyCmd.Flags().IntP("limit", "n", 20, "最多显示多少次整理，0 表示全部")

	rootCmd.AddCommand(historyCmd)
}
