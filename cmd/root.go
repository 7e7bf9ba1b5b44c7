package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moyu-x/folder-sorter/app"
	"github.com/moyu-x/folder-sorter/config"
	"github.com/moyu-x/folder-sorter/internal"
)

var (
	cfgFile   string
	sourceDir string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "folder-sorter [directory]",
	Short: "按扩展名把目录里的文件整理到分类文件夹",
	Long: `Folder Sorter 把一个目录（含子目录）里的所有文件按扩展名归类到根目录下的分类文件夹中。

主要功能:
- 按扩展名分为 images、documents、audio、video、archives、others 六类
- 文件名转写为 ASCII，空格替换为下划线
- 压缩包解压到 archives 下的同名目录，随后删除原压缩包
- 整理结束后删除空目录
- 支持顺序、嵌套并发、批量三种遍历策略`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runSort,
}

func runSort(cmd *cobra.Command, args []string) error {
	root := sourceDir
	if len(args) == 1 {
		root = args[0]
	}
	if root == "" {
		fmt.Println("请通过 -s 或参数指定要整理的目录，使用 --help 查看帮助")
		return nil
	}

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := app.InitLogger(cfg.Logging.Level, cfg.Logging.File, verbose, os.Stderr); err != nil {
		return err
	}

	opts := sortOptions(cfg, root)
	stats, err := app.RunSort(&opts)
	if stats != nil {
		fmt.Printf("整理用时 %.2f 秒\n", stats.Elapsed().Seconds())
		printStats(stats)
	}
	return err
}

func sortOptions(cfg *config.Config, root string) app.SortOptions {
	return app.SortOptions{
		Root:           root,
		Strategy:       cfg.Sort.Strategy,
		Workers:        cfg.Sort.Workers,
		Collision:      cfg.Sort.Collision,
		ArchiveFailure: cfg.Sort.ArchiveFailure,
		Verify:         cfg.Sort.Verify,
		JournalPath:    cfg.Journal.Path,
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "配置文件路径（默认查找 $HOME/.folder-sorter/config.yaml）")
	flags.BoolVarP(&verbose, "verbose", "v", false, "显示调试日志")
	flags.StringVarP(&sourceDir, "source", "s", "", "要整理的目录")
	flags.String("strategy", "nested", "遍历策略: sequential, nested 或 batch")
	flags.IntP("workers", "w", 0, "并发数，0 表示 CPU 核数的两倍")
	flags.String("collision", "fail", "目标文件已存在时: fail, rename 或 overwrite")
	flags.String("archive-failure", "delete", "压缩包解压失败时: delete 或 keep")
	flags.Bool("verify", false, "整理前后对比文件指纹，确认没有文件丢失")
	flags.String("journal", "", "整理记录数据库路径，只写 --journal 时使用 "+internal.DefaultJournalPath)
	flags.Lookup("journal").NoOptDefVal = internal.DefaultJournalPath
	flags.String("log-level", "info", "日志级别: trace, debug, info, warn, error")
	flags.String("log-file", "", "日志文件路径")
}
