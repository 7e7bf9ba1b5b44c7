package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/moyu-x/folder-sorter/pkg/database"
	"github.com/moyu-x/folder-sorter/pkg/progress"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

func printStats(stats *progress.Stats) {
	t := newTable()
	t.AppendHeader(table.Row{"项目", "数量"})
	t.AppendRow(table.Row{"已处理文件", humanize.Comma(int64(stats.Processed()))})
	t.AppendRow(table.Row{"已移动", fmt.Sprintf("%d (%s)", stats.Moved, humanize.Bytes(uint64(stats.BytesMoved)))})
	t.AppendRow(table.Row{"位置不变", stats.Unchanged})
	t.AppendRow(table.Row{"已解压", stats.Expanded})
	t.AppendRow(table.Row{"解压失败", stats.ExpansionFailed})
	t.AppendRow(table.Row{"删除压缩包", stats.ArchivesRemoved})
	t.AppendRow(table.Row{"失败", stats.Failed})
	t.AppendRow(table.Row{"删除空目录", stats.Pruned})
	if stats.Lost > 0 {
		t.AppendRow(table.Row{"丢失文件", stats.Lost})
	}

	if len(stats.PerCategory) > 0 {
		t.AppendSeparator()
		categories := make([]string, 0, len(stats.PerCategory))
		for c := range stats.PerCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			t.AppendRow(table.Row{c, stats.PerCategory[c]})
		}
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()

	if len(stats.UnknownExtensions) > 0 {
		fmt.Printf("未识别的扩展名: %s\n", strings.Join(stats.UnknownExtensions, ", "))
	}
}

func printRuns(runs []database.Run) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "目录", "策略", "记录数", "开始时间", "耗时"})
	for _, r := range runs {
		elapsed := "未完成"
		if r.FinishedAt != nil {
			elapsed = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			r.ID[:8],
			r.Root,
			r.Strategy,
			r.Records,
			r.StartedAt.Local().Format(time.DateTime),
			elapsed,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

func printRecords(records []database.Relocation) {
	t := newTable()
	t.AppendHeader(table.Row{"动作", "源路径", "目标路径", "分类", "大小", "错误"})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.Action,
			r.Source,
			r.Destination,
			r.Category,
			humanize.Bytes(uint64(r.Size)),
			r.Error,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
}
