package progress

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats 一次整理的统计结果
type Stats struct {
	Moved           int
	Unchanged       int
	Expanded        int
	ExpansionFailed int
	ArchivesRemoved int
	Failed          int
	Pruned          int
	BytesMoved      int64
	PerCategory     map[string]int

	KnownExtensions   []string
	UnknownExtensions []string
	// Lost 校验模式下整理后找不到的文件数
	Lost int

	StartTime time.Time
	EndTime   time.Time
}

// Processed 已处理的文件数（不含目录）
func (s *Stats) Processed() int {
	return s.Moved + s.Unchanged + s.Expanded + s.ExpansionFailed + s.Failed
}

// Elapsed 总耗时
func (s *Stats) Elapsed() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Tracker 汇总事件为统计数据
type Tracker struct {
	stats Stats
	mu    sync.Mutex
}

func NewTracker() *Tracker {
	return &Tracker{
		stats: Stats{
			PerCategory: make(map[string]int),
			StartTime:   time.Now(),
		},
	}
}

func (t *Tracker) OnEvent(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Action {
	case ActionMoved:
		t.stats.Moved++
		t.stats.BytesMoved += e.Size
		t.stats.PerCategory[e.Category]++
	case ActionUnchanged:
		t.stats.Unchanged++
		t.stats.PerCategory[e.Category]++
	case ActionExpanded:
		t.stats.Expanded++
		t.stats.PerCategory[e.Category]++
	case ActionExpansionFailed:
		t.stats.ExpansionFailed++
	case ActionFailed:
		t.stats.Failed++
	case ActionPruned:
		t.stats.Pruned++
	}

	if e.ArchiveRemoved {
		t.stats.ArchivesRemoved++
	}
}

// Snapshot 返回当前统计的副本
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stats
	s.PerCategory = make(map[string]int, len(t.stats.PerCategory))
	for k, v := range t.stats.PerCategory {
		s.PerCategory[k] = v
	}
	return s
}

// Processed 当前已处理的文件数
func (t *Tracker) Processed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats.Processed()
}

func (s *Stats) String() string {
	var buf bytes.Buffer

	buf.WriteString("========== 整理统计 ==========\n")
	buf.WriteString(fmt.Sprintf("已处理文件: %s\n", humanize.Comma(int64(s.Processed()))))
	buf.WriteString(fmt.Sprintf("已移动: %d (%s)\n", s.Moved, humanize.Bytes(uint64(s.BytesMoved))))
	buf.WriteString(fmt.Sprintf("位置不变: %d\n", s.Unchanged))
	buf.WriteString(fmt.Sprintf("已解压: %d\n", s.Expanded))
	buf.WriteString(fmt.Sprintf("解压失败: %d\n", s.ExpansionFailed))
	buf.WriteString(fmt.Sprintf("删除压缩包: %d\n", s.ArchivesRemoved))
	buf.WriteString(fmt.Sprintf("失败: %d\n", s.Failed))
	buf.WriteString(fmt.Sprintf("删除空目录: %d\n", s.Pruned))

	if len(s.PerCategory) > 0 {
		categories := make([]string, 0, len(s.PerCategory))
		for c := range s.PerCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			buf.WriteString(fmt.Sprintf("  %s: %d\n", c, s.PerCategory[c]))
		}
	}

	if len(s.KnownExtensions) > 0 {
		buf.WriteString(fmt.Sprintf("已识别扩展名: %s\n", strings.Join(s.KnownExtensions, " ")))
	}
	if len(s.UnknownExtensions) > 0 {
		buf.WriteString(fmt.Sprintf("未识别扩展名: %s\n", strings.Join(s.UnknownExtensions, " ")))
	}
	if s.Lost > 0 {
		buf.WriteString(fmt.Sprintf("丢失文件: %d\n", s.Lost))
	}

	buf.WriteString(fmt.Sprintf("总耗时: %v\n", s.Elapsed()))
	buf.WriteString("============================")

	return buf.String()
}
