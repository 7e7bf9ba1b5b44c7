package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/moyu-x/folder-sorter/app"
	"github.com/moyu-x/folder-sorter/pkg/logger"
	sortprogress "github.com/moyu-x/folder-sorter/pkg/progress"
	"github.com/moyu-x/folder-sorter/pkg/scanner"
)

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.state {
		case StateConfig:
			if model, cmd, handled := m.updateConfigPhase(msg); handled {
				return model, cmd
			}
		case StateComplete:
			if msg.String() == "enter" {
				m.reset()
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.handleResize(msg)

	case countFilesMsg:
		m.totalFiles = msg.total
		m.state = StateProcessing
		return m, tea.Batch(
			m.startProcessing(),
			progressTick(),
		)

	case progressTickMsg:
		if m.state != StateProcessing {
			return m, nil
		}
		m.stats = m.tracker.Snapshot()
		if p := m.current.Load(); p != nil {
			m.currentFile = *p
		}
		if m.totalFiles > 0 {
			percent := float64(m.stats.Processed()) / float64(m.totalFiles)
			cmds = append(cmds, m.progressBar.SetPercent(min(percent, 1)))
		}
		m.logProgress()
		cmds = append(cmds, progressTick())
		return m, tea.Batch(cmds...)

	case processCompleteMsg:
		m.state = StateComplete
		m.err = msg.err
		if msg.stats != nil {
			m.stats = *msg.stats
		}
		m.logFinalStats()
		return m, nil

	case errMsg:
		m.err = msg
		m.state = StateComplete
		return m, nil

	case spinner.TickMsg:
		if m.state == StateCounting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state == StateConfig {
		var cmd tea.Cmd
		if m.focus == FocusStrategy {
			m.strategyList, cmd = m.strategyList.Update(msg)
		} else {
			m.rootInput, cmd = m.rootInput.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	if m.state == StateProcessing {
		model, cmd := m.progressBar.Update(msg)
		m.progressBar = model.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// updateConfigPhase 处理配置界面的按键，未处理的按键交给当前焦点组件
func (m *model) updateConfigPhase(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "tab":
		m.nextFocus()
		m.updateFocusState()
		return m, nil, true
	case "enter":
		model, cmd := m.handleEnterKey()
		return model, cmd, true
	}
	return m, nil, false
}

func (m *model) nextFocus() {
	switch m.focus {
	case FocusStrategy:
		m.focus = FocusRootInput
	case FocusRootInput:
		m.focus = FocusStrategy
	}
}

func (m *model) updateFocusState() {
	m.strategyList.KeyMap.CursorUp.SetEnabled(m.focus == FocusStrategy)
	m.strategyList.KeyMap.CursorDown.SetEnabled(m.focus == FocusStrategy)

	if m.focus == FocusRootInput {
		m.rootInput.Focus()
	} else {
		m.rootInput.Blur()
	}
}

func (m *model) handleEnterKey() (tea.Model, tea.Cmd) {
	switch m.focus {
	case FocusStrategy:
		if item, ok := m.strategyList.SelectedItem().(strategyItem); ok {
			m.strategy = item.strategy
		}
		m.focus = FocusRootInput
		m.updateFocusState()
		return m, nil

	case FocusRootInput:
		root := strings.TrimSpace(m.rootInput.Value())
		if root == "" {
			return m, nil
		}
		root, err := resolveRoot(root)
		if err != nil {
			m.err = err
			return m, nil
		}

		m.err = nil
		m.rootDir = root
		m.state = StateCounting
		return m, tea.Batch(
			m.spinner.Tick,
			countFilesCmd(root),
		)
	}

	return m, nil
}

func (m *model) handleResize(msg tea.WindowSizeMsg) {
	width := msg.Width

	m.strategyList.SetWidth(width - 4)
	m.rootInput.Width = width - 10
	m.progressBar.Width = width - 10
}

// reset 回到配置界面，保留上次选择的策略
func (m *model) reset() {
	m.state = StateConfig
	m.focus = FocusRootInput
	m.rootDir = ""
	m.totalFiles = 0
	m.lastLogProcessed = 0
	m.stats = sortprogress.Stats{}
	m.currentFile = ""
	m.err = nil
	m.tracker = nil
	m.current = nil
	m.rootInput.Reset()
	m.progressBar.SetPercent(0)
	m.updateFocusState()
}

func resolveRoot(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("获取用户目录失败: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("解析目录路径: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("无法访问目录 %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", app.ErrNotDirectory, abs)
	}
	return abs, nil
}

func countFilesCmd(root string) tea.Cmd {
	return func() tea.Msg {
		walker := scanner.NewFileWalker(afero.NewOsFs())
		total, err := walker.CountFiles([]string{root})
		if err != nil {
			return errMsg(err)
		}
		return countFilesMsg{total: total}
	}
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

// startProcessing 在后台执行整理，界面通过 tracker 轮询进度
func (m *model) startProcessing() tea.Cmd {
	tracker := sortprogress.NewTracker()
	current := new(atomic.Pointer[string])
	m.tracker = tracker
	m.current = current

	opts := app.SortOptions{}
	if cfg != nil {
		opts = cfg.Sort
	}
	opts.Root = m.rootDir
	opts.Strategy = string(m.strategy)
	opts.Listener = sortprogress.ListenerFunc(func(e sortprogress.Event) {
		tracker.OnEvent(e)
		if e.Action != sortprogress.ActionPruned {
			src := e.Source
			current.Store(&src)
		}
	})

	return func() tea.Msg {
		stats, err := app.RunSort(&opts)
		return processCompleteMsg{stats: stats, err: err}
	}
}

func (m *model) renderStats() string {
	var b strings.Builder
	b.WriteString("📊 实时统计：\n\n")
	b.WriteString(fmt.Sprintf("  总文件数：    %s\n", humanize.Comma(int64(m.totalFiles))))
	b.WriteString(fmt.Sprintf("  已处理：      %d / %d\n", m.stats.Processed(), m.totalFiles))
	b.WriteString(fmt.Sprintf("  已移动：      %d 个文件\n", m.stats.Moved))
	b.WriteString(fmt.Sprintf("  已解压：      %d 个压缩包\n", m.stats.Expanded))
	b.WriteString(fmt.Sprintf("  失败：        %d 个\n", m.stats.Failed+m.stats.ExpansionFailed))
	b.WriteString(fmt.Sprintf("  移动数据量：  %s\n", humanize.Bytes(uint64(m.stats.BytesMoved))))
	return b.String()
}

func (m *model) renderFinalStats() string {
	var b strings.Builder
	b.WriteString("📊 最终统计：\n\n")
	b.WriteString(fmt.Sprintf("  • 整理目录：     %s\n", m.rootDir))
	b.WriteString(fmt.Sprintf("  • 遍历策略：     %s\n", m.strategy))
	b.WriteString(fmt.Sprintf("  • 已处理文件：   %d 个\n", m.stats.Processed()))
	b.WriteString(fmt.Sprintf("    ├─ 已移动：    %d 个\n", m.stats.Moved))
	b.WriteString(fmt.Sprintf("    ├─ 位置不变：  %d 个\n", m.stats.Unchanged))
	b.WriteString(fmt.Sprintf("    └─ 失败：      %d 个\n", m.stats.Failed))
	b.WriteString(fmt.Sprintf("  • 压缩包：       解压 %d 个，失败 %d 个，删除 %d 个\n",
		m.stats.Expanded, m.stats.ExpansionFailed, m.stats.ArchivesRemoved))
	b.WriteString(fmt.Sprintf("  • 删除空目录：   %d 个\n", m.stats.Pruned))
	b.WriteString(fmt.Sprintf("  • 移动数据量：   %s\n", humanize.Bytes(uint64(m.stats.BytesMoved))))

	if len(m.stats.PerCategory) > 0 {
		categories := make([]string, 0, len(m.stats.PerCategory))
		for c := range m.stats.PerCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		b.WriteString("  • 分类：\n")
		for _, c := range categories {
			b.WriteString(fmt.Sprintf("      %-10s %d\n", c, m.stats.PerCategory[c]))
		}
	}

	b.WriteString(fmt.Sprintf("  • 总耗时：       %s\n", m.stats.Elapsed().Round(time.Millisecond)))

	return b.String()
}

func (m *model) logProgress() {
	if m.totalFiles == 0 {
		return
	}

	const logInterval = 100
	processed := m.stats.Processed()
	if processed-m.lastLogProcessed < logInterval && processed < m.totalFiles {
		return
	}
	if processed == m.lastLogProcessed {
		return
	}

	percent := float64(processed) / float64(m.totalFiles) * 100
	logger.Get().Info().Msgf("整理进度: %d/%d (%.1f%%) - 移动: %d, 解压: %d, 失败: %d",
		processed, m.totalFiles, percent, m.stats.Moved, m.stats.Expanded, m.stats.Failed)

	m.lastLogProcessed = processed
}

func (m *model) logFinalStats() {
	if m.err != nil {
		logger.Get().Error().Err(m.err).Msgf("整理 %s 失败", m.rootDir)
	}
	logger.Get().Info().Msg("========== 整理完成 ==========")
	logger.Get().Info().Msgf("整理目录: %s", m.rootDir)
	logger.Get().Info().Msgf("遍历策略: %s", m.strategy)
	logger.Get().Info().Msgf("已处理文件: %d 个", m.stats.Processed())
	logger.Get().Info().Msgf("  - 已移动: %d 个", m.stats.Moved)
	logger.Get().Info().Msgf("  - 已解压: %d 个", m.stats.Expanded)
	logger.Get().Info().Msgf("  - 失败: %d 个", m.stats.Failed+m.stats.ExpansionFailed)
	logger.Get().Info().Msgf("删除空目录: %d 个", m.stats.Pruned)
	logger.Get().Info().Msgf("总耗时: %v", m.stats.Elapsed())
	logger.Get().Info().Msg("============================")
}
