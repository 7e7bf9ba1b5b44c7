package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *model) View() string {
	switch m.state {
	case StateConfig:
		return m.configView()
	case StateCounting:
		return m.countingView()
	case StateProcessing:
		return m.processingView()
	case StateComplete:
		return m.completeView()
	default:
		return "未知状态"
	}
}

func (m *model) configView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("📂 目录整理工具") + "\n\n")

	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n\n")

	b.WriteString(labelStyle.Render("1. 选择遍历策略：") + "\n")
	if m.focus == FocusStrategy {
		b.WriteString(focusedStyle.Render(m.strategyList.View()) + "\n\n")
	} else {
		b.WriteString(normalStyle.Render(m.strategyList.View()) + "\n\n")
	}

	b.WriteString(labelStyle.Render("2. 输入要整理的目录：") + "\n")
	if m.focus == FocusRootInput {
		b.WriteString(focusedStyle.Render(m.rootInput.View()) + "\n\n")
	} else {
		b.WriteString(normalStyle.Render(m.rootInput.View()) + "\n\n")
	}

	if m.err != nil {
		b.WriteString(errorTitleStyle.Render("❌ "+m.err.Error()) + "\n\n")
	}

	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n")
	b.WriteString(hintStyle.Render("操作提示：") + "\n")
	b.WriteString("  • Tab 键切换焦点\n")
	b.WriteString("  • Enter 确认策略 / 开始整理\n")
	b.WriteString("  • Ctrl+C 退出程序\n")

	return lipgloss.NewStyle().
		Padding(1).
		Render(b.String())
}

func (m *model) countingView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🔍 正在计算文件数量...") + "\n\n")
	b.WriteString(m.spinner.View() + "\n")
	b.WriteString("  正在遍历目录并统计文件数量...\n")
	b.WriteString("  整理目录: " + m.rootDir)

	return lipgloss.NewStyle().
		Padding(2).
		Render(b.String())
}

func (m *model) processingView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🔄 正在整理文件...") + "\n\n")

	b.WriteString(labelStyle.Render("整理进度：") + "\n")
	b.WriteString(m.progressBar.View() + "\n\n")

	b.WriteString(statsBoxStyle.Render(
		m.renderStats(),
	) + "\n\n")

	b.WriteString(labelStyle.Render("当前文件：") + "\n")
	b.WriteString(filePathStyle.Render(m.currentFile) + "\n\n")

	return lipgloss.NewStyle().
		Padding(2).
		Render(b.String())
}

func (m *model) completeView() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(errorTitleStyle.Render("❌ 整理失败："+m.err.Error()) + "\n\n")
	} else {
		b.WriteString(successTitleStyle.Render("✅ 整理完成！") + "\n\n")
	}

	b.WriteString(statsBoxStyle.Render(
		m.renderFinalStats(),
	) + "\n\n")

	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n")
	b.WriteString(hintStyle.Render("按 Enter 整理新目录，Ctrl+C 退出") + "\n")

	return lipgloss.NewStyle().
		Padding(2).
		Render(b.String())
}
