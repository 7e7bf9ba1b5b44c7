package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/moyu-x/folder-sorter/app"
	"github.com/moyu-x/folder-sorter/pkg/logger"
)

type Config struct {
	// Sort 整理参数，Root 和 Strategy 由界面填写
	Sort app.SortOptions
}

var cfg *Config

type teaModel struct {
	m *model
}

func (tm teaModel) Init() tea.Cmd {
	return nil
}

func (tm teaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return tm.m.Update(msg)
}

func (tm teaModel) View() string {
	return tm.m.View()
}

func Run(config *Config) error {
	cfg = config

	logger.Get().Info().Msg("启动 TUI 界面")

	m := initialModel(config.Sort.Strategy)
	if config.Sort.Root != "" {
		m.rootInput.SetValue(config.Sort.Root)
	}
	p := tea.NewProgram(teaModel{m: &m}, tea.WithAltScreen())

	_, err := p.Run()
	if err != nil {
		logger.Get().Error().Err(err).Msg("TUI 运行错误")
	} else {
		logger.Get().Info().Msg("TUI 正常退出")
	}

	return err
}
