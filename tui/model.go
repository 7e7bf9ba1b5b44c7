package tui

import (
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sortprogress "github.com/moyu-x/folder-sorter/pkg/progress"
	"github.com/moyu-x/folder-sorter/pkg/walker"
)

type State int

const (
	StateConfig State = iota
	StateCounting
	StateProcessing
	StateComplete
)

type Focus int

const (
	FocusStrategy Focus = iota
	FocusRootInput
)

var strategyDescriptions = map[walker.Strategy]string{
	walker.Sequential: "单线程逐个处理，最稳妥",
	walker.Nested:     "每个目录并发处理子目录，文件交给协程池",
	walker.Batch:      "先扫描全部文件，统一处理后再清理空目录",
}

type model struct {
	state            State
	focus            Focus
	strategy         walker.Strategy
	rootDir          string
	totalFiles       int
	lastLogProcessed int
	stats            sortprogress.Stats
	currentFile      string
	err              error

	tracker *sortprogress.Tracker
	current *atomic.Pointer[string]

	strategyList list.Model
	rootInput    textinput.Model
	progressBar  progress.Model
	spinner      spinner.Model
}

func initialModel(defaultStrategy string) model {
	strategy, err := walker.ParseStrategy(defaultStrategy)
	if err != nil {
		strategy = walker.Nested
	}

	items := make([]list.Item, 0, len(walker.Strategies()))
	selected := 0
	for i, s := range walker.Strategies() {
		items = append(items, strategyItem{strategy: s, desc: strategyDescriptions[s]})
		if s == strategy {
			selected = i
		}
	}

	strategyList := list.New(items, list.NewDefaultDelegate(), 0, 3*len(items)+2)
	strategyList.Title = "选择遍历策略"
	strategyList.SetShowStatusBar(false)
	strategyList.SetFilteringEnabled(false)
	strategyList.SetShowHelp(false)
	strategyList.Styles.Title = titleStyle
	strategyList.Styles.TitleBar = titleStyle
	strategyList.Select(selected)

	rootInput := textinput.New()
	rootInput.Placeholder = "请输入要整理的目录（例如：~/Downloads）"
	rootInput.Prompt = "> "
	rootInput.PromptStyle = focusedPromptStyle
	rootInput.TextStyle = textStyle

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.PercentageStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Width(4)

	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		FPS:    time.Second / 10,
	}
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		state:        StateConfig,
		focus:        FocusStrategy,
		strategy:     strategy,
		strategyList: strategyList,
		rootInput:    rootInput,
		progressBar:  progressBar,
		spinner:      s,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

type strategyItem struct {
	strategy walker.Strategy
	desc     string
}

func (s strategyItem) Title() string       { return string(s.strategy) }
func (s strategyItem) Description() string { return s.desc }
func (s strategyItem) FilterValue() string { return string(s.strategy) }
