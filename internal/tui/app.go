// internal/tui/app.go
//
// Interactive front-end for batch generation, built on bubbletea's Elm
// architecture: Model holds all state, Update reacts to messages, View
// renders. The engine runs in its own goroutine and publishes progress
// events into a channel; this model owns only the receiving end and never
// touches engine internals.

package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"flowscribe/internal/config"
	"flowscribe/internal/discovery"
	"flowscribe/internal/engine"
	"flowscribe/internal/llm"
	"flowscribe/internal/logging"
)

const maxLogLines = 12

type appState int

const (
	statePicking appState = iota // choose which workflows to run
	stateRunning                 // engine in flight
	stateDone                    // summary on screen
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	summaryStyle = lipgloss.NewStyle().Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

// workflowItem implements list.Item for the picker.
type workflowItem struct {
	item    discovery.WorkItem
	checked bool
}

func (i workflowItem) Title() string {
	mark := "[ ]"
	if i.checked {
		mark = "[x]"
	}
	label := i.item.RelativePath
	if label == "" {
		label = i.item.Name()
	}
	return mark + " " + label
}

func (i workflowItem) Description() string { return "-> " + i.item.OutputPath }
func (i workflowItem) FilterValue() string { return i.item.Name() }

type discoveredMsg struct {
	items []discovery.WorkItem
	err   error
}

type progressMsg engine.Event

type eventsDrainedMsg struct{}

type finishedMsg engine.BatchResult

// Model is the whole TUI state.
type Model struct {
	cfg   config.Config
	state appState

	picker list.Model
	spin   spinner.Model
	bar    progress.Model

	items []discovery.WorkItem

	events    chan engine.Event
	done      chan engine.BatchResult
	cancelRun context.CancelFunc
	logCloser io.Closer

	total     int
	completed int
	logLines  []string
	result    *engine.BatchResult
	cancelled bool
	err       error

	width  int
	height int
}

// Run starts the interactive front-end with an already resolved config.
func Run(cfg config.Config) error {
	p := tea.NewProgram(newModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(cfg config.Config) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	bar := progress.New(progress.WithDefaultGradient())

	picker := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	picker.Title = "flowscribe workflows"
	picker.SetShowStatusBar(false)
	picker.SetFilteringEnabled(false)

	return &Model{
		cfg:    cfg,
		state:  statePicking,
		picker: picker,
		spin:   sp,
		bar:    bar,
	}
}

// Init kicks off discovery in the background.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.discoverCmd())
}

func (m *Model) discoverCmd() tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		if cfg.InputPath == "" {
			return discoveredMsg{err: fmt.Errorf("no input path configured; pass one to the tui command")}
		}
		items, err := discovery.Discover(cfg.InputPath, cfg.OutputRoot)
		return discoveredMsg{items: items, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.picker.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case discoveredMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.items = msg.items
		listItems := make([]list.Item, len(msg.items))
		for i, it := range msg.items {
			listItems[i] = workflowItem{item: it, checked: true}
		}
		m.picker.SetItems(listItems)
		return m, nil

	case progressMsg:
		m.completed++
		m.logLines = appendCapped(m.logLines, renderOutcome(engine.Event(msg)))
		return m, m.waitForEvent()

	case eventsDrainedMsg:
		return m, nil

	case finishedMsg:
		res := engine.BatchResult(msg)
		m.result = &res
		m.state = stateDone
		if m.logCloser != nil {
			m.logCloser.Close()
			m.logCloser = nil
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.state {
	case statePicking:
		switch key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.toggleSelection()
			return m, nil
		case "a":
			m.setAll(true)
			return m, nil
		case "n":
			m.setAll(false)
			return m, nil
		case "s", "enter":
			return m, m.startRun()
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case stateRunning:
		switch key {
		case "c":
			if m.cancelRun != nil {
				m.cancelRun()
				m.cancelled = true
			}
			return m, nil
		case "q", "ctrl+c":
			if m.cancelRun != nil {
				m.cancelRun()
			}
			return m, tea.Quit
		}

	case stateDone:
		switch key {
		case "q", "ctrl+c", "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) toggleSelection() {
	idx := m.picker.Index()
	if it, ok := m.picker.SelectedItem().(workflowItem); ok {
		it.checked = !it.checked
		m.picker.SetItem(idx, it)
	}
}

func (m *Model) setAll(checked bool) {
	for i, li := range m.picker.Items() {
		if it, ok := li.(workflowItem); ok {
			it.checked = checked
			m.picker.SetItem(i, it)
		}
	}
}

func (m *Model) selection() []string {
	var paths []string
	for _, li := range m.picker.Items() {
		if it, ok := li.(workflowItem); ok && it.checked {
			paths = append(paths, it.item.SourcePath)
		}
	}
	return paths
}

// startRun launches the engine in its own goroutine. The model keeps the
// cancel function and the receiving end of the event channel; nothing else
// is shared with the run.
func (m *Model) startRun() tea.Cmd {
	paths := m.selection()
	if len(paths) == 0 {
		m.err = fmt.Errorf("no workflows selected")
		return nil
	}
	selected := discovery.FilterSelection(m.items, paths)

	log, closer := logging.NewFileOnly(m.cfg.Run.Verbose, m.cfg.OutputRoot)
	client, err := llm.New(m.cfg.LLM)
	if err != nil {
		m.err = err
		return nil
	}
	eng, err := engine.New(m.cfg, client, log)
	if err != nil {
		m.err = err
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan engine.Event, len(selected))
	done := make(chan engine.BatchResult, 1)

	m.cancelRun = cancel
	m.logCloser = closer
	m.events = events
	m.done = done
	m.total = len(selected)
	m.completed = 0
	m.logLines = nil
	m.err = nil
	m.cancelled = false
	m.state = stateRunning

	go func() {
		res := eng.Run(ctx, selected, engine.ChannelSink(events))
		close(events)
		done <- res
	}()

	return tea.Batch(m.spin.Tick, m.waitForEvent(), m.waitForDone())
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsDrainedMsg{}
		}
		return progressMsg(ev)
	}
}

func (m *Model) waitForDone() tea.Cmd {
	done := m.done
	return func() tea.Msg {
		return finishedMsg(<-done)
	}
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FlowScribe"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	switch m.state {
	case statePicking:
		b.WriteString(m.picker.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("space toggle · a all · n none · s start · q quit"))

	case stateRunning:
		pct := 0.0
		if m.total > 0 {
			pct = float64(m.completed) / float64(m.total)
		}
		status := fmt.Sprintf("%s Generating %d/%d", m.spin.View(), m.completed, m.total)
		if m.cancelled {
			status = skipStyle.Render("Cancelling, letting in-flight items finish...")
		}
		b.WriteString(status)
		b.WriteString("\n\n")
		b.WriteString(m.bar.ViewAs(pct))
		b.WriteString("\n\n")
		b.WriteString(strings.Join(m.logLines, "\n"))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("c cancel · q quit"))

	case stateDone:
		res := m.result
		line := fmt.Sprintf("Done. Total %d, succeeded %d, failed %d", res.Total, res.Succeeded, res.Failed)
		if res.Cancelled {
			line += " (cancelled)"
		}
		b.WriteString(summaryStyle.Render(line))
		b.WriteString("\n\n")
		b.WriteString(strings.Join(m.logLines, "\n"))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
	}

	b.WriteString("\n")
	return b.String()
}

func renderOutcome(ev engine.Event) string {
	out := ev.Outcome
	switch out.Status {
	case engine.StatusSucceeded:
		return okStyle.Render("ok      ") + out.Item.OutputPath + " (" + out.Duration.Round(time.Millisecond).String() + ")"
	case engine.StatusSkippedDryRun:
		return skipStyle.Render("dry-run ") + out.Item.SourcePath
	default:
		return failStyle.Render("failed  ") + out.Item.SourcePath + ": " + out.Err
	}
}

func appendCapped(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}
