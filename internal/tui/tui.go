// Package tui provides a Bubble Tea terminal user interface for updating the
// extension catalog.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sudosubin/nix-chrome-extensions/internal/catalog"
	"github.com/sudosubin/nix-chrome-extensions/internal/combine"
	"github.com/sudosubin/nix-chrome-extensions/internal/config"
	events "github.com/sudosubin/nix-chrome-extensions/internal/progress"
	"github.com/sudosubin/nix-chrome-extensions/internal/shard"
	"github.com/sudosubin/nix-chrome-extensions/internal/update"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4285F4")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateUpdating
	StateCombining
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   events.Level
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	resolvers map[string]update.Resolver
	logs      []LogEntry
	inputErr  error
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	manager *update.Manager
	eventCh chan events.Event
	spec    shard.Spec
	report  *update.Report
	summary *combine.Summary

	done  int32
	total int32

	// Options
	keepGoing    bool
	combineAfter bool
	verbose      bool

	width  int
	height int
}

// NewModel creates a new TUI model. resolvers maps a registry site to the
// resolver used for it.
func NewModel(settings *config.Settings, resolvers map[string]update.Resolver) Model {
	ti := textinput.New()
	ti.Placeholder = shard.Default.String()
	ti.Focus()
	ti.CharLimit = 16
	ti.Width = 20

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4285F4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		resolvers: resolvers,
		keepGoing: settings.KeepGoing,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one event from the running orchestrator.
	ProgressMsg struct {
		Event events.Event
	}

	// UpdateDoneMsg is sent when the shard update finishes.
	UpdateDoneMsg struct {
		Report *update.Report
		Err    error

		// ch is the event channel of the run. Update closes it unless a
		// combine takes it over.
		ch chan events.Event
	}

	// CombineDoneMsg is sent when combining finishes.
	CombineDoneMsg struct {
		Summary *combine.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateUpdating || m.state == StateCombining {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter":
			if m.state == StateInput {
				return m.start()
			}

		case "k":
			if m.state == StateInput {
				m.keepGoing = !m.keepGoing
				return m, nil
			}

		case "c":
			if m.state == StateInput {
				m.combineAfter = !m.combineAfter
				return m, nil
			}

		case "v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != events.LevelVerbose || m.verbose {
			m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
			if len(m.logs) > maxLogs {
				m.logs = m.logs[len(m.logs)-maxLogs:]
			}
		}
		cmds = append(cmds, waitForEvent(m.eventCh))

	case UpdateDoneMsg:
		if m.state != StateUpdating || msg.ch != m.eventCh {
			closeEvents(msg.ch)
			return m, nil
		}
		m.report = msg.Report
		if m.manager != nil {
			m.done, m.total = m.manager.GetProgress()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		case m.combineAfter:
			m.state = StateCombining
			cmds = append(cmds, runCombine(m.ctx, m.settings, m.eventCh), m.spinner.Tick)
		default:
			m.state = StateComplete
		}
		if m.state != StateCombining {
			closeEvents(msg.ch)
		}

	case CombineDoneMsg:
		if m.state != StateCombining {
			return m, nil
		}
		m.summary = msg.Summary
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateUpdating {
			m.done, m.total = m.manager.GetProgress()

			var percent float64
			if m.total > 0 {
				percent = float64(m.done) / float64(m.total)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// start parses the shard input and launches the update.
func (m Model) start() (tea.Model, tea.Cmd) {
	spec, err := shard.Parse(m.textInput.Value())
	if err != nil {
		m.inputErr = err
		return m, nil
	}
	m.inputErr = nil
	m.spec = spec

	settings := *m.settings
	settings.KeepGoing = m.keepGoing
	m.settings = &settings

	m.eventCh = make(chan events.Event, 64)
	store := catalog.NewStore(settings.DataDir, settings.RegistryFile, settings.ShardDir)
	m.manager = update.NewManager(&settings, store, m.resolvers, sendTo(m.eventCh))
	m.state = StateUpdating

	return m, tea.Batch(
		runUpdate(m.ctx, m.manager, spec, m.eventCh),
		waitForEvent(m.eventCh),
		tickProgress(),
		m.spinner.Tick,
	)
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.inputErr = nil
	m.report = nil
	m.summary = nil
	m.manager = nil
	m.eventCh = nil
	m.done, m.total = 0, 0
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
}

// sendTo forwards progress events to ch, dropping them when the UI falls
// behind.
func sendTo(ch chan events.Event) events.Func {
	return func(e events.Event) {
		select {
		case ch <- e:
		default:
		}
	}
}

// waitForEvent delivers the next event of ch. It stops once ch is closed.
func waitForEvent(ch chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return ProgressMsg{Event: e}
	}
}

// runUpdate runs one shard. The returned UpdateDoneMsg hands ch back to
// Update, which decides whether to close it.
func runUpdate(ctx context.Context, manager *update.Manager, spec shard.Spec, ch chan events.Event) tea.Cmd {
	return func() tea.Msg {
		report, err := manager.Run(ctx, spec)
		return UpdateDoneMsg{Report: report, Err: err, ch: ch}
	}
}

// closeEvents ends the waitForEvent loop reading ch.
func closeEvents(ch chan events.Event) {
	if ch != nil {
		close(ch)
	}
}

func runCombine(ctx context.Context, settings *config.Settings, ch chan events.Event) tea.Cmd {
	return func() tea.Msg {
		store := catalog.NewStore(settings.DataDir, settings.RegistryFile, settings.ShardDir)
		summary, err := combine.NewCombiner(settings, store, sendTo(ch)).Run(ctx)
		close(ch)
		return CombineDoneMsg{Summary: summary, Err: err}
	}
}

func tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Chrome Extensions"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Keep the extension catalog up to date"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateUpdating:
		b.WriteString(m.viewUpdating())
	case StateCombining:
		b.WriteString(m.viewCombining())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Shard to update (index/size):"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n")
	if m.inputErr != nil {
		b.WriteString(errorStyle.Render(m.inputErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Keep going on failures (k)\n", checkbox(m.keepGoing)))
	b.WriteString(fmt.Sprintf("  %s Combine after update (c)\n", checkbox(m.combineAfter)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Data directory: %s", m.settings.DataDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewUpdating() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Updating shard %s...", m.spec)))
	b.WriteString("\n\n")

	var percent float64
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Extensions: %d/%d", m.done, m.total)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewCombining() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Combining shard results..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var lines []string

	if r := m.report; r != nil {
		t := r.Totals()
		lines = append(lines,
			fmt.Sprintf("Shard %s complete", r.Shard),
			"",
			fmt.Sprintf("Checked:    %d", t.Checked),
			fmt.Sprintf("Skipped:    %d", t.Skipped),
			fmt.Sprintf("New:        %d", t.New),
			fmt.Sprintf("Changed:    %d", t.Changed),
			fmt.Sprintf("Failed:     %d", t.Failed),
			fmt.Sprintf("Downloaded: %s", humanize.Bytes(uint64(r.Downloaded))),
		)
	}
	if s := m.summary; s != nil {
		records := 0
		for _, site := range s.Sites {
			records += site.Records
		}
		lines = append(lines, "", fmt.Sprintf("Combined %d shard files into %d records", s.ShardFiles, records))
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case events.LevelError:
			style = errorStyle
			prefix = "✗"
		case events.LevelWarning:
			style = warningStyle
			prefix = "!"
		case events.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case events.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • k: keep going • c: combine • v: verbose • esc: quit"
	case StateUpdating, StateCombining:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new run • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run(settings *config.Settings, resolvers map[string]update.Resolver) error {
	p := tea.NewProgram(NewModel(settings, resolvers), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
