// Package tui is an interactive terminal viewer for rendered receipts.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

// Tab represents a navigation tab
type Tab int

const (
	TabReceipt Tab = iota
	TabMarkup
	TabWarnings
)

func (t Tab) String() string {
	return []string{"Receipt", "Markup", "Warnings"}[t]
}

const tabCount = 3

// Document is one rendered template as shown by the viewer.
type Document struct {
	Title    string
	Preview  string
	Tokens   []markup.Token
	Warnings []markup.Warning
}

// LoadFunc renders the document. It runs on start and on every reload.
type LoadFunc func() (Document, error)

type loadedMsg struct {
	doc Document
	err error
	at  time.Time
}

// App is the Bubble Tea model for the preview viewer.
type App struct {
	load LoadFunc

	doc      Document
	hasDoc   bool
	err      error
	loadedAt time.Time
	loading  bool

	activeTab Tab
	width     int
	height    int
	ready     bool
	quitting  bool

	viewport viewport.Model
	spinner  spinner.Model
}

// NewApp creates the viewer.
func NewApp(load LoadFunc) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &App{
		load:     load,
		loading:  true,
		spinner:  s,
		viewport: viewport.New(0, 0),
	}
}

// Init starts the first render.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadCmd())
}

func (a *App) loadCmd() tea.Cmd {
	return func() tea.Msg {
		doc, err := a.load()
		return loadedMsg{doc: doc, err: err, at: time.Now()}
	}
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			a.quitting = true
			return a, tea.Quit
		case "1", "2", "3":
			a.setTab(Tab(msg.String()[0] - '1'))
			return a, nil
		case "tab":
			a.setTab((a.activeTab + 1) % tabCount)
			return a, nil
		case "shift+tab":
			a.setTab((a.activeTab + tabCount - 1) % tabCount)
			return a, nil
		case "r":
			if !a.loading {
				a.loading = true
				return a, tea.Batch(a.spinner.Tick, a.loadCmd())
			}
			return a, nil
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.viewport.Width = max(20, msg.Width-4)
		a.viewport.Height = max(1, msg.Height-chromeHeight)
		a.refresh()
		return a, nil

	case loadedMsg:
		a.loading = false
		a.err = msg.err
		a.loadedAt = msg.at
		if msg.err == nil {
			a.doc = msg.doc
			a.hasDoc = true
		}
		a.refresh()
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) setTab(t Tab) {
	if t == a.activeTab {
		return
	}
	a.activeTab = t
	a.refresh()
	a.viewport.GotoTop()
}

// refresh puts the active tab's content into the viewport.
func (a *App) refresh() {
	var content string
	switch {
	case a.err != nil && !a.hasDoc:
		content = ErrorStyle.Render(a.err.Error())
	case a.activeTab == TabMarkup:
		content = highlight(a.doc.Tokens)
	case a.activeTab == TabWarnings:
		content = warningList(a.doc.Warnings)
	default:
		content = a.doc.Preview
	}
	a.viewport.SetContent(content)
}

// rows taken by the header, tab bar and status bar
const chromeHeight = 3

// View renders the UI
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return "\n  Loading...\n"
	}

	title := a.doc.Title
	if title == "" {
		title = "Receipt Preview"
	}
	header := HeaderStyle.Width(a.width).Render(Truncate(title, max(1, a.width-4)))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.renderTabs(),
		ContentStyle.Render(a.viewport.View()),
		a.renderStatusBar(),
	)
}

func (a *App) renderTabs() string {
	tabs := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		label := fmt.Sprintf("%d %s", t+1, t)
		if t == TabWarnings && len(a.doc.Warnings) > 0 {
			label += fmt.Sprintf(" (%d)", len(a.doc.Warnings))
		}
		if t == a.activeTab {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a *App) renderStatusBar() string {
	var status string
	switch {
	case a.loading:
		status = a.spinner.View() + " rendering"
	case a.err != nil:
		status = ErrorStyle.Render("render failed: " + Truncate(a.err.Error(), 60))
	default:
		status = SuccessStyle.Render("rendered " + a.loadedAt.Format("15:04:05"))
	}

	help := strings.Join([]string{
		RenderHelp("1-3", "tabs"),
		RenderHelp("↑/↓", "scroll"),
		RenderHelp("r", "reload"),
		RenderHelp("q", "quit"),
	}, "  ")

	return HelpBarStyle.Width(a.width).Render(status + "  " + help)
}

// highlight renders the markup stream with tags coloured.
func highlight(tokens []markup.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		switch t.Kind {
		case markup.TokenText:
			sb.WriteString(SourceStyle.Render(t.String()))
		case markup.TokenNewline:
			sb.WriteByte('\n')
		default:
			sb.WriteString(TagStyle.Render(t.String()))
		}
	}
	return sb.String()
}

func warningList(warnings []markup.Warning) string {
	if len(warnings) == 0 {
		return SuccessStyle.Render("No warnings")
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = WarningStyle.Render("● "+w.Code) + "  " + w.String()
	}
	return strings.Join(lines, "\n")
}

// Run starts the viewer on the alternate screen.
func Run(load LoadFunc) error {
	_, err := tea.NewProgram(NewApp(load), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}
