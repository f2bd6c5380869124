package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"isru-daily/internal/checklist"
	"isru-daily/internal/model"
	"isru-daily/internal/profile"
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Reset  key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k")),
		Down:   key.NewBinding(key.WithKeys("down", "j")),
		Toggle: key.NewBinding(key.WithKeys(" ", "enter")),
		Reset:  key.NewBinding(key.WithKeys("R")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
	}
}

type theme struct {
	header   lipgloss.Style
	selected lipgloss.Style
	done     lipgloss.Style
	muted    lipgloss.Style
	accent   lipgloss.Style
}

func newTheme() theme {
	accent := lipgloss.Color("208")
	muted := lipgloss.Color("243")
	if !termenv.HasDarkBackground() {
		muted = lipgloss.Color("245")
	}
	return theme{
		header:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		selected: lipgloss.NewStyle().Bold(true),
		done:     lipgloss.NewStyle().Strikethrough(true).Foreground(muted),
		muted:    lipgloss.NewStyle().Foreground(muted),
		accent:   lipgloss.NewStyle().Foreground(accent),
	}
}

type checklistModel struct {
	app      *checklist.App
	profiles *profile.Cache
	keys     keyMap
	th       theme

	changes <-chan struct{}
	cancel  func()

	tasks    []model.Task
	progress model.ProgressSnapshot
	streak   model.StreakRecord
	selected int
	lastLog  string
	width    int
}

type changedMsg struct{}

func newChecklistModel(app *checklist.App, profiles *profile.Cache) checklistModel {
	ch, cancel := app.Subscribe()
	m := checklistModel{
		app:      app,
		profiles: profiles,
		keys:     defaultKeyMap(),
		th:       newTheme(),
		changes:  ch,
		cancel:   cancel,
	}
	m.refresh()
	return m
}

func (m *checklistModel) refresh() {
	m.tasks = m.app.Tasks()
	m.progress = m.app.Progress()
	m.streak = m.app.StreakRecord()
	if m.selected >= len(m.tasks) {
		m.selected = len(m.tasks) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m checklistModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return changedMsg{}
	}
}

func (m checklistModel) Init() tea.Cmd {
	return m.waitForChange()
}

func (m checklistModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case changedMsg:
		m.refresh()
		return m, m.waitForChange()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			m.app.SettleNow()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			// Moving the cursor is this frontend's scroll gesture.
			m.app.ReportScroll()
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.app.ReportScroll()
			if m.selected < len(m.tasks)-1 {
				m.selected++
			}
			return m, nil
		case key.Matches(msg, m.keys.Toggle):
			if m.selected < 0 || m.selected >= len(m.tasks) {
				return m, nil
			}
			t, err := m.app.Toggle(m.tasks[m.selected].ID, time.Now())
			if err != nil {
				m.lastLog = err.Error()
				return m, nil
			}
			if t.Completed {
				m.lastLog = "Completed " + t.Title + "."
			} else {
				m.lastLog = "Uncompleted " + t.Title + "."
			}
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Reset):
			m.app.Reset(time.Now())
			m.lastLog = "Reset for a new day."
			m.refresh()
			return m, nil
		}
	}
	return m, nil
}

func (m checklistModel) View() string {
	var b strings.Builder

	title := "ISRU Daily"
	if m.profiles != nil {
		if u, ok := m.profiles.Session(); ok {
			title += "  " + m.th.muted.Render("("+u+")")
		}
	}
	b.WriteString(m.th.header.Render(title))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s  %s\n\n",
		progressBar(m.progress, 24, m.th),
		m.th.muted.Render(fmt.Sprintf("streak %d", m.streak.Count))))

	for i, t := range m.tasks {
		cursor := "  "
		if i == m.selected {
			cursor = m.th.accent.Render("> ")
		}
		box := "[ ]"
		line := t.Title
		if t.Completed {
			box = "[x]"
			line = m.th.done.Render(line)
		} else if i == m.selected {
			line = m.th.selected.Render(line)
		}
		b.WriteString(cursor + box + " " + line + "\n")
	}

	b.WriteString("\n")
	if m.progress.AllComplete() {
		b.WriteString(m.th.accent.Render("Mission complete.") + "\n")
	}
	if m.lastLog != "" {
		b.WriteString(m.th.muted.Render(m.lastLog) + "\n")
	}
	b.WriteString(m.th.muted.Render("j/k move · space toggle · R reset · q quit") + "\n")
	return b.String()
}

func progressBar(p model.ProgressSnapshot, width int, th theme) string {
	if width < 4 {
		width = 4
	}
	filled := 0
	if p.Total > 0 {
		filled = p.Completed * width / p.Total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return th.accent.Render(bar) + fmt.Sprintf(" %d/%d", p.Completed, p.Total)
}

// Run starts the interactive checklist and blocks until the user quits.
func Run(app *checklist.App, profiles *profile.Cache) error {
	p := tea.NewProgram(newChecklistModel(app, profiles), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
