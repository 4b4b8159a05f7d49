package internal

import (
	"context"
	"log/slog"
	"time"

	"study_timer/internal/session"
	"study_timer/internal/timer"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// MsgTick is a redraw trigger. It carries the observation time only.
type MsgTick struct {
	At time.Time
}

const (
	fieldSubject = iota
	fieldHours
)

type Model struct {
	sessions *session.Manager
	redraw   *timer.Ticker
	logger   *slog.Logger

	keys KeyMap
	help help.Model

	// Setup form
	subjectInput textinput.Model
	hoursInput   textinput.Model
	InputFocus   int
	FormErr      string

	// Reset prompt
	ConfirmReset bool

	width  int
	height int
}

// NewModel expects sessions to be loaded already. It acquires the redraw
// clock if the loaded session is running.
func NewModel(sessions *session.Manager, redraw *timer.Ticker, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}

	subject := textinput.New()
	subject.Placeholder = "Subject Name"
	subject.Prompt = ""
	subject.CharLimit = 80
	subject.Width = 30

	hours := textinput.New()
	hours.Placeholder = "0"
	hours.Prompt = ""
	hours.CharLimit = 6
	hours.Width = 30

	m := &Model{
		sessions:     sessions,
		redraw:       redraw,
		logger:       logger,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		subjectInput: subject,
		hoursInput:   hours,
		width:        80,
		height:       24,
	}
	m.focusField(fieldSubject)
	m.syncRedraw()
	return m
}

func (m *Model) Init() tea.Cmd {
	if m.sessions.Session().HasActiveSession() {
		return nil
	}
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MsgTick:
		// The observation already lives in the ticker; re-rendering is all a tick does.
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m.updateInputs(msg)
}

func (m *Model) View() string {
	if m.ConfirmReset {
		return m.confirmView()
	}
	if !m.sessions.Session().HasActiveSession() {
		return m.setupView()
	}
	return m.timerView()
}

// Snapshot is what the timer view renders: the session seen at the latest
// redraw observation.
func (m *Model) Snapshot() session.Snapshot {
	return m.sessions.SnapshotAt(m.redraw.Observed())
}

// Close releases the redraw clock unconditionally.
func (m *Model) Close() {
	m.redraw.Stop()
}

func (m *Model) syncRedraw() {
	m.redraw.Sync(m.sessions.Session().IsRunning)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ConfirmReset {
		return m.handleConfirmInput(msg)
	}
	if !m.sessions.Session().HasActiveSession() {
		return m.handleFormInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		if _, err := m.sessions.Toggle(context.Background()); err != nil {
			m.logger.Warn("toggle ignored", "error", err)
		}
		m.syncRedraw()
	case key.Matches(msg, m.keys.Reset):
		m.ConfirmReset = true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) handleConfirmInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Confirm):
		m.ConfirmReset = false
		m.sessions.Reset(context.Background(), true)
		m.syncRedraw()
		m.resetForm()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Decline):
		m.ConfirmReset = false
		m.sessions.Reset(context.Background(), false)
	}
	return m, nil
}

func (m *Model) handleFormInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextField):
		return m, m.focusField(1 - m.InputFocus)
	case key.Matches(msg, m.keys.Submit):
		if m.InputFocus == fieldSubject {
			return m, m.focusField(fieldHours)
		}
		m.submit()
		return m, nil
	case msg.String() == "esc":
		m.FormErr = ""
		return m, nil
	}
	return m.updateInputs(msg)
}

func (m *Model) submit() {
	subject, err := ParseSubject(m.subjectInput.Value())
	if err != nil {
		m.FormErr = "Enter a subject to study."
		m.focusField(fieldSubject)
		return
	}
	hours, err := ParseHours(m.hoursInput.Value())
	if err != nil {
		m.FormErr = "Target hours must be 0.5 or more, in steps of 0.5."
		m.focusField(fieldHours)
		return
	}
	if _, err := m.sessions.Start(context.Background(), subject, hours); err != nil {
		m.logger.Warn("failed to start session", "error", err)
		m.FormErr = err.Error()
		return
	}
	m.FormErr = ""
	m.syncRedraw()
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.InputFocus == fieldSubject {
		m.subjectInput, cmd = m.subjectInput.Update(msg)
	} else {
		m.hoursInput, cmd = m.hoursInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) focusField(field int) tea.Cmd {
	m.InputFocus = field
	if field == fieldSubject {
		m.hoursInput.Blur()
		return m.subjectInput.Focus()
	}
	m.subjectInput.Blur()
	return m.hoursInput.Focus()
}

func (m *Model) resetForm() {
	m.subjectInput.Reset()
	m.hoursInput.Reset()
	m.FormErr = ""
	m.focusField(fieldSubject)
}
