package internal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	appFooter        = "FOCUS V1.0"
	progressBarWidth = 40

	ResetPrompt = "Are you sure you want to end this session? All progress for this subject will be reset."
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Align(lipgloss.Center)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	subjectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Bold(true)

	timerDisplayStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244")).
				Bold(true)

	timerRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 3)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	inputInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	barFilledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("236"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)
)

// FormatClock always renders HH:MM:SS so the scale of a long session is visible.
func FormatClock(totalSeconds int64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func FormatHours(hours float64) string {
	if hours == 1 {
		return "1 hour"
	}
	return strconv.FormatFloat(hours, 'f', -1, 64) + " hours"
}

// progressBar clamps to [0, 100]; the numeric label elsewhere does not.
func progressBar(percentage float64, width int) string {
	visual := math.Min(math.Max(percentage, 0), 100)
	filled := int(visual / 100 * float64(width))
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

func (m *Model) place(content string) string {
	body := content + "\n\n" + labelStyle.Render(appFooter)
	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		body,
	)
}

func (m *Model) setupView() string {
	subjectLabel := inputInactiveStyle.Render("  SUBJECT")
	hoursLabel := inputInactiveStyle.Render("  TARGET HOURS")
	if m.InputFocus == fieldSubject {
		subjectLabel = inputStyle.Render("→ SUBJECT")
	} else {
		hoursLabel = inputStyle.Render("→ TARGET HOURS")
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Width(36).Render("New Session"))
	sb.WriteString("\n\n")
	sb.WriteString(subjectLabel)
	sb.WriteString("\n  ")
	sb.WriteString(m.subjectInput.View())
	sb.WriteString("\n\n")
	sb.WriteString(hoursLabel)
	sb.WriteString("\n  ")
	sb.WriteString(m.hoursInput.View())
	if m.FormErr != "" {
		sb.WriteString("\n\n")
		sb.WriteString(errorStyle.Render(m.FormErr))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.help.View(m.keys.setupHelp()))

	return m.place(boxStyle.Render(sb.String()))
}

func (m *Model) timerView() string {
	snap := m.Snapshot()

	clock := timerDisplayStyle.Render(FormatClock(snap.ElapsedSeconds))
	status := labelStyle.Render("Paused")
	if snap.IsRunning {
		clock = timerRunningStyle.Render(FormatClock(snap.ElapsedSeconds))
		status = timerRunningStyle.Render("Running")
	}

	percentLabel := fmt.Sprintf("%d%%", int64(math.Floor(snap.ProgressPercentage)))
	gap := progressBarWidth - lipgloss.Width("PROGRESS") - lipgloss.Width(percentLabel)
	if gap < 1 {
		gap = 1
	}

	var sb strings.Builder
	sb.WriteString(labelStyle.Render("STUDYING"))
	sb.WriteString("\n")
	sb.WriteString(subjectStyle.Render(snap.Subject))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Target: " + FormatHours(snap.TargetHours)))
	sb.WriteString("\n\n")
	sb.WriteString(clock)
	sb.WriteString("\n")
	sb.WriteString(status)
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("PROGRESS" + strings.Repeat(" ", gap) + percentLabel))
	sb.WriteString("\n")
	sb.WriteString(progressBar(snap.ProgressPercentage, progressBarWidth))
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render(m.help.View(m.keys.timerHelp())))

	return m.place(lipgloss.NewStyle().Align(lipgloss.Center).Render(sb.String()))
}

func (m *Model) confirmView() string {
	subject := m.sessions.Session().Subject
	form := fmt.Sprintf("%s\n\n%s\n\n%s",
		warnStyle.Render("End session: "+subject),
		lipgloss.NewStyle().Width(44).Render(ResetPrompt),
		m.help.View(m.keys.confirmHelp()),
	)
	return m.place(boxStyle.Render(form))
}
