package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	seriesDays      = 30
	quizUser        = "me"
)

// Model is the BubbleTea dashboard model.
type Model struct {
	client     *StatsClient
	interval   time.Duration
	lastUpdate time.Time
	stats      StatsSnapshot
	err        error
	quitting   bool

	completionProgress progress.Model
	accuracyProgress   progress.Model
}

// StatsSnapshot holds one poll of the daemon's stats.
type StatsSnapshot struct {
	// Todos
	TodoTotal     int
	TodoDone      int
	CompletionPct float64
	CurrentStreak int
	LongestStreak int
	DailyPct      []float64

	// Quiz
	QuizAnswered int
	QuizAccuracy float64
	QuizMastered int
	QuizTracked  int

	// Tickets
	TicketCount     int
	TicketRemaining int
	TicketExpired   int
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard model polling the daemon at baseURL.
func NewModel(baseURL, token string, interval time.Duration) Model {
	return Model{
		client:   NewStatsClient(baseURL, token),
		interval: interval,
		completionProgress: progress.New(
			progress.WithGradient("#00ff00", "#ffff00"),
			progress.WithWidth(40),
		),
		accuracyProgress: progress.New(
			progress.WithGradient("#00ffff", "#ff00ff"),
			progress.WithWidth(40),
		),
	}
}

// completionBadge colors by how much of the schedule is done.
func completionBadge(pct float64) string {
	if pct >= 80 {
		return healthyStyle.Render("[✓]")
	} else if pct >= 50 {
		return warningStyle.Render("[⚠]")
	}
	return errorStyle.Render("[✗]")
}

// streakBadge lights up when the current streak is alive.
func streakBadge(current int) string {
	if current > 0 {
		return healthyStyle.Render("🔥")
	}
	return dimStyle.Render("–")
}

// createSparkline renders a sparkline from a series.
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}

	return sparklineStyle.Render(spark.View())
}

// Message types
type tickMsg time.Time
type statsMsg StatsSnapshot
type errMsg error

// Init starts the poll loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchStats(m.client),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchStats polls all three stats sources in one command.
func fetchStats(client *StatsClient) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		todoStats, err := client.TodoStats(ctx, seriesDays)
		if err != nil {
			return errMsg(err)
		}

		quizStats, err := client.QuizStats(ctx, quizUser)
		if err != nil {
			return errMsg(err)
		}

		tickets, err := client.Tickets(ctx)
		if err != nil {
			return errMsg(err)
		}

		snap := StatsSnapshot{
			TodoTotal:     todoStats.Total,
			TodoDone:      todoStats.Done,
			CompletionPct: todoStats.CompletionPct,
			CurrentStreak: todoStats.CurrentStreak,
			LongestStreak: todoStats.LongestStreak,
			QuizAnswered:  quizStats.Answered,
			QuizAccuracy:  quizStats.AccuracyPct,
			QuizMastered:  quizStats.Mastered,
			QuizTracked:   quizStats.Tracked,
		}
		for _, d := range todoStats.Daily {
			snap.DailyPct = append(snap.DailyPct, d.Pct)
		}
		snap.TicketCount = len(tickets)
		now := time.Now()
		for _, t := range tickets {
			snap.TicketRemaining += t.Remaining
			if t.Expired(now) {
				snap.TicketExpired++
			}
		}

		return statsMsg(snap)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchStats(m.client)
		}

	case tickMsg:
		return m, tea.Batch(
			tick(m.interval),
			fetchStats(m.client),
		)

	case statsMsg:
		m.stats = StatsSnapshot(msg)
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) renderError() string {
	header := headerStyle.Render(" sited Stats ")

	var content string
	content += "\n"
	content += errorStyle.Render("⚠ Cannot reach the daemon") + "\n"
	content += "\n"
	content += dimStyle.Render("URL: ") + valueStyle.Render(m.client.baseURL) + "\n"
	content += dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n"
	content += "\n"
	content += dimStyle.Render("Is sited running? Try: sited --config ~/.config/sited/config.yaml") + "\n"
	content += "\n"
	content += footerStyle.Render("[q] quit  [r] retry") + "\n"

	return containerStyle.Render(header + "\n" + content)
}

func (m Model) renderDashboard() string {
	var content string

	lastUpdateStr := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdateStr = m.lastUpdate.Format("3:04:05 PM")
	}

	header := headerStyle.Render(" sited Stats ")
	content += header + "   " + dimStyle.Render(lastUpdateStr) + "\n"

	// Todos section
	content += "\n" + sectionStyle.Render("┃ Todos") + "\n"

	dailySparkline := createSparkline(m.stats.DailyPct)
	content += labelStyle.Render("  Done: ") +
		valueStyle.Render(FormatFraction(m.stats.TodoDone, m.stats.TodoTotal)) +
		" " + completionBadge(m.stats.CompletionPct) +
		"   " + dailySparkline + "\n"

	content += labelStyle.Render("  Completion: ") +
		m.completionProgress.ViewAs(m.stats.CompletionPct/100) +
		" " + dimStyle.Render(FormatPercentage(m.stats.CompletionPct)) + "\n"

	content += labelStyle.Render("  Streak: ") +
		valueStyle.Render(FormatStreak(m.stats.CurrentStreak)) +
		" " + streakBadge(m.stats.CurrentStreak) +
		dimStyle.Render("  best ") + valueStyle.Render(FormatStreak(m.stats.LongestStreak)) + "\n"

	// Quiz section
	content += "\n" + sectionStyle.Render("┃ Quiz") + "\n"

	content += labelStyle.Render("  Accuracy: ") +
		m.accuracyProgress.ViewAs(m.stats.QuizAccuracy/100) +
		" " + dimStyle.Render(FormatAccuracy(m.stats.QuizAccuracy, m.stats.QuizAnswered)) + "\n"

	content += labelStyle.Render("  Mastered: ") +
		valueStyle.Render(FormatFraction(m.stats.QuizMastered, m.stats.QuizTracked)) +
		dimStyle.Render(" questions") + "\n"

	// Tickets section
	content += "\n" + sectionStyle.Render("┃ Tickets") + "\n"

	content += labelStyle.Render("  Open: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.stats.TicketCount)) +
		dimStyle.Render("  remaining uses ") + valueStyle.Render(fmt.Sprintf("%d", m.stats.TicketRemaining)) + "\n"
	if m.stats.TicketExpired > 0 {
		content += labelStyle.Render("  Expired: ") +
			warningStyle.Render(fmt.Sprintf("%d", m.stats.TicketExpired)) + "\n"
	}

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))

	content += "\n" + footer

	return containerStyle.Render(content)
}
