package tui

import (
	"fmt"
	"strings"

	"cyclecoach/internal/service"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RecordsModel is the power records screen model
type RecordsModel struct {
	queryService *service.QueryService
	records      []service.PowerRecordWithActivity
	viewport     viewport.Model
	loading      bool
	err          error
	width        int
	height       int
	ready        bool
}

// NewRecordsModel creates a new power records model
func NewRecordsModel(qs *service.QueryService, width, height int) RecordsModel {
	m := RecordsModel{
		queryService: qs,
		loading:      true,
		width:        width,
		height:       height,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6)
		m.ready = true
	}

	return m
}

// Init initializes the records screen
func (m RecordsModel) Init() tea.Cmd {
	return m.loadRecords
}

type recordsLoadedMsg struct {
	records []service.PowerRecordWithActivity
	err     error
}

func (m RecordsModel) loadRecords() tea.Msg {
	records, err := m.queryService.GetPowerRecords()
	return recordsLoadedMsg{records: records, err: err}
}

// Update handles messages
func (m RecordsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.records = msg.records
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if !m.loading {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadRecords
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the records screen
func (m RecordsModel) View() string {
	if m.loading {
		return "\n  Loading power records..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  j/k or arrows: scroll  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m RecordsModel) renderContent() string {
	sections := []string{"", cardTitleStyle.Render("Power Records"), ""}

	if len(m.records) == 0 {
		sections = append(sections, lipgloss.NewStyle().Foreground(mutedColor).Render("  No power records yet. Run a sync to analyze your rides."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	lines := []string{sectionHeader("Best Efforts"), recordsTableHeader()}
	for _, r := range m.records {
		lines = append(lines, formatRecordRow(r))
	}
	sections = append(sections, strings.Join(lines, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func sectionHeader(title string) string {
	dividerLen := max(60-len([]rune(title))-4, 0)
	divider := strings.Repeat("─", dividerLen)
	return lipgloss.NewStyle().Bold(true).Foreground(secondaryColor).Render(fmt.Sprintf("── %s %s", title, divider))
}

func recordsTableHeader() string {
	header := fmt.Sprintf("  %-8s  %8s  %8s  %-8s  %s", "Duration", "Power", "Avg HR", "Date", "Ride")
	return lipgloss.NewStyle().Foreground(primaryColor).Render(header)
}

func formatRecordRow(r service.PowerRecordWithActivity) string {
	hr := "-"
	if r.Record.AvgHeartrate != nil {
		hr = fmt.Sprintf("%.0f bpm", *r.Record.AvgHeartrate)
	}

	ride := fmt.Sprintf("#%d", r.Record.ActivityID)
	if r.Activity != nil {
		ride = truncateName(r.Activity.Name, 30)
	}

	return fmt.Sprintf("  %-8s  %6.0f W  %8s  %-8s  %s",
		formatEffortDuration(r.Record.DurationSeconds),
		r.Record.AvgWatts,
		hr,
		r.Record.AchievedAt.Format("Jan 02"),
		ride,
	)
}

// formatEffortDuration labels an effort window: 5s, 1 min, 20 min, 1h 30m
func formatEffortDuration(seconds int) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d min", seconds/60)
	default:
		return formatDuration(seconds)
	}
}
