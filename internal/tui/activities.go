package tui

import (
	"fmt"

	"cyclecoach/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ActivitiesModel is the ride list screen model
type ActivitiesModel struct {
	queryService *service.QueryService
	units        Units
	activities   []service.ActivityWithMetrics
	cursor       int
	offset       int
	total        int
	pageSize     int
	loading      bool
	err          error
}

// NewActivitiesModel creates a new ride list model
func NewActivitiesModel(qs *service.QueryService, units Units) ActivitiesModel {
	return ActivitiesModel{
		queryService: qs,
		units:        units,
		pageSize:     15,
		loading:      true,
	}
}

// Init initializes the ride list
func (m ActivitiesModel) Init() tea.Cmd {
	return m.loadPage
}

type activitiesLoadedMsg struct {
	activities []service.ActivityWithMetrics
	total      int
	err        error
}

func (m ActivitiesModel) loadPage() tea.Msg {
	activities, err := m.queryService.GetActivitiesList(m.pageSize, m.offset)
	if err != nil {
		return activitiesLoadedMsg{err: err}
	}

	total, err := m.queryService.GetTotalActivityCount()
	if err != nil {
		return activitiesLoadedMsg{err: err}
	}

	return activitiesLoadedMsg{activities: activities, total: total}
}

// Update handles messages
func (m ActivitiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activitiesLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.activities = msg.activities
		m.total = msg.total
		if m.cursor >= len(m.activities) {
			m.cursor = max(len(m.activities)-1, 0)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.offset > 0 {
				m.offset -= m.pageSize
				m.cursor = m.pageSize - 1
				m.loading = true
				return m, m.loadPage
			}
		case "down", "j":
			if m.cursor < len(m.activities)-1 {
				m.cursor++
			} else if m.offset+len(m.activities) < m.total {
				m.offset += m.pageSize
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "pgup":
			if m.offset > 0 {
				m.offset = max(m.offset-m.pageSize, 0)
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "pgdown":
			if m.offset+m.pageSize < m.total {
				m.offset += m.pageSize
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "r":
			m.loading = true
			return m, m.loadPage
		}
	}
	return m, nil
}

// View renders the ride list
func (m ActivitiesModel) View() string {
	if m.loading {
		return "\n  Loading rides..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.activities) == 0 {
		return "\n  No rides found. Press 's' to sync with Strava."
	}

	var sections []string

	title := cardTitleStyle.Render(fmt.Sprintf("Rides (%d-%d of %d)", m.offset+1, m.offset+len(m.activities), m.total))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-8s  %-26s  %9s  %8s  %10s  %7s  %5s  %5s",
		"Date", "Name", "Distance", "Time", "Speed", "Power", "TSS", "IF"))
	sections = append(sections, header)

	for i, am := range m.activities {
		a := am.Activity

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-8s  %-26s  %9s  %8s  %10s  %7s  %5s  %5s",
			cursor,
			a.StartDateLocal.Format("Jan 02"),
			truncateName(a.Name, 26),
			m.units.FormatDistance(a.Distance),
			formatDuration(a.MovingTime),
			m.units.FormatSpeed(a.AverageSpeed),
			FormatWatts(ridePower(am)),
			formatTSS(am),
			formatIF(am),
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	if m.cursor < len(m.activities) {
		sections = append(sections, m.renderSelected(m.activities[m.cursor]))
	}

	help := statusStyle.Render("\n  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderSelected shows the stream-derived metrics of the highlighted ride
func (m ActivitiesModel) renderSelected(am service.ActivityWithMetrics) string {
	met := am.Metrics
	if met == nil {
		return statusStyle.Render("\n  No power metrics for this ride")
	}

	ratio := func(v *float64, format string) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf(format, *v)
	}

	lines := []string{
		RenderMetric("Normalized power", FormatWatts(met.NormalizedPower), ""),
		RenderMetric("Variability index", ratio(met.VariabilityIndex, "%.2f"), ""),
		RenderMetric("Efficiency factor", ratio(met.EfficiencyFactor, "%.2f"), ""),
		RenderMetric("Decoupling", ratio(met.Decoupling, "%.1f%%"), ""),
		RenderMetric("Best 20 min", FormatWatts(met.BestPower20m), ""),
		RenderMetric("FTP used", fmt.Sprintf("%.0f W", met.FTP), ""),
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
