package tui

import (
	"context"
	"fmt"

	"cyclecoach/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	queryService    *service.QueryService
	analysisService *service.AnalysisService
	units           Units
	data            *service.DashboardData
	snapshot        *service.Snapshot
	loading         bool
	err             error
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(qs *service.QueryService, as *service.AnalysisService, units Units) DashboardModel {
	return DashboardModel{
		queryService:    qs,
		analysisService: as,
		units:           units,
		loading:         true,
	}
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return m.loadData
}

func (m DashboardModel) loadData() tea.Msg {
	data, err := m.queryService.GetDashboardData()
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	snap, err := m.analysisService.Snapshot(context.Background(), service.DefaultUserID)
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	return dashboardDataMsg{data: data, snapshot: snap}
}

type dashboardDataMsg struct {
	data     *service.DashboardData
	snapshot *service.Snapshot
	err      error
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.data = msg.data
		m.snapshot = msg.snapshot
	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadData
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.loading {
		return "\n  Loading dashboard..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.data == nil || m.snapshot == nil {
		return "\n  No data available. Press 's' to sync with Strava."
	}

	var sections []string

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.renderFitnessCard(), "  ", m.renderWeekCard())
	sections = append(sections, topRow)
	sections = append(sections, m.renderAssessment())

	if len(m.data.CTLHistory) > 2 {
		sections = append(sections, m.renderLoadChart())
	}
	if len(m.data.WeeklyTSS) > 1 {
		sections = append(sections, m.renderWeeklyChart())
	}

	sections = append(sections, m.renderRecentActivities())
	sections = append(sections, statusStyle.Render("Press 'r' to refresh, 's' to sync, '2' for the ride list"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderFitnessCard() string {
	title := cardTitleStyle.Render("Training Load")
	f := m.snapshot.Fitness

	lines := []string{
		RenderMetric("Fitness (CTL)", fmt.Sprintf("%.0f", f.CTL), ""),
		RenderMetric("Fatigue (ATL)", fmt.Sprintf("%.0f", f.ATL), ""),
		RenderMetric("Form (TSB)", fmt.Sprintf("%+.0f", f.TSB), fmt.Sprintf("%+.0f", f.TSB)),
		RenderMetric("FTP", fmt.Sprintf("%d W", m.snapshot.FTP.Watts), string(m.snapshot.FTP.Source)),
		"",
		RenderTier(m.snapshot.Tier()),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderWeekCard() string {
	title := cardTitleStyle.Render("This Week")

	lines := []string{
		RenderMetric("Rides", fmt.Sprintf("%d", m.data.WeekRideCount), ""),
		RenderMetric("Distance", m.units.FormatDistance(m.data.WeekDistance), ""),
		RenderMetric("Time", formatDuration(m.data.WeekTime), ""),
		RenderMetric("TSS", fmt.Sprintf("%d", m.data.WeekTSS), ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(32).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderAssessment() string {
	title := cardTitleStyle.Render("Coach")
	narrative := lipgloss.NewStyle().Width(70).Render(m.snapshot.Assessment.Narrative)
	if m.snapshot.Source == service.SnapshotPrivateNote {
		narrative += "\n" + statusStyle.Render("Based on the training note of your latest ride")
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, narrative))
}

func (m DashboardModel) renderLoadChart() string {
	title := cardTitleStyle.Render(fmt.Sprintf("Fitness and Fatigue - last %d days", len(m.data.CTLHistory)))

	graph := asciigraph.PlotMany([][]float64{m.data.CTLHistory, m.data.ATLHistory},
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.SeriesLegends("CTL", "ATL"),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

func (m DashboardModel) renderWeeklyChart() string {
	title := cardTitleStyle.Render("Weekly TSS")

	graph := asciigraph.Plot(m.data.WeeklyTSS,
		asciigraph.Height(6),
		asciigraph.Width(60),
		asciigraph.Precision(0),
		asciigraph.Caption(m.data.WeeklyLabels[0]+" - "+m.data.WeeklyLabels[len(m.data.WeeklyLabels)-1]),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

func (m DashboardModel) renderRecentActivities() string {
	title := cardTitleStyle.Render("Recent Rides")

	if len(m.data.RecentActivities) == 0 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, "No rides yet"))
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-8s  %-22s  %9s  %8s  %5s  %5s",
		"Date", "Name", "Distance", "Power", "TSS", "IF"))

	rows := []string{header}
	for i, am := range m.data.RecentActivities {
		if i >= 5 {
			break
		}
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-8s  %-22s  %9s  %8s  %5s  %5s",
			am.Activity.StartDateLocal.Format("Jan 02"),
			truncateName(am.Activity.Name, 22),
			m.units.FormatDistance(am.Activity.Distance),
			FormatWatts(ridePower(am)),
			formatTSS(am),
			formatIF(am),
		)))
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}

// ridePower prefers normalized power from the stream over the summary values
func ridePower(am service.ActivityWithMetrics) *float64 {
	if am.Metrics != nil && am.Metrics.NormalizedPower != nil {
		return am.Metrics.NormalizedPower
	}
	if am.Activity.WeightedAverageWatts != nil {
		return am.Activity.WeightedAverageWatts
	}
	return am.Activity.AverageWatts
}

func formatTSS(am service.ActivityWithMetrics) string {
	if am.Metrics == nil || am.Metrics.TSS == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", am.Metrics.TSS)
}

func formatIF(am service.ActivityWithMetrics) string {
	if am.Metrics == nil || am.Metrics.IntensityFactor == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *am.Metrics.IntensityFactor)
}

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
