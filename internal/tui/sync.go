package tui

import (
	"context"
	"fmt"
	"strings"

	"cyclecoach/internal/service"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var phaseLabels = []struct {
	phase string
	label string
}{
	{service.PhaseActivities, "Fetch new rides from Strava"},
	{service.PhaseDetails, "Fetch ride notes"},
	{service.PhaseStreams, "Download power streams"},
	{service.PhaseMetrics, "Compute TSS and power records"},
	{service.PhaseFitness, "Rebuild the fitness trend"},
}

// SyncModel is the sync screen model
type SyncModel struct {
	syncService *service.SyncService
	spinner     spinner.Model
	syncing     bool
	progress    service.SyncProgress
	updates     chan service.SyncProgress
	finished    chan SyncDoneMsg
	result      *service.SyncResult
	err         error
	done        bool
}

// NewSyncModel creates a new sync model
func NewSyncModel(ss *service.SyncService) SyncModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return SyncModel{
		syncService: ss,
		spinner:     s,
	}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

type syncProgressMsg service.SyncProgress

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case syncProgressMsg:
		m.progress = service.SyncProgress(msg)
		return m, m.waitForProgress

	case SyncDoneMsg:
		m.syncing = false
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		summary := m.summaryLine()
		return m, func() tea.Msg { return SyncCompleteMsg{Summary: summary} }

	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if !m.syncing {
			switch msg.String() {
			case "enter", "s":
				m.syncing = true
				m.done = false
				m.err = nil
				m.result = nil
				m.progress = service.SyncProgress{}
				m.updates = make(chan service.SyncProgress, 16)
				m.finished = make(chan SyncDoneMsg, 1)
				go m.runSync()
				return m, tea.Batch(m.spinner.Tick, m.waitForProgress)
			}
		}
	}
	return m, nil
}

// runSync drives the sync; the progress channel is closed by SyncAll on return
func (m SyncModel) runSync() {
	result, err := m.syncService.SyncAll(context.Background(), service.DefaultUserID, m.updates)
	m.finished <- SyncDoneMsg{Result: result, Err: err}
}

func (m SyncModel) waitForProgress() tea.Msg {
	p, ok := <-m.updates
	if !ok {
		return <-m.finished
	}
	return syncProgressMsg(p)
}

// View renders the sync screen
func (m SyncModel) View() string {
	sections := []string{cardTitleStyle.Render("Strava Sync")}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.done && !m.syncing {
		sections = append(sections, successStyle.Render("\n  Sync complete!"))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to go to dashboard"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.syncing {
		sections = append(sections, m.renderProgress())
	} else {
		sections = append(sections, m.renderStartPrompt())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	lines := []string{"", "  This will sync your Strava rides:", ""}
	for i, p := range phaseLabels {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, p.label))
	}
	lines = append(lines, "")

	short, daily := m.syncService.RateLimitStatus()
	lines = append(lines, statusStyle.Render(fmt.Sprintf("  API requests left: %d (15min), %d (daily)", short, daily)))
	lines = append(lines, "")
	lines = append(lines, statusStyle.Render("  Press 's' or Enter to start sync"))

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderProgress() string {
	lines := []string{"", "  " + m.spinner.View() + " Syncing with Strava...", ""}

	current := -1
	for i, p := range phaseLabels {
		if p.phase == m.progress.Phase {
			current = i
		}
	}

	for i, p := range phaseLabels {
		line := fmt.Sprintf("  %d. %s", i+1, p.label)
		switch {
		case i < current:
			lines = append(lines, successStyle.Render(line))
		case i == current:
			lines = append(lines, metricValueStyle.Render(line))
		default:
			lines = append(lines, statusStyle.Render(line))
		}
	}

	if m.progress.Total > 0 {
		pct := float64(m.progress.Completed) / float64(m.progress.Total)
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("  %s %d/%d", RenderProgressBar(pct, 40), m.progress.Completed, m.progress.Total))
	}
	if m.progress.CurrentActivity != "" {
		lines = append(lines, statusStyle.Render("  "+truncateName(m.progress.CurrentActivity, 50)))
	}

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderSummary() string {
	if m.result == nil {
		return ""
	}

	r := m.result
	lines := []string{""}

	if r.ActivitiesStored > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d activities synced", r.ActivitiesStored)))
	} else {
		lines = append(lines, statusStyle.Render("  No new activities"))
	}
	if r.StreamsFetched > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d power streams downloaded", r.StreamsFetched)))
	}
	if r.MetricsComputed > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d rides scored", r.MetricsComputed)))
	}
	if r.RecordsUpdated > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d power records updated", r.RecordsUpdated)))
	}
	if r.FTP.Watts > 0 {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  FTP %d W (%s)", r.FTP.Watts, r.FTP.Source)))
	}

	if len(r.Errors) > 0 {
		lines = append(lines, "")
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d errors occurred", len(r.Errors))))
		for i, err := range r.Errors {
			if i >= 3 {
				break
			}
			lines = append(lines, statusStyle.Render("  - "+truncateName(err.Error(), 70)))
		}
	}

	return strings.Join(lines, "\n")
}

func (m SyncModel) summaryLine() string {
	if m.err != nil {
		return "Sync failed: " + m.err.Error()
	}
	if m.result == nil {
		return ""
	}
	return fmt.Sprintf("Last sync: %d rides, %d scored", m.result.ActivitiesStored, m.result.MetricsComputed)
}
