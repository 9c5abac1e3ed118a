package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyHelp struct {
	key  string
	desc string
}

var helpSections = []struct {
	title string
	keys  []keyHelp
}{
	{"Navigation", []keyHelp{
		{"1", "Dashboard"},
		{"2", "Ride list"},
		{"3", "Power records"},
		{"4 or s", "Sync screen"},
		{"?", "Help (this screen)"},
		{"esc", "Close help"},
		{"q", "Quit"},
	}},
	{"Dashboard", []keyHelp{{"r", "Refresh"}}},
	{"Ride List", []keyHelp{
		{"j / k", "Move cursor"},
		{"pgdn / pgup", "Next / previous page"},
		{"r", "Refresh"},
	}},
	{"Power Records", []keyHelp{{"j / k", "Scroll"}, {"r", "Refresh"}}},
	{"Sync Screen", []keyHelp{{"s / enter", "Start sync"}}},
}

var metricGlossary = []keyHelp{
	{"TSS (Training Stress Score)", "Load of one ride: an hour at FTP scores 100."},
	{"IF (Intensity Factor)", "Ride power divided by FTP. Above 0.85 is hard work."},
	{"FTP", "Functional threshold power. Profile or config value, else 95% of your best 20 min."},
	{"CTL (Fitness)", "Chronic training load, a 42 day weighted average of daily TSS."},
	{"ATL (Fatigue)", "Acute training load, a 7 day weighted average of daily TSS."},
	{"TSB (Form)", "Training stress balance = CTL - ATL. Positive means fresh."},
	{"Overtraining warning", "Form at or below the overtraining threshold. Rest until it recovers."},
	{"High fatigue", "Fatigue above the high fatigue threshold. Favour easy riding."},
}

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	sections := []string{cardTitleStyle.Render("Keyboard Shortcuts")}

	for _, s := range helpSections {
		lines := []string{"", sectionTitle(s.title)}
		for _, k := range s.keys {
			lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	lines := []string{"", sectionTitle("Metrics Explained"), ""}
	for _, g := range metricGlossary {
		lines = append(lines, "  "+helpKeyStyle.Render(g.key), "  "+helpDescStyle.Render(g.desc), "")
	}
	sections = append(sections, strings.Join(lines, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func sectionTitle(title string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(secondaryColor).Render(title)
}
