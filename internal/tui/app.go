package tui

import (
	"cyclecoach/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenRides
	ScreenRecords
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	dashboard  DashboardModel
	rides      ActivitiesModel
	records    RecordsModel
	syncScreen SyncModel
	help       HelpModel

	queryService    *service.QueryService
	analysisService *service.AnalysisService
	syncService     *service.SyncService
	units           Units

	width  int
	height int

	status string
}

// NewApp creates a new App with all dependencies
func NewApp(queryService *service.QueryService, analysisService *service.AnalysisService, syncService *service.SyncService, units Units) *App {
	return &App{
		screen:          ScreenDashboard,
		queryService:    queryService,
		analysisService: analysisService,
		syncService:     syncService,
		units:           units,
		dashboard:       NewDashboardModel(queryService, analysisService, units),
		rides:           NewActivitiesModel(queryService, units),
		records:         NewRecordsModel(queryService, 0, 0),
		syncScreen:      NewSyncModel(syncService),
		help:            NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.dashboard.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings are disabled while a sync is running
		if a.screen != ScreenSync || !a.syncScreen.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				a.dashboard = NewDashboardModel(a.queryService, a.analysisService, a.units)
				return a, a.dashboard.Init()
			case "2":
				a.screen = ScreenRides
				return a, a.rides.Init()
			case "3":
				a.screen = ScreenRecords
				a.records = NewRecordsModel(a.queryService, a.width, a.height)
				return a, a.records.Init()
			case "4", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
				// 's' starts the sync when already on the sync screen
			case "?":
				a.prevScreen = a.screen
				a.screen = ScreenHelp
				return a, nil
			case "esc":
				if a.screen == ScreenHelp {
					a.screen = a.prevScreen
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var m tea.Model
		m, _ = a.records.Update(msg)
		a.records = m.(RecordsModel)

	case SyncCompleteMsg:
		a.status = msg.Summary
		a.dashboard = NewDashboardModel(a.queryService, a.analysisService, a.units)
		return a, a.dashboard.Init()
	}

	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenRides:
		var m tea.Model
		m, cmd = a.rides.Update(msg)
		a.rides = m.(ActivitiesModel)
	case ScreenRecords:
		var m tea.Model
		m, cmd = a.records.Update(msg)
		a.records = m.(RecordsModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenRides:
		content = a.rides.View()
	case ScreenRecords:
		content = a.records.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, a.renderHeader(), a.renderNav(), content, a.renderFooter())
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Cycle Coach")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Rides", ScreenRides},
		{"3", "Power Records", ScreenRecords},
		{"4", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}

// SyncCompleteMsg is sent when sync finishes
type SyncCompleteMsg struct {
	Summary string
}
