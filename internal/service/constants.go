package service

const (
	// RecentActivitiesLimit is the number of rides shown on the dashboard
	RecentActivitiesLimit = 10
	// StreamBatchSize caps stream fetches per sync to stay inside the
	// 15-minute rate limit window
	StreamBatchSize = 50
	// DetailBatchSize caps detail fetches (private note, description) per sync
	DetailBatchSize = 50
	// activitiesPerPage is the page size used while syncing
	activitiesPerPage = 100
	// DefaultTrendDays is the fitness chart range
	DefaultTrendDays = 90
	// trendRollingDays is the window of the ride count and TSS totals
	trendRollingDays = 7
	// DefaultUserID identifies the single local rider of the terminal app
	DefaultUserID = "local"
)

// Sync phases reported through SyncProgress
const (
	PhaseActivities = "activities"
	PhaseDetails    = "details"
	PhaseStreams    = "streams"
	PhaseMetrics    = "metrics"
	PhaseFitness    = "fitness"
)
