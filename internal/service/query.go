package service

import (
	"time"

	"cyclecoach/internal/analysis"
	"cyclecoach/internal/store"
)

// chartWeeks is the range of the weekly load chart
const chartWeeks = 12

// QueryService provides read-only queries for the TUI and the HTTP API
type QueryService struct {
	store *store.DB
	now   func() time.Time
}

// NewQueryService creates a new query service
func NewQueryService(db *store.DB) *QueryService {
	return &QueryService{store: db, now: time.Now}
}

// DashboardData contains all data needed for the dashboard
type DashboardData struct {
	// Current fitness, from the stored daily series
	Fitness         analysis.FitnessData
	FormDescription string
	TrendDate       string

	// This week
	WeekRideCount int
	WeekDistance  float64 // meters
	WeekTime      int     // seconds
	WeekTSS       int

	RecentActivities []ActivityWithMetrics

	// For charts, oldest first
	CTLHistory   []float64
	ATLHistory   []float64
	WeeklyTSS    []float64
	WeeklyLabels []string
}

// ActivityWithMetrics combines activity and its metrics. Metrics is nil
// until a sync has computed them.
type ActivityWithMetrics struct {
	Activity store.Activity
	Metrics  *store.ActivityMetrics
}

// PowerRecordWithActivity pairs a power record with the ride that set it
type PowerRecordWithActivity struct {
	Record   store.PowerRecord
	Activity *store.Activity
}

// GetDashboardData fetches all data needed for the dashboard
func (q *QueryService) GetDashboardData() (*DashboardData, error) {
	data := &DashboardData{}

	recent, err := q.GetActivitiesList(RecentActivitiesLimit, 0)
	if err != nil {
		return nil, err
	}
	data.RecentActivities = recent

	trends, err := q.store.GetFitnessTrends(DefaultTrendDays)
	if err != nil {
		return nil, err
	}
	if len(trends) > 0 {
		last := trends[len(trends)-1]
		data.Fitness = analysis.FitnessData{CTL: last.CTL, ATL: last.ATL, TSB: last.TSB}
		data.FormDescription = analysis.FormDescription(last.TSB)
		data.TrendDate = last.Date
	}
	for _, t := range trends {
		data.CTLHistory = append(data.CTLHistory, t.CTL)
		data.ATLHistory = append(data.ATLHistory, t.ATL)
	}

	now := q.now()
	weekStart := getMonday(now)
	windowStart := weekStart.AddDate(0, 0, -7*(chartWeeks-1))

	activities, err := q.store.ListActivitiesSince(windowStart)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	metrics, err := q.store.GetMetricsByActivity(ids)
	if err != nil {
		return nil, err
	}

	data.WeeklyTSS = make([]float64, chartWeeks)
	data.WeeklyLabels = make([]string, chartWeeks)
	for i := range chartWeeks {
		data.WeeklyLabels[i] = windowStart.AddDate(0, 0, 7*i).Format("Jan 02")
	}

	for _, a := range activities {
		tss := 0
		if m := metrics[a.ID]; m != nil {
			tss = m.TSS
		}

		idx := int(a.StartDate.Sub(windowStart).Hours() / (24 * 7))
		if idx >= 0 && idx < chartWeeks {
			data.WeeklyTSS[idx] += float64(tss)
		}

		if !a.StartDate.Before(weekStart) && analysis.IsPowerBearing(a.Type) {
			data.WeekRideCount++
			data.WeekDistance += a.Distance
			data.WeekTime += a.MovingTime
			data.WeekTSS += tss
		}
	}

	return data, nil
}

// GetActivitiesList returns activities newest first, paired with their metrics
func (q *QueryService) GetActivitiesList(limit, offset int) ([]ActivityWithMetrics, error) {
	activities, err := q.store.ListActivities(limit, offset)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	metrics, err := q.store.GetMetricsByActivity(ids)
	if err != nil {
		return nil, err
	}

	result := make([]ActivityWithMetrics, len(activities))
	for i := range activities {
		result[i] = ActivityWithMetrics{
			Activity: activities[i],
			Metrics:  metrics[activities[i].ID],
		}
	}
	return result, nil
}

// GetTotalActivityCount returns the total number of activities
func (q *QueryService) GetTotalActivityCount() (int, error) {
	return q.store.CountActivities()
}

// GetPowerRecords returns the power curve records, shortest duration first
func (q *QueryService) GetPowerRecords() ([]PowerRecordWithActivity, error) {
	records, err := q.store.GetAllPowerRecords()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ActivityID
	}
	activities, err := q.store.GetActivitiesByIDs(ids)
	if err != nil {
		return nil, err
	}

	result := make([]PowerRecordWithActivity, len(records))
	for i, r := range records {
		result[i] = PowerRecordWithActivity{Record: r, Activity: activities[r.ActivityID]}
	}
	return result, nil
}

// GetFitnessTrend returns the last days of the stored CTL/ATL/TSB series
func (q *QueryService) GetFitnessTrend(days int) ([]store.FitnessTrend, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	return q.store.GetFitnessTrends(days)
}

// getMonday returns the start of t's week in t's location
func getMonday(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	y, m, d := t.AddDate(0, 0, -(weekday - 1)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
