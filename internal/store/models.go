package store

import "time"

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Activity represents a Strava activity summary with its power fields
type Activity struct {
	ID                   int64
	AthleteID            int64
	Name                 string
	Type                 string
	StartDate            time.Time
	StartDateLocal       time.Time
	Timezone             string
	Distance             float64  // meters
	MovingTime           int      // seconds
	ElapsedTime          int      // seconds
	TotalElevationGain   float64  // meters
	AverageSpeed         float64  // m/s
	MaxSpeed             float64  // m/s
	AverageHeartrate     *float64 // nullable
	MaxHeartrate         *float64 // nullable
	AverageCadence       *float64 // nullable
	AverageWatts         *float64 // nullable
	WeightedAverageWatts *float64 // nullable
	MaxWatts             *float64 // nullable
	Kilojoules           *float64 // nullable
	DeviceWatts          bool     // power measured by a meter, not estimated
	Description          string
	PrivateNote          string
	StreamsSynced        bool
}

// HasPower reports whether the summary carries any power reading
func (a *Activity) HasPower() bool {
	return (a.AverageWatts != nil && *a.AverageWatts > 0) ||
		(a.WeightedAverageWatts != nil && *a.WeightedAverageWatts > 0)
}

// Streams holds the 1 Hz sample series of one activity
type Streams struct {
	ActivityID int64
	Watts      []float64
	Heartrate  []float64
	Cadence    []float64
}

// ActivityMetrics represents computed power metrics for an activity
type ActivityMetrics struct {
	ActivityID       int64
	FTP              float64
	TSS              int
	IntensityFactor  *float64
	NormalizedPower  *float64
	VariabilityIndex *float64
	EfficiencyFactor *float64
	Decoupling       *float64
	BestPower20m     *float64
	DataQualityScore *float64
}

// FitnessTrend represents one day of the training load series
type FitnessTrend struct {
	Date        string // YYYY-MM-DD, UTC
	TSS         float64
	CTL         float64
	ATL         float64
	TSB         float64
	RideCount7d int
	TotalTSS7d  float64
}

// PowerRecord is the best average power held for a fixed duration
type PowerRecord struct {
	ID              int64
	Category        string // e.g. "power_5s", "power_20m"
	ActivityID      int64
	DurationSeconds int
	AvgWatts        float64
	AvgHeartrate    *float64
	AchievedAt      time.Time
	StartOffset     int
	EndOffset       int
}
