package strava

import (
	"time"

	"cyclecoach/internal/store"
)

// Activity is a summary activity from /athlete/activities
type Activity struct {
	ID                   int64     `json:"id"`
	Athlete              Athlete   `json:"athlete"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	SportType            string    `json:"sport_type"`
	StartDate            time.Time `json:"start_date"`
	StartDateLocal       time.Time `json:"start_date_local"`
	Timezone             string    `json:"timezone"`
	Distance             float64   `json:"distance"`             // meters
	MovingTime           int       `json:"moving_time"`          // seconds
	ElapsedTime          int       `json:"elapsed_time"`         // seconds
	TotalElevationGain   float64   `json:"total_elevation_gain"` // meters
	AverageSpeed         float64   `json:"average_speed"`        // m/s
	MaxSpeed             float64   `json:"max_speed"`            // m/s
	AverageHeartrate     *float64  `json:"average_heartrate"`
	MaxHeartrate         *float64  `json:"max_heartrate"`
	AverageCadence       *float64  `json:"average_cadence"`
	AverageWatts         *float64  `json:"average_watts"`
	WeightedAverageWatts *float64  `json:"weighted_average_watts"`
	MaxWatts             *float64  `json:"max_watts"`
	Kilojoules           *float64  `json:"kilojoules"`
	DeviceWatts          bool      `json:"device_watts"`
}

// DetailedActivity is the /activities/{id} response. Private notes are only
// returned to the owning athlete.
type DetailedActivity struct {
	Activity
	Description string `json:"description"`
	PrivateNote string `json:"private_note"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// ToStore converts the summary into its stored form
func (a *Activity) ToStore() *store.Activity {
	return &store.Activity{
		ID:                   a.ID,
		AthleteID:            a.Athlete.ID,
		Name:                 a.Name,
		Type:                 a.activityType(),
		StartDate:            a.StartDate,
		StartDateLocal:       a.StartDateLocal,
		Timezone:             a.Timezone,
		Distance:             a.Distance,
		MovingTime:           a.MovingTime,
		ElapsedTime:          a.ElapsedTime,
		TotalElevationGain:   a.TotalElevationGain,
		AverageSpeed:         a.AverageSpeed,
		MaxSpeed:             a.MaxSpeed,
		AverageHeartrate:     a.AverageHeartrate,
		MaxHeartrate:         a.MaxHeartrate,
		AverageCadence:       a.AverageCadence,
		AverageWatts:         a.AverageWatts,
		WeightedAverageWatts: a.WeightedAverageWatts,
		MaxWatts:             a.MaxWatts,
		Kilojoules:           a.Kilojoules,
		DeviceWatts:          a.DeviceWatts,
	}
}

// activityType prefers the legacy type, which is what the ride type set is
// keyed on, and falls back to sport_type.
func (a *Activity) activityType() string {
	if a.Type != "" {
		return a.Type
	}
	return a.SportType
}

// Streams holds the requested streams keyed by type (key_by_type=true).
// Strava sends null for dropped samples; they decode as zero.
type Streams struct {
	Time      *StreamData[int]     `json:"time"`
	Watts     *StreamData[float64] `json:"watts"`
	Heartrate *StreamData[float64] `json:"heartrate"`
	Cadence   *StreamData[float64] `json:"cadence"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

func (s *StreamData[T]) values() []T {
	if s == nil {
		return nil
	}
	return s.Data
}

// HasWatts reports whether a power stream was returned
func (s *Streams) HasWatts() bool {
	return s != nil && len(s.Watts.values()) > 0
}

// ToStore resamples the streams onto a 1 Hz grid using the time stream.
// Recording gaps become zero samples. Without a time stream the samples are
// assumed to already be 1 Hz.
func (s *Streams) ToStore(activityID int64) *store.Streams {
	out := &store.Streams{ActivityID: activityID}
	if s == nil {
		return out
	}

	times := s.Time.values()
	watts, hr, cad := s.Watts.values(), s.Heartrate.values(), s.Cadence.values()

	if len(times) == 0 {
		out.Watts, out.Heartrate, out.Cadence = watts, hr, cad
		return out
	}

	n := times[len(times)-1] - times[0] + 1
	if n <= 0 {
		return out
	}
	out.Watts = resample(times, watts, n)
	out.Heartrate = resample(times, hr, n)
	out.Cadence = resample(times, cad, n)
	return out
}

func resample(times []int, values []float64, n int) []float64 {
	if len(values) == 0 {
		return nil
	}
	grid := make([]float64, n)
	for i, v := range values {
		if i >= len(times) {
			break
		}
		off := times[i] - times[0]
		if off >= 0 && off < n {
			grid[off] = v
		}
	}
	return grid
}
