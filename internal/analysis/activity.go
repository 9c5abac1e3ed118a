package analysis

import (
	"maps"
	"slices"
	"time"
)

// Activity is a completed session as seen by the training load engine.
// It is read-only input; callers convert from their storage or API types.
type Activity struct {
	ID                   int64
	Name                 string
	Type                 string
	DistanceM            float64 // meters
	MovingTimeS          int     // seconds
	ElapsedTimeS         int     // seconds
	StartDate            time.Time
	StartDateLocal       time.Time
	AverageWatts         *float64
	WeightedAverageWatts *float64
	ElevationGainM       float64
	AverageSpeed         float64 // m/s
	AverageCadence       *float64
	AverageHeartrate     *float64
	Description          string
	PrivateNote          string
}

// powerBearingTypes are the activity types whose power fields are meaningful
// for threshold estimation.
var powerBearingTypes = map[string]bool{
	"Ride":             true,
	"VirtualRide":      true,
	"EBikeRide":        true,
	"GravelRide":       true,
	"MountainBikeRide": true,
	"Velomobile":       true,
	"Handcycle":        true,
}

// IsPowerBearing reports whether activities of this type carry power data
func IsPowerBearing(activityType string) bool {
	return powerBearingTypes[activityType]
}

// PowerBearingTypes lists the power-bearing activity types in name order
func PowerBearingTypes() []string {
	return slices.Sorted(maps.Keys(powerBearingTypes))
}

// Power returns the preferred power signal: weighted average power when
// present, otherwise plain average power.
func (a Activity) Power() (float64, bool) {
	if a.WeightedAverageWatts != nil && *a.WeightedAverageWatts > 0 {
		return *a.WeightedAverageWatts, true
	}
	if a.AverageWatts != nil && *a.AverageWatts > 0 {
		return *a.AverageWatts, true
	}
	return 0, false
}

// HasPower reports whether the activity exposes average or weighted power
func (a Activity) HasPower() bool {
	_, ok := a.Power()
	return ok
}

// DistanceKm returns the distance in kilometers
func (a Activity) DistanceKm() float64 {
	return a.DistanceM / 1000
}
