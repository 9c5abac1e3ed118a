package tui

import (
	"fmt"

	"cyclecoach/internal/config"
)

const (
	metersPerMile = 1609.34
	metersPerKm   = 1000.0
)

// Units provides unit conversion and formatting based on user preferences
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// FormatDistance formats a distance in meters to the user's preferred unit
func (u Units) FormatDistance(meters float64) string {
	return u.FormatDistanceValue(meters) + " " + u.DistanceLabel()
}

// FormatDistanceValue returns just the numeric distance value (no unit label)
func (u Units) FormatDistanceValue(meters float64) string {
	if u.IsMiles() {
		return fmt.Sprintf("%.1f", meters/metersPerMile)
	}
	return fmt.Sprintf("%.1f", meters/metersPerKm)
}

// FormatSpeed formats an average speed in m/s as km/h or mph
func (u Units) FormatSpeed(mps float64) string {
	if mps <= 0 {
		return "-"
	}
	if u.IsMiles() {
		return fmt.Sprintf("%.1f mph", mps*3600/metersPerMile)
	}
	return fmt.Sprintf("%.1f km/h", mps*3600/metersPerKm)
}

// DistanceLabel returns the short unit label ("mi" or "km")
func (u Units) DistanceLabel() string {
	if u.IsMiles() {
		return "mi"
	}
	return "km"
}

// IsMiles returns true if distance unit is miles
func (u Units) IsMiles() bool {
	return u.cfg.DistanceUnit == "mi"
}

// FormatWatts formats an optional power reading
func FormatWatts(w *float64) string {
	if w == nil || *w <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f W", *w)
}
