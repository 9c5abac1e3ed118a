package analysis

import "math"

// CalculateTSS computes the Training Stress Score of a single activity.
//
// TSS = movingTime * power * IF / (FTP * 3600) * 100, with IF = power / FTP.
// Returns 0 when the activity has no usable power, no moving time, or the
// FTP is not positive.
func CalculateTSS(a Activity, ftp float64) int {
	power, ok := a.Power()
	if !ok || a.MovingTimeS <= 0 || ftp <= 0 {
		return 0
	}

	intensityFactor := power / ftp
	tss := float64(a.MovingTimeS) * power * intensityFactor / (ftp * 3600) * 100
	return int(math.Round(tss))
}

// IntensityFactor returns power / FTP, or 0 when either is unavailable
func IntensityFactor(a Activity, ftp float64) float64 {
	power, ok := a.Power()
	if !ok || ftp <= 0 {
		return 0
	}
	return power / ftp
}
