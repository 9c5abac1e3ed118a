package analysis

// Stream holds aligned 1 Hz samples for one activity. Heartrate and Cadence
// may be empty or shorter than Watts.
type Stream struct {
	Watts     []float64
	Heartrate []float64
	Cadence   []float64
}

// Len returns the number of power samples
func (s Stream) Len() int {
	return len(s.Watts)
}

// BestEffort is the highest average power held for a fixed duration
type BestEffort struct {
	DurationSeconds int
	AvgWatts        float64
	StartOffset     int // sample index where the effort starts
	EndOffset       int // sample index one past the end of the effort
	AvgHeartrate    float64
}

// Standard effort durations in seconds
const (
	Effort5s   = 5
	Effort1m   = 60
	Effort5m   = 300
	Effort20m  = 1200
	Effort60m  = 3600
	MinSamples = 5 // minimum samples needed for any effort
)

// EffortDurations are the power-curve points tracked per ride
var EffortDurations = []int{Effort5s, Effort1m, Effort5m, Effort20m, Effort60m}

// EffortCategories maps durations to their category names
var EffortCategories = map[int]string{
	Effort5s:  "power_5s",
	Effort1m:  "power_1m",
	Effort5m:  "power_5m",
	Effort20m: "power_20m",
	Effort60m: "power_60m",
}

// FindBestPowerEffort finds the highest-power window of the given length.
// Returns nil when the stream is too short.
func FindBestPowerEffort(stream Stream, seconds int) *BestEffort {
	if stream.Len() < MinSamples {
		return nil
	}
	bestStart, avg, ok := bestWindow(stream.Watts, seconds)
	if !ok {
		return nil
	}

	return &BestEffort{
		DurationSeconds: seconds,
		AvgWatts:        avg,
		StartOffset:     bestStart,
		EndOffset:       bestStart + seconds,
		AvgHeartrate:    segmentAvgHR(stream.Heartrate, bestStart, bestStart+seconds),
	}
}

// PowerCurve returns the best effort for each of EffortDurations the stream
// is long enough to hold.
func PowerCurve(stream Stream) map[int]BestEffort {
	curve := make(map[int]BestEffort)
	for _, d := range EffortDurations {
		if effort := FindBestPowerEffort(stream, d); effort != nil {
			curve[d] = *effort
		}
	}
	return curve
}

// segmentAvgHR averages plausible heart rate samples in [left, right)
func segmentAvgHR(hr []float64, left, right int) float64 {
	if right > len(hr) {
		right = len(hr)
	}

	var hrSum float64
	var hrCount int
	for i := left; i < right; i++ {
		if validHeartrate(hr[i]) {
			hrSum += hr[i]
			hrCount++
		}
	}

	if hrCount > 0 {
		return hrSum / float64(hrCount)
	}
	return 0
}

func validHeartrate(hr float64) bool {
	return hr > 50 && hr < 220
}
