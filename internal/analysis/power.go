package analysis

import "math"

// normalizedPowerWindow is the rolling average length used by NP, in samples
const normalizedPowerWindow = 30

// BestRollingAverage returns the highest mean of any window contiguous
// samples, sliding one sample at a time. ok is false when the stream is
// shorter than the window.
func BestRollingAverage(samples []float64, window int) (best float64, ok bool) {
	_, best, ok = bestWindow(samples, window)
	return best, ok
}

// bestWindow finds the first window of the given length with the highest
// mean using a sliding sum, O(n).
func bestWindow(samples []float64, window int) (start int, mean float64, ok bool) {
	if window <= 0 || len(samples) < window {
		return 0, 0, false
	}

	sum := 0.0
	for i := 0; i < window; i++ {
		sum += samples[i]
	}
	bestSum := sum

	for right := window; right < len(samples); right++ {
		sum += samples[right] - samples[right-window]
		if sum > bestSum {
			bestSum = sum
			start = right - window + 1
		}
	}

	return start, bestSum / float64(window), true
}

// NormalizedPower computes the 30 s rolling, fourth-power weighted average.
// Streams shorter than the rolling window fall back to the plain mean.
func NormalizedPower(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	if len(samples) < normalizedPowerWindow {
		return mean(samples)
	}

	sum := 0.0
	for i := 0; i < normalizedPowerWindow; i++ {
		sum += samples[i]
	}

	fourthPowerTotal := 0.0
	count := 0
	for i := normalizedPowerWindow - 1; i < len(samples); i++ {
		if i >= normalizedPowerWindow {
			sum += samples[i] - samples[i-normalizedPowerWindow]
		}
		rolling := sum / normalizedPowerWindow
		fourthPowerTotal += math.Pow(rolling, 4)
		count++
	}

	return math.Pow(fourthPowerTotal/float64(count), 0.25)
}

// VariabilityIndex is NP divided by average power
func VariabilityIndex(normalized, average float64) float64 {
	if average <= 0 {
		return 0
	}
	return normalized / average
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range samples {
		total += s
	}
	return total / float64(len(samples))
}
