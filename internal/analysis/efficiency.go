package analysis

// PowerEfficiencyFactor calculates the power:HR efficiency factor
// Returns: normalized power / average heart rate
// Higher is better - more watts for the same cardiac cost
// Typical values for trained cyclists range from 1.2 to 2.0
func PowerEfficiencyFactor(stream Stream) float64 {
	watts, hr := pairedSamples(stream, 0, stream.Len())
	if len(watts) == 0 {
		return 0
	}

	avgHR := mean(hr)
	if avgHR == 0 {
		return 0
	}
	return NormalizedPower(watts) / avgHR
}

// pairedSamples returns the power and heart rate samples in [from, to) where
// both are present and plausible. Coasting (0 W) samples are dropped.
func pairedSamples(stream Stream, from, to int) (watts, hr []float64) {
	if to > len(stream.Heartrate) {
		to = len(stream.Heartrate)
	}
	if to > len(stream.Watts) {
		to = len(stream.Watts)
	}

	for i := from; i < to; i++ {
		w := stream.Watts[i]
		h := stream.Heartrate[i]
		if w > 0 && validHeartrate(h) {
			watts = append(watts, w)
			hr = append(hr, h)
		}
	}
	return watts, hr
}

// HeartrateCoverage returns the fraction of samples with plausible heart rate
func HeartrateCoverage(stream Stream) float64 {
	if stream.Len() == 0 {
		return 0
	}
	valid := 0
	for i := 0; i < stream.Len() && i < len(stream.Heartrate); i++ {
		if validHeartrate(stream.Heartrate[i]) {
			valid++
		}
	}
	return float64(valid) / float64(stream.Len())
}
