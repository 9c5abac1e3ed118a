package analysis

// minDecouplingSamples is ten minutes of data
const minDecouplingSamples = 600

// PowerHRDecoupling calculates the power:HR drift between first and second half
// Returns percentage - positive means second half was less efficient
// < 5% on long endurance rides indicates a good aerobic base
func PowerHRDecoupling(stream Stream) float64 {
	if stream.Len() < minDecouplingSamples || len(stream.Heartrate) < minDecouplingSamples {
		return 0
	}

	mid := stream.Len() / 2
	firstEF := halfEfficiency(stream, 0, mid)
	secondEF := halfEfficiency(stream, mid, stream.Len())

	if firstEF == 0 || secondEF == 0 {
		return 0
	}

	// Formula: ((first / second) - 1) * 100
	return ((firstEF / secondEF) - 1) * 100
}

// halfEfficiency uses average rather than normalized power so that halves
// of different variability stay comparable
func halfEfficiency(stream Stream, from, to int) float64 {
	watts, hr := pairedSamples(stream, from, to)
	if len(watts) == 0 {
		return 0
	}
	avgHR := mean(hr)
	if avgHR == 0 {
		return 0
	}
	return mean(watts) / avgHR
}

// DecouplingAssessment returns a human-readable decoupling assessment
func DecouplingAssessment(decoupling float64) string {
	switch {
	case decoupling < 3:
		return "Excellent aerobic base"
	case decoupling < 5:
		return "Good aerobic fitness"
	case decoupling < 8:
		return "Developing aerobic base"
	case decoupling < 12:
		return "Needs more endurance volume"
	default:
		return "Aerobic system needs work"
	}
}
