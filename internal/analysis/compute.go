package analysis

// ActivityMetrics are the derived per-ride numbers persisted after sync.
// Nil pointers mean the metric could not be computed.
type ActivityMetrics struct {
	ActivityID       int64
	FTP              float64 // FTP the load numbers were computed against
	TSS              int
	IntensityFactor  *float64
	NormalizedPower  *float64
	VariabilityIndex *float64
	EfficiencyFactor *float64
	Decoupling       *float64
	BestPower20m     *float64
	DataQualityScore *float64 // fraction of samples with heart rate
}

// ComputeActivityMetrics calculates all metrics for a single ride. The
// stream may be empty, in which case only summary-based metrics are filled.
func ComputeActivityMetrics(a Activity, stream Stream, ftp float64) ActivityMetrics {
	metrics := ActivityMetrics{
		ActivityID: a.ID,
		FTP:        ftp,
		TSS:        CalculateTSS(a, ftp),
	}

	if intensity := IntensityFactor(a, ftp); intensity > 0 {
		metrics.IntensityFactor = &intensity
	}

	if stream.Len() == 0 {
		return metrics
	}

	np := NormalizedPower(stream.Watts)
	if np > 0 {
		metrics.NormalizedPower = &np
	}

	if vi := VariabilityIndex(np, mean(stream.Watts)); vi > 0 {
		metrics.VariabilityIndex = &vi
	}

	if ef := PowerEfficiencyFactor(stream); ef > 0 {
		metrics.EfficiencyFactor = &ef
	}

	if decoupling := PowerHRDecoupling(stream); decoupling != 0 {
		metrics.Decoupling = &decoupling
	}

	if best, ok := BestRollingAverage(stream.Watts, Effort20m); ok {
		metrics.BestPower20m = &best
	}

	quality := HeartrateCoverage(stream)
	metrics.DataQualityScore = &quality

	return metrics
}

// DataQualityDescription returns a human-readable data quality assessment
func DataQualityDescription(score float64) string {
	switch {
	case score >= 0.95:
		return "Excellent"
	case score >= 0.85:
		return "Good"
	case score >= 0.70:
		return "Fair"
	case score >= 0.50:
		return "Poor"
	default:
		return "Very Poor"
	}
}
