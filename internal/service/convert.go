package service

import (
	"cyclecoach/internal/analysis"
	"cyclecoach/internal/store"
)

// toAnalysisActivity converts a stored activity into engine input
func toAnalysisActivity(a *store.Activity) analysis.Activity {
	return analysis.Activity{
		ID:                   a.ID,
		Name:                 a.Name,
		Type:                 a.Type,
		DistanceM:            a.Distance,
		MovingTimeS:          a.MovingTime,
		ElapsedTimeS:         a.ElapsedTime,
		StartDate:            a.StartDate,
		StartDateLocal:       a.StartDateLocal,
		AverageWatts:         a.AverageWatts,
		WeightedAverageWatts: a.WeightedAverageWatts,
		ElevationGainM:       a.TotalElevationGain,
		AverageSpeed:         a.AverageSpeed,
		AverageCadence:       a.AverageCadence,
		AverageHeartrate:     a.AverageHeartrate,
		Description:          a.Description,
		PrivateNote:          a.PrivateNote,
	}
}

func toAnalysisActivities(activities []store.Activity) []analysis.Activity {
	out := make([]analysis.Activity, len(activities))
	for i := range activities {
		out[i] = toAnalysisActivity(&activities[i])
	}
	return out
}

func toAnalysisStream(s *store.Streams) analysis.Stream {
	if s == nil {
		return analysis.Stream{}
	}
	return analysis.Stream{Watts: s.Watts, Heartrate: s.Heartrate, Cadence: s.Cadence}
}

func toStoreMetrics(m analysis.ActivityMetrics) *store.ActivityMetrics {
	return &store.ActivityMetrics{
		ActivityID:       m.ActivityID,
		FTP:              m.FTP,
		TSS:              m.TSS,
		IntensityFactor:  m.IntensityFactor,
		NormalizedPower:  m.NormalizedPower,
		VariabilityIndex: m.VariabilityIndex,
		EfficiencyFactor: m.EfficiencyFactor,
		Decoupling:       m.Decoupling,
		BestPower20m:     m.BestPower20m,
		DataQualityScore: m.DataQualityScore,
	}
}
