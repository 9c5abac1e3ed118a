package analysis

import (
	"math"
	"sort"
	"time"
)

// Time constants of the impulse-response model, in days
const (
	CTLTimeConstant = 42
	ATLTimeConstant = 7
)

const dayKeyLayout = "2006-01-02"

// DailyLoad is the training stress attributed to one activity's day
type DailyLoad struct {
	Date time.Time
	TSS  float64
}

// FitnessData is a fitness/fatigue snapshot
type FitnessData struct {
	CTL float64 `json:"ctl"` // Chronic Training Load - "Fitness"
	ATL float64 `json:"atl"` // Acute Training Load - "Fatigue"
	TSB float64 `json:"tsb"` // Training Stress Balance (CTL - ATL) - "Form"
}

// FitnessMetrics represents CTL/ATL/TSB for a day
type FitnessMetrics struct {
	Date time.Time
	FitnessData
}

// CalculateFitnessAndFatigue replays every UTC day between the earliest and
// latest load and returns the rounded CTL and ATL at the last day.
// Empty input yields zero fitness and fatigue.
func CalculateFitnessAndFatigue(dailyLoads []DailyLoad) FitnessData {
	trend := CalculateFitnessTrend(dailyLoads)
	if len(trend) == 0 {
		return FitnessData{}
	}

	last := trend[len(trend)-1]
	ctl := math.Round(last.CTL)
	atl := math.Round(last.ATL)
	return FitnessData{CTL: ctl, ATL: atl, TSB: ctl - atl}
}

// CalculateFitnessTrend computes unrounded CTL/ATL/TSB for each day in the
// range covered by dailyLoads, including days without activity.
func CalculateFitnessTrend(dailyLoads []DailyLoad) []FitnessMetrics {
	if len(dailyLoads) == 0 {
		return nil
	}

	loadMap := make(map[string]float64, len(dailyLoads))
	first := utcDay(dailyLoads[0].Date)
	last := first
	for _, dl := range dailyLoads {
		day := utcDay(dl.Date)
		loadMap[day.Format(dayKeyLayout)] += dl.TSS
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	ctlAlpha := 1.0 / CTLTimeConstant
	atlAlpha := 1.0 / ATLTimeConstant

	var metrics []FitnessMetrics
	var ctl, atl float64

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		tss := loadMap[d.Format(dayKeyLayout)] // 0 if no activity

		ctl = ctl*(1-ctlAlpha) + tss*ctlAlpha
		atl = atl*(1-atlAlpha) + tss*atlAlpha

		metrics = append(metrics, FitnessMetrics{
			Date:        d,
			FitnessData: FitnessData{CTL: ctl, ATL: atl, TSB: ctl - atl},
		})
	}

	return metrics
}

// DailyLoadsFromActivities computes one DailyLoad per activity, keyed by the
// activity's UTC start date. Activities without power contribute zero load.
func DailyLoadsFromActivities(activities []Activity, ftp float64) []DailyLoad {
	loads := make([]DailyLoad, 0, len(activities))
	for _, a := range activities {
		loads = append(loads, DailyLoad{
			Date: a.StartDate.UTC(),
			TSS:  float64(CalculateTSS(a, ftp)),
		})
	}
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].Date.Before(loads[j].Date)
	})
	return loads
}

// HasLoad reports whether any entry carries non-zero stress
func HasLoad(dailyLoads []DailyLoad) bool {
	for _, dl := range dailyLoads {
		if dl.TSS > 0 {
			return true
		}
	}
	return false
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FormDescription returns a human-readable description of TSB
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 5:
		return "Fresh and ready for a hard session"
	case tsb > -10:
		return "Productive training"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
