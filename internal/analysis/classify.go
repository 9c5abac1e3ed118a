package analysis

import (
	"errors"
	"fmt"
	"math"
)

// Thresholds are the classification boundaries for coaching tiers.
//
// Defaults: overtraining at TSB <= -25, high fatigue at ATL > 80, fresh at
// TSB > 5, productive at TSB > -10. Anything between the productive and
// overtraining bounds is building fatigue.
type Thresholds struct {
	OvertrainingTSB float64
	HighFatigueATL  float64
	FreshTSB        float64
	ProductiveTSB   float64
}

// DefaultThresholds returns the canonical threshold set
func DefaultThresholds() Thresholds {
	return Thresholds{
		OvertrainingTSB: -25,
		HighFatigueATL:  80,
		FreshTSB:        5,
		ProductiveTSB:   -10,
	}
}

// Validate checks that the TSB bands are ordered
func (t Thresholds) Validate() error {
	if !(t.OvertrainingTSB < t.ProductiveTSB && t.ProductiveTSB < t.FreshTSB) {
		return fmt.Errorf("thresholds must satisfy overtraining_tsb < productive_tsb < fresh_tsb, got %v < %v < %v",
			t.OvertrainingTSB, t.ProductiveTSB, t.FreshTSB)
	}
	if t.HighFatigueATL <= 0 {
		return errors.New("high_fatigue_atl must be positive")
	}
	return nil
}

// Tier is a coaching guidance level
type Tier int

const (
	TierOvertraining Tier = iota
	TierHighFatigue
	TierFresh
	TierProductive
	TierBuildingFatigue
)

func (t Tier) String() string {
	switch t {
	case TierOvertraining:
		return "overtraining"
	case TierHighFatigue:
		return "high_fatigue"
	case TierFresh:
		return "fresh"
	case TierProductive:
		return "productive"
	case TierBuildingFatigue:
		return "building_fatigue"
	default:
		return "unknown"
	}
}

// MarshalText encodes the tier by name
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Label returns a display name for the tier
func (t Tier) Label() string {
	switch t {
	case TierOvertraining:
		return "Overtraining warning"
	case TierHighFatigue:
		return "High fatigue"
	case TierFresh:
		return "Fresh"
	case TierProductive:
		return "Productive"
	case TierBuildingFatigue:
		return "Building fatigue"
	default:
		return "Unknown"
	}
}

// IsOvertraining is the hard safety predicate: TSB at or below the
// overtraining threshold.
func IsOvertraining(tsb float64, t Thresholds) bool {
	return tsb <= t.OvertrainingTSB
}

// Classify maps a fitness snapshot to a tier. Overtraining is evaluated
// first, then high fatigue, then the TSB bands.
func Classify(f FitnessData, t Thresholds) Tier {
	switch {
	case IsOvertraining(f.TSB, t):
		return TierOvertraining
	case f.ATL > t.HighFatigueATL:
		return TierHighFatigue
	case f.TSB > t.FreshTSB:
		return TierFresh
	case f.TSB > t.ProductiveTSB:
		return TierProductive
	default:
		return TierBuildingFatigue
	}
}

// Assessment is a tier with its coaching narrative
type Assessment struct {
	Tier      Tier   `json:"tier"`
	Narrative string `json:"narrative"`
}

// Assess classifies the snapshot and renders the narrative for the latest
// activity and its TSS.
func Assess(latest Activity, tss int, f FitnessData, t Thresholds) Assessment {
	tier := Classify(f, t)
	return Assessment{
		Tier:      tier,
		Narrative: Narrative(latest, tss, f, tier),
	}
}

var tierAdvice = map[Tier]string{
	TierOvertraining:    "You are very fatigued and need rest. Stop hard training now: take a full recovery day, and do not add intensity until your form recovers.",
	TierHighFatigue:     "Your fatigue is high. Keep the next sessions easy and avoid intense efforts until it comes down.",
	TierFresh:           "You should be feeling fresh and recovered. It's a great time for a key workout or to push your limits.",
	TierProductive:      "You're in a productive training state. You're building fitness, but make sure to keep an eye on recovery.",
	TierBuildingFatigue: "You're carrying significant fatigue. This is expected during a hard block, but ensure you have recovery planned soon.",
}

// Narrative renders the coaching message. It always reports the activity
// type, distance and TSS along with CTL and ATL.
func Narrative(latest Activity, tss int, f FitnessData, tier Tier) string {
	activityType := latest.Type
	if activityType == "" {
		activityType = "activity"
	}

	return fmt.Sprintf("This %s of %d km earned you %d TSS. %s Your current fitness (CTL) is %d and your fatigue (ATL) is %d.",
		activityType,
		int(math.Round(latest.DistanceKm())),
		tss,
		tierAdvice[tier],
		int(math.Round(f.CTL)),
		int(math.Round(f.ATL)),
	)
}
