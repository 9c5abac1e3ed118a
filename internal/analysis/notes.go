package analysis

import (
	"context"
	"regexp"
	"sort"
	"strconv"
)

// Metric tags written into activity private notes by earlier versions of
// the coaching pipeline.
var (
	noteFitnessRe      = regexp.MustCompile(`Fitness (\d+)`)
	noteFatigueRe      = regexp.MustCompile(`Fatigue (\d+)`)
	noteBalanceRe      = regexp.MustCompile(`Balance (-?\d+)`)
	noteOvertrainingRe = regexp.MustCompile(`Overtraining warning \((\d+)\)`)
)

// NoteMetrics are metrics recovered from a private note
type NoteMetrics struct {
	ActivityID   int64
	Fitness      FitnessData
	Overtraining bool
}

// ParsePrivateNote extracts embedded Fitness/Fatigue/Balance tags. ok is
// false when none of the tags is present. A missing Balance is derived from
// fitness and fatigue.
func ParsePrivateNote(note string) (NoteMetrics, bool) {
	var m NoteMetrics
	found := false
	hasBalance := false

	if v, ok := matchInt(noteFitnessRe, note); ok {
		m.Fitness.CTL = float64(v)
		found = true
	}
	if v, ok := matchInt(noteFatigueRe, note); ok {
		m.Fitness.ATL = float64(v)
		found = true
	}
	if v, ok := matchInt(noteBalanceRe, note); ok {
		m.Fitness.TSB = float64(v)
		hasBalance = true
		found = true
	}
	if noteOvertrainingRe.MatchString(note) {
		m.Overtraining = true
		found = true
	}

	if !hasBalance {
		m.Fitness.TSB = m.Fitness.CTL - m.Fitness.ATL
	}
	return m, found
}

func matchInt(re *regexp.Regexp, s string) (int, bool) {
	match := re.FindStringSubmatch(s)
	if len(match) < 2 {
		return 0, false
	}
	v, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// MetricsSource is a fallback provider of fitness metrics consulted when the
// computed pipeline has no data.
type MetricsSource interface {
	LatestMetrics(ctx context.Context) (NoteMetrics, bool, error)
}

// NoteMetricsSource mines private notes of a fixed activity set
type NoteMetricsSource struct {
	Activities []Activity
}

// LatestMetrics returns the tags of the most recent activity carrying any
func (s NoteMetricsSource) LatestMetrics(ctx context.Context) (NoteMetrics, bool, error) {
	sorted := make([]Activity, len(s.Activities))
	copy(sorted, s.Activities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartDate.After(sorted[j].StartDate)
	})

	for _, a := range sorted {
		if err := ctx.Err(); err != nil {
			return NoteMetrics{}, false, err
		}
		if a.PrivateNote == "" {
			continue
		}
		if m, ok := ParsePrivateNote(a.PrivateNote); ok {
			m.ActivityID = a.ID
			return m, true, nil
		}
	}
	return NoteMetrics{}, false, nil
}
