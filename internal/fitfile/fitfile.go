// Package fitfile reads power streams from archived FIT files. It backs the
// stream lookup when Strava no longer serves an activity's samples.
package fitfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/tormoder/fit"
)

// maxStreamSeconds bounds the resampled stream; longer spans indicate a
// corrupt timestamp rather than a real ride.
const maxStreamSeconds = 48 * 3600

var (
	// ErrNotFound is returned when the archive has no file for an activity
	ErrNotFound = errors.New("fit file not found")
	// ErrNoRecords is returned for FIT files without any record messages
	ErrNoRecords = errors.New("fit file has no records")
)

// Samples are 1 Hz series aligned on the first record's timestamp
type Samples struct {
	Watts     []float64
	Heartrate []float64
	Cadence   []float64
}

// Decode parses a FIT activity file into 1 Hz samples
func Decode(r io.Reader) (Samples, error) {
	file, err := fit.Decode(r)
	if err != nil {
		return Samples{}, fmt.Errorf("decode fit: %w", err)
	}

	activity, err := file.Activity()
	if err != nil {
		return Samples{}, fmt.Errorf("fit activity: %w", err)
	}

	return samplesFromRecords(activity.Records)
}

// samplesFromRecords places each record at its second offset from the first
// timestamped record. Gaps and invalid readings are zero; a later record for
// the same second overwrites an earlier one.
func samplesFromRecords(records []*fit.RecordMsg) (Samples, error) {
	var first *fit.RecordMsg
	for _, rec := range records {
		if rec != nil && !rec.Timestamp.IsZero() && !fit.IsBaseTime(rec.Timestamp) {
			first = rec
			break
		}
	}
	if first == nil {
		return Samples{}, ErrNoRecords
	}

	last := 0
	for _, rec := range records {
		if off, ok := offset(first, rec); ok && off > last {
			last = off
		}
	}
	if last >= maxStreamSeconds {
		return Samples{}, fmt.Errorf("fit records span %ds, exceeds %ds", last, maxStreamSeconds)
	}

	s := Samples{
		Watts:     make([]float64, last+1),
		Heartrate: make([]float64, last+1),
		Cadence:   make([]float64, last+1),
	}
	for _, rec := range records {
		off, ok := offset(first, rec)
		if !ok {
			continue
		}
		if rec.Power != math.MaxUint16 {
			s.Watts[off] = float64(rec.Power)
		}
		if rec.HeartRate != math.MaxUint8 {
			s.Heartrate[off] = float64(rec.HeartRate)
		}
		if rec.Cadence != math.MaxUint8 {
			s.Cadence[off] = float64(rec.Cadence)
		}
	}
	return s, nil
}

func offset(first, rec *fit.RecordMsg) (int, bool) {
	if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
		return 0, false
	}
	off := int(rec.Timestamp.Sub(first.Timestamp).Seconds())
	if off < 0 {
		return 0, false
	}
	return off, true
}

// objectName is the archive name for an activity's file
func objectName(activityID int64) string {
	return strconv.FormatInt(activityID, 10) + ".fit"
}
