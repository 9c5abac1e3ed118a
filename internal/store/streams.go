package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoStreams is returned when an activity has no stored streams
var ErrNoStreams = errors.New("no streams stored")

// SaveStreams replaces the stream data for an activity
func (db *DB) SaveStreams(s *Streams) error {
	blob, err := db.codec.Encode(s.Watts, s.Heartrate, s.Cadence)
	if err != nil {
		return fmt.Errorf("encoding streams: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO streams (activity_id, sample_count, data)
		VALUES (?, ?, ?)
		ON CONFLICT(activity_id) DO UPDATE SET
			sample_count = excluded.sample_count,
			data = excluded.data
	`, s.ActivityID, len(s.Watts), blob)
	return err
}

// GetStreams retrieves the stream data for an activity
func (db *DB) GetStreams(activityID int64) (*Streams, error) {
	var blob []byte
	err := db.QueryRow(`SELECT data FROM streams WHERE activity_id = ?`, activityID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoStreams
	}
	if err != nil {
		return nil, err
	}

	series, err := db.codec.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding streams for %d: %w", activityID, err)
	}

	s := &Streams{ActivityID: activityID}
	if len(series) > 0 {
		s.Watts = series[0]
	}
	if len(series) > 1 {
		s.Heartrate = series[1]
	}
	if len(series) > 2 {
		s.Cadence = series[2]
	}
	return s, nil
}

// GetStreamCount returns the number of power samples stored for an activity
func (db *DB) GetStreamCount(activityID int64) (int, error) {
	var count int
	err := db.QueryRow(`SELECT sample_count FROM streams WHERE activity_id = ?`, activityID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// GetActivitiesNeedingMetrics returns activities that have streams but no computed metrics
func (db *DB) GetActivitiesNeedingMetrics() ([]Activity, error) {
	rows, err := db.Query(`
		SELECT ` + prefixed("a", activityColumns) + `
		FROM activities a
		WHERE a.streams_synced = 1
		AND NOT EXISTS (SELECT 1 FROM activity_metrics m WHERE m.activity_id = a.id)
		ORDER BY a.start_date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// DeleteStreams removes stream data for an activity
func (db *DB) DeleteStreams(activityID int64) error {
	_, err := db.Exec("DELETE FROM streams WHERE activity_id = ?", activityID)
	return err
}
