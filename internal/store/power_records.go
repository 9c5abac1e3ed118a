package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrPowerRecordNotFound is returned when no record exists for a category
var ErrPowerRecordNotFound = errors.New("power record not found")

const powerRecordColumns = `id, category, activity_id, duration_seconds, avg_watts,
	avg_heartrate, achieved_at, start_offset, end_offset`

// UpsertPowerRecord stores pr if it beats the current record for its
// category. Higher average power wins; ties keep the older record.
func (db *DB) UpsertPowerRecord(pr *PowerRecord) (updated bool, err error) {
	existing, err := db.GetPowerRecord(pr.Category)
	if err != nil && !errors.Is(err, ErrPowerRecordNotFound) {
		return false, err
	}
	if existing != nil && existing.AvgWatts >= pr.AvgWatts {
		return false, nil
	}

	_, err = db.Exec(`
		INSERT INTO power_records (
			category, activity_id, duration_seconds, avg_watts,
			avg_heartrate, achieved_at, start_offset, end_offset
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			activity_id = excluded.activity_id,
			duration_seconds = excluded.duration_seconds,
			avg_watts = excluded.avg_watts,
			avg_heartrate = excluded.avg_heartrate,
			achieved_at = excluded.achieved_at,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset
	`,
		pr.Category, pr.ActivityID, pr.DurationSeconds, pr.AvgWatts,
		pr.AvgHeartrate, formatTime(pr.AchievedAt), pr.StartOffset, pr.EndOffset,
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetPowerRecord retrieves the record for a category
func (db *DB) GetPowerRecord(category string) (*PowerRecord, error) {
	row := db.QueryRow(`SELECT `+powerRecordColumns+` FROM power_records WHERE category = ?`, category)

	pr, err := scanPowerRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPowerRecordNotFound
	}
	return pr, err
}

// GetAllPowerRecords returns every record, shortest duration first
func (db *DB) GetAllPowerRecords() ([]PowerRecord, error) {
	rows, err := db.Query(`SELECT ` + powerRecordColumns + ` FROM power_records ORDER BY duration_seconds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PowerRecord
	for rows.Next() {
		pr, err := scanPowerRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *pr)
	}
	return records, rows.Err()
}

// DeletePowerRecordsForActivity removes records set during an activity
func (db *DB) DeletePowerRecordsForActivity(activityID int64) error {
	_, err := db.Exec(`DELETE FROM power_records WHERE activity_id = ?`, activityID)
	return err
}

func scanPowerRecord(row rowScanner) (*PowerRecord, error) {
	var pr PowerRecord
	var achievedAt string

	err := row.Scan(
		&pr.ID, &pr.Category, &pr.ActivityID, &pr.DurationSeconds, &pr.AvgWatts,
		&pr.AvgHeartrate, &achievedAt, &pr.StartOffset, &pr.EndOffset,
	)
	if err != nil {
		return nil, err
	}

	if pr.AchievedAt, err = parseTime(achievedAt); err != nil {
		return nil, fmt.Errorf("parsing achieved_at %q: %w", achievedAt, err)
	}
	return &pr, nil
}
