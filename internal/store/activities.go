package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrActivityNotFound is returned when an activity doesn't exist
var ErrActivityNotFound = errors.New("activity not found")

const activityColumns = `id, athlete_id, name, type, start_date, start_date_local, timezone,
	distance, moving_time, elapsed_time, total_elevation_gain,
	average_speed, max_speed, average_heartrate, max_heartrate, average_cadence,
	average_watts, weighted_average_watts, max_watts, kilojoules, device_watts,
	description, private_note, streams_synced`

// UpsertActivity inserts or updates an activity. Notes are only overwritten
// when the incoming value is non-empty, since the list endpoint omits them.
func (db *DB) UpsertActivity(a *Activity) error {
	_, err := db.Exec(`
		INSERT INTO activities (
			id, athlete_id, name, type, start_date, start_date_local, timezone,
			distance, moving_time, elapsed_time, total_elevation_gain,
			average_speed, max_speed, average_heartrate, max_heartrate, average_cadence,
			average_watts, weighted_average_watts, max_watts, kilojoules, device_watts,
			description, private_note, streams_synced, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			name = excluded.name,
			type = excluded.type,
			start_date = excluded.start_date,
			start_date_local = excluded.start_date_local,
			timezone = excluded.timezone,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			total_elevation_gain = excluded.total_elevation_gain,
			average_speed = excluded.average_speed,
			max_speed = excluded.max_speed,
			average_heartrate = excluded.average_heartrate,
			max_heartrate = excluded.max_heartrate,
			average_cadence = excluded.average_cadence,
			average_watts = excluded.average_watts,
			weighted_average_watts = excluded.weighted_average_watts,
			max_watts = excluded.max_watts,
			kilojoules = excluded.kilojoules,
			device_watts = excluded.device_watts,
			description = CASE WHEN excluded.description != '' THEN excluded.description ELSE activities.description END,
			private_note = CASE WHEN excluded.private_note != '' THEN excluded.private_note ELSE activities.private_note END,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.AthleteID, a.Name, a.Type,
		formatTime(a.StartDate), formatTime(a.StartDateLocal), a.Timezone,
		a.Distance, a.MovingTime, a.ElapsedTime, a.TotalElevationGain,
		a.AverageSpeed, a.MaxSpeed, a.AverageHeartrate, a.MaxHeartrate, a.AverageCadence,
		a.AverageWatts, a.WeightedAverageWatts, a.MaxWatts, a.Kilojoules, boolToInt(a.DeviceWatts),
		a.Description, a.PrivateNote, boolToInt(a.StreamsSynced),
	)
	return err
}

// UpdateActivityNotes stores the description and private note from the
// activity detail endpoint and marks the detail as synced
func (db *DB) UpdateActivityNotes(id int64, description, privateNote string) error {
	result, err := db.Exec(`
		UPDATE activities
		SET description = ?, private_note = ?, details_synced = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, description, privateNote, id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrActivityNotFound)
}

// GetActivity retrieves an activity by ID
func (db *DB) GetActivity(id int64) (*Activity, error) {
	row := db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListActivities returns activities ordered by start date descending
func (db *DB) ListActivities(limit, offset int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		ORDER BY start_date DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// ListActivitiesSince returns activities starting at or after since, oldest first
func (db *DB) ListActivitiesSince(since time.Time) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE start_date >= ?
		ORDER BY start_date ASC
	`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// GetActivitiesNeedingStreams returns rides with power whose streams
// haven't been synced yet
func (db *DB) GetActivitiesNeedingStreams(limit int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE streams_synced = 0
		AND (average_watts > 0 OR weighted_average_watts > 0)
		ORDER BY start_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// MarkStreamsSynced marks an activity's streams as synced
func (db *DB) MarkStreamsSynced(id int64) error {
	result, err := db.Exec(`
		UPDATE activities
		SET streams_synced = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrActivityNotFound)
}

// GetActivitiesNeedingDetails returns activities of the given types whose
// detail hasn't been fetched yet, newest first
func (db *DB) GetActivitiesNeedingDetails(types []string, limit int) ([]Activity, error) {
	if len(types) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(types)+1)
	for _, t := range types {
		args = append(args, t)
	}
	args = append(args, limit)

	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE details_synced = 0
		AND type IN (`+placeholders(len(types))+`)
		ORDER BY start_date DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// MarkDetailsSynced marks an activity's detail as fetched without touching
// its notes
func (db *DB) MarkDetailsSynced(id int64) error {
	result, err := db.Exec(`
		UPDATE activities
		SET details_synced = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrActivityNotFound)
}

// CountActivities returns the total number of activities
func (db *DB) CountActivities() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM activities").Scan(&count)
	return count, err
}

// GetActivitiesByIDs retrieves multiple activities by their IDs
// Returns a map of activity ID to activity for easy lookup
func (db *DB) GetActivitiesByIDs(ids []int64) (map[int64]*Activity, error) {
	result := make(map[int64]*Activity)
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities, err := scanActivities(rows)
	if err != nil {
		return nil, err
	}
	for i := range activities {
		result[activities[i].ID] = &activities[i]
	}
	return result, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanActivity scans a single activity in activityColumns order
func scanActivity(row rowScanner) (*Activity, error) {
	var a Activity
	var startDate, startDateLocal string
	var timezone sql.NullString
	var elevation, avgSpeed, maxSpeed sql.NullFloat64
	var deviceWatts, streamsSynced int

	err := row.Scan(
		&a.ID, &a.AthleteID, &a.Name, &a.Type, &startDate, &startDateLocal, &timezone,
		&a.Distance, &a.MovingTime, &a.ElapsedTime, &elevation,
		&avgSpeed, &maxSpeed, &a.AverageHeartrate, &a.MaxHeartrate, &a.AverageCadence,
		&a.AverageWatts, &a.WeightedAverageWatts, &a.MaxWatts, &a.Kilojoules, &deviceWatts,
		&a.Description, &a.PrivateNote, &streamsSynced,
	)
	if err != nil {
		return nil, err
	}

	if a.StartDate, err = parseTime(startDate); err != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, err)
	}
	if a.StartDateLocal, err = parseTime(startDateLocal); err != nil {
		return nil, fmt.Errorf("parsing start_date_local %q: %w", startDateLocal, err)
	}
	a.Timezone = timezone.String
	a.TotalElevationGain = elevation.Float64
	a.AverageSpeed = avgSpeed.Float64
	a.MaxSpeed = maxSpeed.Float64
	a.DeviceWatts = deviceWatts == 1
	a.StreamsSynced = streamsSynced == 1

	return &a, nil
}

// scanActivities scans multiple activities from rows
func scanActivities(rows *sql.Rows) ([]Activity, error) {
	var activities []Activity

	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}

	return activities, rows.Err()
}

// expectRow maps an update that touched nothing to notFound
func expectRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// formatTime stores instants as RFC3339 in UTC so they sort lexically
// placeholders returns n comma-separated bind parameters
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string in RFC3339 format
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// prefixed qualifies every column in a comma-separated list with alias
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
