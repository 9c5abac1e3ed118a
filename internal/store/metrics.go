package store

import (
	"database/sql"
	"errors"
)

const metricsColumns = `activity_id, ftp, tss, intensity_factor, normalized_power,
	variability_index, efficiency_factor, decoupling, best_power_20m, data_quality_score`

// SaveActivityMetrics stores computed metrics for an activity
func (db *DB) SaveActivityMetrics(m *ActivityMetrics) error {
	_, err := db.Exec(`
		INSERT INTO activity_metrics (`+metricsColumns+`, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			ftp = excluded.ftp,
			tss = excluded.tss,
			intensity_factor = excluded.intensity_factor,
			normalized_power = excluded.normalized_power,
			variability_index = excluded.variability_index,
			efficiency_factor = excluded.efficiency_factor,
			decoupling = excluded.decoupling,
			best_power_20m = excluded.best_power_20m,
			data_quality_score = excluded.data_quality_score,
			computed_at = CURRENT_TIMESTAMP
	`,
		m.ActivityID, m.FTP, m.TSS, m.IntensityFactor, m.NormalizedPower,
		m.VariabilityIndex, m.EfficiencyFactor, m.Decoupling, m.BestPower20m, m.DataQualityScore,
	)
	return err
}

// GetActivityMetrics retrieves computed metrics for an activity.
// Returns nil, nil when none were computed.
func (db *DB) GetActivityMetrics(activityID int64) (*ActivityMetrics, error) {
	row := db.QueryRow(`SELECT `+metricsColumns+` FROM activity_metrics WHERE activity_id = ?`, activityID)

	m, err := scanMetrics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// GetMetricsByActivity returns metrics for the given activities keyed by ID
func (db *DB) GetMetricsByActivity(ids []int64) (map[int64]*ActivityMetrics, error) {
	result := make(map[int64]*ActivityMetrics, len(ids))
	for _, id := range ids {
		m, err := db.GetActivityMetrics(id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			result[id] = m
		}
	}
	return result, nil
}

// CountMetrics returns the number of activities with computed metrics
func (db *DB) CountMetrics() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM activity_metrics").Scan(&count)
	return count, err
}

// DeleteAllMetrics clears computed metrics so they are rebuilt against a new FTP
func (db *DB) DeleteAllMetrics() error {
	_, err := db.Exec("DELETE FROM activity_metrics")
	return err
}

func scanMetrics(row rowScanner) (*ActivityMetrics, error) {
	var m ActivityMetrics
	err := row.Scan(
		&m.ActivityID, &m.FTP, &m.TSS, &m.IntensityFactor, &m.NormalizedPower,
		&m.VariabilityIndex, &m.EfficiencyFactor, &m.Decoupling, &m.BestPower20m, &m.DataQualityScore,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
