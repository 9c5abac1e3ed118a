package store

import "fmt"

// ReplaceFitnessTrends swaps the stored trend series for trends in one transaction
func (db *DB) ReplaceFitnessTrends(trends []FitnessTrend) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM fitness_trends"); err != nil {
		return fmt.Errorf("deleting existing trends: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO fitness_trends (date, tss, ctl, atl, tsb, ride_count_7d, total_tss_7d)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range trends {
		if _, err := stmt.Exec(t.Date, t.TSS, t.CTL, t.ATL, t.TSB, t.RideCount7d, t.TotalTSS7d); err != nil {
			return fmt.Errorf("inserting trend %s: %w", t.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetFitnessTrends returns the most recent days of the series, oldest first
func (db *DB) GetFitnessTrends(days int) ([]FitnessTrend, error) {
	rows, err := db.Query(`
		SELECT date, tss, ctl, atl, tsb, ride_count_7d, total_tss_7d
		FROM (
			SELECT * FROM fitness_trends ORDER BY date DESC LIMIT ?
		)
		ORDER BY date ASC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []FitnessTrend
	for rows.Next() {
		var t FitnessTrend
		if err := rows.Scan(&t.Date, &t.TSS, &t.CTL, &t.ATL, &t.TSB, &t.RideCount7d, &t.TotalTSS7d); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}
