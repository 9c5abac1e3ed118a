package store

import (
	"database/sql"
	"fmt"
)

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activities (summary from /athlete/activities, notes from the detail endpoint)
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY,
			athlete_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			start_date_local TEXT NOT NULL,
			timezone TEXT,
			distance REAL NOT NULL,
			moving_time INTEGER NOT NULL,
			elapsed_time INTEGER NOT NULL,
			total_elevation_gain REAL,
			average_speed REAL,
			max_speed REAL,
			average_heartrate REAL,
			max_heartrate REAL,
			average_cadence REAL,
			average_watts REAL,
			weighted_average_watts REAL,
			max_watts REAL,
			kilojoules REAL,
			device_watts INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			private_note TEXT NOT NULL DEFAULT '',
			streams_synced INTEGER DEFAULT 0,
			details_synced INTEGER NOT NULL DEFAULT 0,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(type)`,

		// Streams (zstd-packed watts/heartrate/cadence series, one row per activity)
		`CREATE TABLE IF NOT EXISTS streams (
			activity_id INTEGER PRIMARY KEY,
			sample_count INTEGER NOT NULL,
			data BLOB NOT NULL,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Computed Metrics (per activity)
		`CREATE TABLE IF NOT EXISTS activity_metrics (
			activity_id INTEGER PRIMARY KEY,
			ftp REAL NOT NULL,
			tss INTEGER NOT NULL,
			intensity_factor REAL,
			normalized_power REAL,
			variability_index REAL,
			efficiency_factor REAL,
			decoupling REAL,
			best_power_20m REAL,
			data_quality_score REAL,
			computed_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Daily Fitness Trends
		`CREATE TABLE IF NOT EXISTS fitness_trends (
			date TEXT PRIMARY KEY,
			tss REAL NOT NULL,
			ctl REAL NOT NULL,
			atl REAL NOT NULL,
			tsb REAL NOT NULL,
			ride_count_7d INTEGER,
			total_tss_7d REAL,
			computed_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Power Records (best average power per duration)
		`CREATE TABLE IF NOT EXISTS power_records (
			id INTEGER PRIMARY KEY,
			category TEXT NOT NULL UNIQUE,
			activity_id INTEGER NOT NULL,
			duration_seconds INTEGER NOT NULL,
			avg_watts REAL NOT NULL,
			avg_heartrate REAL,
			achieved_at TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_power_records_activity ON power_records(activity_id)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	// columns added after the first release
	return addColumn(db, "activities", "details_synced", "INTEGER NOT NULL DEFAULT 0")
}

// addColumn adds a column to a table created by an older version
func addColumn(db *sql.DB, table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}

	exists := false
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			rows.Close()
			return err
		}
		if name == column {
			exists = true
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
