package store

import (
	"database/sql"
	"errors"
	"strconv"
	"time"
)

// Sync state keys
const (
	SyncKeyLastActivitySync = "last_activity_sync"
	SyncKeyLastFullSync     = "last_full_sync"

	// SyncKeyMetricsFTP records the FTP stored metrics were computed against
	SyncKeyMetricsFTP = "metrics_ftp"
)

// GetSyncState retrieves a sync state value by key
// Returns empty string if key doesn't exist
func (db *DB) GetSyncState(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSyncState sets a sync state value
func (db *DB) SetSyncState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// GetSyncTime reads a unix-seconds sync marker. The zero time means never.
func (db *DB) GetSyncTime(key string) (time.Time, error) {
	value, err := db.GetSyncState(key)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}

// SetSyncTime stores a sync marker as unix seconds
func (db *DB) SetSyncTime(key string, t time.Time) error {
	return db.SetSyncState(key, strconv.FormatInt(t.Unix(), 10))
}
