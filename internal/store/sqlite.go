package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Fullex26/backupnotify/pkg/models"
)

// Store persists notification history in SQLite
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			notifier TEXT NOT NULL,
			label TEXT NOT NULL,
			trigger_name TEXT NOT NULL,
			outcome INTEGER NOT NULL,
			level INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_deliveries_timestamp ON deliveries(timestamp);
		CREATE INDEX IF NOT EXISTS idx_deliveries_label ON deliveries(label);
	`)
	return err
}

// SaveDelivery records one notification attempt. A missing ID or
// timestamp is filled in.
func (s *Store) SaveDelivery(d models.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO deliveries (id, notifier, label, trigger_name, outcome, level, timestamp, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Notifier, d.Label, d.Trigger, int(d.Outcome), int(d.Level), d.Timestamp.UTC(), d.Error,
	)
	return err
}

// RecentDeliveries returns attempts from the last N hours, newest first
func (s *Store) RecentDeliveries(hours int) ([]models.Delivery, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour).UTC()
	rows, err := s.db.Query(`
		SELECT id, notifier, label, trigger_name, outcome, level, timestamp, error
		FROM deliveries
		WHERE timestamp > ?
		ORDER BY timestamp DESC
		LIMIT 100`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []models.Delivery
	for rows.Next() {
		var d models.Delivery
		var outcome, level int
		if err := rows.Scan(&d.ID, &d.Notifier, &d.Label, &d.Trigger, &outcome, &level, &d.Timestamp, &d.Error); err != nil {
			return nil, err
		}
		d.Outcome = models.Outcome(outcome)
		d.Level = models.SeverityLevel(level)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// LastFailure returns when a delivery for label last failed, humanized
func (s *Store) LastFailure(label string) (string, error) {
	var timestamp time.Time
	err := s.db.QueryRow(`
		SELECT timestamp FROM deliveries
		WHERE label = ? AND error != ''
		ORDER BY timestamp DESC
		LIMIT 1`, label).Scan(&timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return "never", nil
	}
	if err != nil {
		return "", err
	}
	return humanize.Time(timestamp), nil
}

// DeliveryCount returns the number of attempts in the last N hours
func (s *Store) DeliveryCount(hours int) (int, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour).UTC()
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM deliveries WHERE timestamp > ?`, since).Scan(&count)
	return count, err
}

// Prune removes deliveries older than N days
func (s *Store) Prune(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UTC()
	result, err := s.db.Exec(`DELETE FROM deliveries WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
