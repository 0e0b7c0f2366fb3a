// Package eventlog records incoming measurement events to sqlite for later
// diagnosis. It is telemetry only: graph state is never restored from it.
package eventlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded measurement event.
type Entry struct {
	ID         string     `json:"id"`
	FromFrame  string     `json:"from"`
	ToFrame    string     `json:"to"`
	Key        string     `json:"key"`
	Rot        [4]float64 `json:"rot"`
	Origin     [3]float64 `json:"origin"`
	Weight     float64    `json:"weight"`
	ObservedAt int64      `json:"observed_at"` // unix nanos from the event
	RecordedAt time.Time  `json:"recorded_at"`
}

// Log is a sqlite-backed measurement event log.
type Log struct {
	*sql.DB
}

// Open opens (creating if needed) the event log at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS measurements (
			id                TEXT PRIMARY KEY,
			from_frame        TEXT NOT NULL,
			to_frame          TEXT NOT NULL,
			measurement_key   TEXT NOT NULL,
			rot_x             DOUBLE,
			rot_y             DOUBLE,
			rot_z             DOUBLE,
			rot_w             DOUBLE,
			origin_x          DOUBLE,
			origin_y          DOUBLE,
			origin_z          DOUBLE,
			weight            DOUBLE,
			observed_at_ns    BIGINT,
			recorded_at       TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_measurements_key
			ON measurements(measurement_key);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create event log schema: %w", err)
	}

	return &Log{db}, nil
}

// RecordMeasurement appends one measurement event.
func (l *Log) RecordMeasurement(from, to, key string, rot [4]float64, origin [3]float64, weight float64, observedAtNanos int64) error {
	_, err := l.Exec(`
		INSERT INTO measurements (
			id, from_frame, to_frame, measurement_key,
			rot_x, rot_y, rot_z, rot_w,
			origin_x, origin_y, origin_z,
			weight, observed_at_ns, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), from, to, key,
		rot[0], rot[1], rot[2], rot[3],
		origin[0], origin[1], origin[2],
		weight, observedAtNanos, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record measurement: %w", err)
	}
	return nil
}

// RecentMeasurements returns up to limit entries, newest first.
func (l *Log) RecentMeasurements(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.Query(`
		SELECT id, from_frame, to_frame, measurement_key,
			rot_x, rot_y, rot_z, rot_w,
			origin_x, origin_y, origin_z,
			weight, observed_at_ns, recorded_at
		FROM measurements
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.FromFrame, &e.ToFrame, &e.Key,
			&e.Rot[0], &e.Rot[1], &e.Rot[2], &e.Rot[3],
			&e.Origin[0], &e.Origin[1], &e.Origin[2],
			&e.Weight, &e.ObservedAt, &e.RecordedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByKey returns the number of recorded events per measurement key.
func (l *Log) CountByKey() (map[string]int, error) {
	rows, err := l.Query(`
		SELECT measurement_key, COUNT(*)
		FROM measurements
		GROUP BY measurement_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
