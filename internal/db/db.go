// Package db persists the crossing journal: one row per counting event,
// used by the reporting surface. The journal is supplementary to the
// counter store -- losing it costs history, never the count.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the journal database at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS crossings (
			crossing_id   TEXT PRIMARY KEY,
			count_after   BIGINT,
			distance_cm   DOUBLE,
			baseline_cm   DOUBLE,
			timestamp     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_crossings_timestamp ON crossings(timestamp);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// RecordCrossing inserts one counting event.
func (db *DB) RecordCrossing(countAfter uint64, distanceCM, baselineCM float64) error {
	_, err := db.Exec(
		"INSERT INTO crossings (crossing_id, count_after, distance_cm, baseline_cm) VALUES (?, ?, ?, ?)",
		uuid.NewString(), int64(countAfter), distanceCM, baselineCM,
	)
	return err
}

// Crossing is one journaled counting event.
type Crossing struct {
	ID         string
	CountAfter uint64
	DistanceCM float64
	BaselineCM float64
	Timestamp  time.Time
}

func (c *Crossing) String() string {
	return fmt.Sprintf("Count: %d, Distance: %.1fcm, Baseline: %.1fcm, At: %s",
		c.CountAfter, c.DistanceCM, c.BaselineCM, c.Timestamp.Format(time.RFC3339))
}

// Crossings returns the most recent crossings, newest first.
func (db *DB) Crossings(limit int) ([]Crossing, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(
		"SELECT crossing_id, count_after, distance_cm, baseline_cm, timestamp FROM crossings ORDER BY timestamp DESC, count_after DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crossings []Crossing
	for rows.Next() {
		var c Crossing
		var countAfter int64
		var ts string
		if err := rows.Scan(&c.ID, &countAfter, &c.DistanceCM, &c.BaselineCM, &ts); err != nil {
			return nil, err
		}
		c.CountAfter = uint64(countAfter)
		// SQLite stores CURRENT_TIMESTAMP as UTC text.
		if parsed, err := time.ParseInLocation("2006-01-02 15:04:05", ts, time.UTC); err == nil {
			c.Timestamp = parsed
		}
		crossings = append(crossings, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return crossings, nil
}

// HourlyCount is one bucket of the crossing rollup.
type HourlyCount struct {
	Hour      string
	Crossings int
}

// HourlyCounts buckets crossings since the given time by hour, oldest first.
func (db *DB) HourlyCounts(since time.Time) ([]HourlyCount, error) {
	rows, err := db.Query(`
		SELECT strftime('%Y-%m-%d %H:00', timestamp) AS hour, COUNT(*)
		FROM crossings
		WHERE timestamp >= ?
		GROUP BY hour
		ORDER BY hour ASC`,
		since.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []HourlyCount
	for rows.Next() {
		var b HourlyCount
		if err := rows.Scan(&b.Hour, &b.Crossings); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buckets, nil
}
