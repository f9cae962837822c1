package sqlite

import (
	"context"
	"time"
)

// CheckRecord represents one stored check result.
type CheckRecord struct {
	ID            string    `json:"id"`
	CheckedAt     time.Time `json:"checked_at"`
	Host          string    `json:"host"`
	Port          int       `json:"port"`
	User          string    `json:"user,omitempty"`
	Database      string    `json:"database,omitempty"`
	Reachable     bool      `json:"reachable"`
	LatencyMs     float64   `json:"latency_ms"`
	AuthStatus    string    `json:"auth_status"`
	ServerVersion string    `json:"server_version,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}

// HistoryStore provides access to stored check results.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Save inserts a check result.
func (s *HistoryStore) Save(ctx context.Context, rec CheckRecord) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO check_history (
			id, checked_at, host, port, username, dbname,
			reachable, latency_ms, auth_status, server_version, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.CheckedAt, rec.Host, rec.Port, rec.User, rec.Database,
		rec.Reachable, rec.LatencyMs, rec.AuthStatus, rec.ServerVersion, rec.Detail)
	return err
}

// Recent returns the most recent check results, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]CheckRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, checked_at, host, port, username, dbname,
			reachable, latency_ms, auth_status, server_version, detail
		FROM check_history
		ORDER BY checked_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CheckRecord
	for rows.Next() {
		var rec CheckRecord
		if err := rows.Scan(
			&rec.ID, &rec.CheckedAt, &rec.Host, &rec.Port, &rec.User, &rec.Database,
			&rec.Reachable, &rec.LatencyMs, &rec.AuthStatus, &rec.ServerVersion, &rec.Detail,
		); err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the total number of stored check results.
func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM check_history").Scan(&count)
	return count, err
}

// PruneBefore deletes check results older than cutoff and returns the
// number removed.
func (s *HistoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.conn.ExecContext(ctx, `
		DELETE FROM check_history WHERE checked_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
