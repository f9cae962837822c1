package sqlite

// initSchema creates the database schema if it doesn't exist.
func (db *DB) initSchema() error {
	schema := `
	-- Check history table
	CREATE TABLE IF NOT EXISTS check_history (
		id TEXT PRIMARY KEY,
		checked_at DATETIME NOT NULL,
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		dbname TEXT NOT NULL DEFAULT '',
		reachable INTEGER NOT NULL DEFAULT 0,
		latency_ms REAL NOT NULL DEFAULT 0,
		auth_status TEXT NOT NULL DEFAULT 'skipped',
		server_version TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	);

	-- Indexes for common queries
	CREATE INDEX IF NOT EXISTS idx_check_history_checked_at ON check_history(checked_at DESC);
	CREATE INDEX IF NOT EXISTS idx_check_history_host ON check_history(host, port);
	`

	_, err := db.conn.Exec(schema)
	return err
}
