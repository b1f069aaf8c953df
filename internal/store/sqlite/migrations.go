package sqlite

func (s Storage) RunMigrations() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Timestamps are unix seconds (UTC) so range filters compare integers.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key VARCHAR NOT NULL,
		calendar_uid VARCHAR NOT NULL DEFAULT "",
		summary TEXT NOT NULL DEFAULT "",
		description TEXT NOT NULL DEFAULT "",
		location TEXT NOT NULL DEFAULT "",
		organizer TEXT NOT NULL DEFAULT "",
		status VARCHAR NOT NULL DEFAULT "",
		attach TEXT NOT NULL DEFAULT "",
		start_at INTEGER NULL DEFAULT NULL,
		end_at INTEGER NULL DEFAULT NULL,
		created_at INTEGER NULL DEFAULT NULL,
		updated_at INTEGER NULL DEFAULT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS events_key ON events (key)`,
	`CREATE INDEX IF NOT EXISTS events_start_at ON events (start_at)`,
}
