package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Screenshots table - one row per captured distress screenshot
		`CREATE TABLE IF NOT EXISTS screenshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			status TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_screenshots_status ON screenshots(status)`,
		`CREATE INDEX IF NOT EXISTS idx_screenshots_filename ON screenshots(filename)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
